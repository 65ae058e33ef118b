package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ActivityLogName is the file the activity consumer appends to.
const ActivityLogName = "activity.log"

// StartActivityConsumer consumes every event queue and appends one line per
// event to dir/activity.log. It reconnects with exponential backoff until
// ctx is cancelled, then returns ctx.Err().
func StartActivityConsumer(ctx context.Context, url, dir string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("activity-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, dir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("activity-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("activity-consumer: set QoS failed", zap.Error(err))
	}
	if err := declareQueues(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries := make(chan amqp.Delivery)
	for _, q := range Queues {
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", q, err)
		}
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-closed:
			if e == nil {
				return errors.New("channel closed")
			}
			return e
		case d := <-deliveries:
			if err := handleMessage(dir, d.Body); err != nil {
				log.Warn("activity-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(dir string, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := FormatActivity(ev)
	if err != nil {
		return err
	}
	return appendLine(dir, line)
}

func appendLine(dir, line string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, ActivityLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatActivity renders ev as a single human-friendly line ending in '\n'.
func FormatActivity(ev Event) (string, error) {
	at := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch ev.Type {
	case TypePointsRedeemed:
		var p PointsRedeemed
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("payload %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Token redeemed | account=%s | code=%s | points=%d | balance=%d | event=%s\n",
			at, p.Account, p.Code, p.Points, p.NewBalance, ev.ID), nil
	case TypePointsTransferred:
		var p PointsTransferred
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("payload %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Points transferred | from=%s | to=%s | amount=%d | event=%s\n",
			at, p.Sender, p.Recipient, p.Amount, ev.ID), nil
	case TypeTokensIssued:
		var p TokensIssued
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("payload %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Tokens issued | inserted=%d | skipped=%d | by=%s | event=%s\n",
			at, p.Inserted, p.Skipped, p.IssuedBy, ev.ID), nil
	}
	return "", fmt.Errorf("unknown event type %q", ev.Type)
}
