package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Token code formats accepted by GenerateCodes.
const (
	FormatNumeric      = "numeric"
	FormatAlphanumeric = "alphanumeric"
	FormatHex          = "hex"
)

// MaxCodeLength is the longest token code the registry stores.
const MaxCodeLength = 64

const (
	numericCharset      = "0123456789"
	alphanumericCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	hexCharset          = "0123456789abcdef"
	// Public ids skip 0/O and 1/I so they survive being read aloud.
	publicIDCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	ErrInvalidCode   = errors.New("invalid token code")
	ErrInvalidFormat = errors.New("unknown code format")
	ErrCodeSpace     = errors.New("requested count exceeds the code space")
)

// NewPublicID returns a random public account identifier of the given length.
func NewPublicID(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("public id length must be positive, got %d", length)
	}
	return randomString(publicIDCharset, length)
}

// GenerateCodes returns count distinct random codes of the given length and
// format. Uniqueness is only guaranteed within the batch; the registry
// reports codes that already exist as skipped.
func GenerateCodes(count, length int, format string) ([]string, error) {
	charset, err := charsetFor(format)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	if length <= 0 || length > MaxCodeLength {
		return nil, fmt.Errorf("length must be between 1 and %d, got %d", MaxCodeLength, length)
	}
	if space := codeSpace(len(charset), length); space.Cmp(big.NewInt(int64(count))) < 0 {
		return nil, ErrCodeSpace
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for len(codes) < count {
		c, err := randomString(charset, length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes, nil
}

// ValidateCodes trims each code, rejects blank, oversized or malformed ones
// and drops duplicates while keeping first-seen order.
func ValidateCodes(codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		c := strings.TrimSpace(raw)
		if err := ValidateCode(c); err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// ValidateCode checks a single, already trimmed code. Codes are made of
// ASCII letters, digits, '-' and '_'.
func ValidateCode(c string) error {
	if c == "" || len(c) > MaxCodeLength {
		return fmt.Errorf("%w: %q", ErrInvalidCode, c)
	}
	for i := 0; i < len(c); i++ {
		ch := c[i]
		switch {
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '-', ch == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidCode, c)
		}
	}
	return nil
}

func charsetFor(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatNumeric, "":
		return numericCharset, nil
	case FormatAlphanumeric:
		return alphanumericCharset, nil
	case FormatHex:
		return hexCharset, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, format)
}

func codeSpace(base, length int) *big.Int {
	return new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(length)), nil)
}

// randomString draws length characters uniformly from charset using crypto/rand.
func randomString(charset string, length int) (string, error) {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
