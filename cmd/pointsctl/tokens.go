package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/points-ledger/internal/service"
)

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensGenerateCmd)
	tokensCmd.AddCommand(tokensImportCmd)

	tokensGenerateCmd.Flags().IntP("count", "n", 0, "Number of codes to generate")
	tokensGenerateCmd.Flags().IntP("length", "l", 0, "Code length (default TOKEN_CODE_LENGTH)")
	tokensGenerateCmd.Flags().StringP("format", "f", "", "numeric, alphanumeric or hex (default TOKEN_CODE_FORMAT)")
	tokensGenerateCmd.Flags().Int64P("value", "v", 0, "Points per code")
	_ = tokensGenerateCmd.MarkFlagRequired("count")
	_ = tokensGenerateCmd.MarkFlagRequired("value")

	tokensImportCmd.Flags().StringP("file", "f", "", "File with one code per line, optionally \"code,value\" ('-' reads stdin)")
	tokensImportCmd.Flags().Int64P("value", "v", 0, "Points for codes without their own value")
	_ = tokensImportCmd.MarkFlagRequired("file")
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Issue redeemable tokens",
}

var tokensGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and issue random token codes",
	Long: `Generate --count unique random codes and store them, each worth --value
points. The issued codes are printed one per line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		length, _ := cmd.Flags().GetInt("length")
		format, _ := cmd.Flags().GetString("format")
		value, _ := cmd.Flags().GetInt64("value")

		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		svc, err := newService(db)
		if err != nil {
			return err
		}
		res, err := svc.IssueGenerated(cmd.Context(), service.GenerateRequest{Count: count, Length: length, Format: format, Value: value})
		if err != nil {
			return err
		}
		return printIssue(cmd.OutOrStdout(), res, true)
	},
}

var tokensImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Issue token codes read from a file",
	Long: `Read codes from --file and store every code that does not exist yet.
Blank lines and lines starting with '#' are ignored. Re-running an import is
safe: existing codes are reported as skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		value, _ := cmd.Flags().GetInt64("value")

		var in io.Reader = cmd.InOrStdin()
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		req, err := parseCodeList(in, value)
		if err != nil {
			return err
		}

		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		svc, err := newService(db)
		if err != nil {
			return err
		}
		res, err := svc.Issue(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printIssue(cmd.OutOrStdout(), res, false)
	},
}

// parseCodeList reads "code" or "code,value" lines into an IssueRequest.
func parseCodeList(r io.Reader, value int64) (service.IssueRequest, error) {
	req := service.IssueRequest{ValuePerCode: value, PerCodeValues: map[string]int64{}}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		code, rawValue, hasValue := strings.Cut(text, ",")
		code = strings.TrimSpace(code)
		if !hasValue {
			req.Codes = append(req.Codes, code)
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(rawValue), 10, 64)
		if err != nil {
			return service.IssueRequest{}, fmt.Errorf("line %d: invalid value %q", line, rawValue)
		}
		req.PerCodeValues[code] = v
	}
	if err := sc.Err(); err != nil {
		return service.IssueRequest{}, err
	}
	return req, nil
}

func printIssue(w io.Writer, res service.IssueResult, listCodes bool) error {
	if listCodes {
		for _, c := range res.Inserted {
			if _, err := fmt.Fprintln(w, c); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "inserted=%d skipped=%d\n", res.InsertedCount(), res.SkippedCount())
	return err
}
