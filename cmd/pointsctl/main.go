// Command pointsctl is the operator CLI for the points ledger: schema
// migration, token issuance outside the HTTP API and account roles.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
