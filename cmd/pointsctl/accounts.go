package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/points-ledger/internal/model"
	"github.com/iliyamo/points-ledger/internal/repository"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsSetRoleCmd)
	accountsCmd.AddCommand(accountsGrantCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Administer member accounts",
}

var accountsSetRoleCmd = &cobra.Command{
	Use:   "set-role PUBLIC_ID ROLE",
	Short: "Set an account's role (MEMBER or ADMIN)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := strings.ToUpper(strings.TrimSpace(args[1]))
		if role != model.RoleMember && role != model.RoleAdmin {
			return fmt.Errorf("role must be %s or %s", model.RoleMember, model.RoleAdmin)
		}
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repository.NewAccountRepo(db).SetRole(cmd.Context(), args[0], role); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("account %s not found", args[0])
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", repository.NormalizePublicID(args[0]), role)
		return nil
	},
}

var accountsGrantCmd = &cobra.Command{
	Use:   "grant PUBLIC_ID POINTS",
	Short: "Credit points to an account with a GRANT ledger entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("points must be an integer: %q", args[1])
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
		balance, err := svc.Grant(cmd.Context(), args[0], points)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s balance=%d\n", repository.NormalizePublicID(args[0]), balance)
		return nil
	},
}
