package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitman711/parkinglot/internal/config"
	"github.com/hitman711/parkinglot/internal/middleware"
	"github.com/hitman711/parkinglot/internal/utils"
)

// jwtSecret is replaced in tests.
var jwtSecret = config.JWTSecret

func tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userID uint64
			if _, err := fmt.Sscan(args[0], &userID); err != nil || userID == 0 {
				return fmt.Errorf("user id must be a positive integer")
			}
			role = strings.ToUpper(role)
			if role != middleware.RoleOwner && role != middleware.RoleCustomer {
				return fmt.Errorf("--role must be OWNER or CUSTOMER")
			}
			tok, err := utils.NewAccessToken(jwtSecret(), userID, role, ttl)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"token":      tok.Token,
					"expires_at": tok.Exp.Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", middleware.RoleCustomer, "OWNER or CUSTOMER")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
