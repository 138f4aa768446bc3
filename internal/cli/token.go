package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"qcm-service/internal/auth"
	"qcm-service/internal/config"
	"qcm-service/internal/domain"
)

// NewTokenCmd issues a bearer token for local development and testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID int64
		role   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			if userID <= 0 {
				return fmt.Errorf("--id must be a positive user id")
			}
			svc := auth.NewService(cfg.Auth.Secret, config.Duration(cfg.Auth.TokenTTL, 8*time.Hour))
			token, err := svc.IssueToken(domain.Actor{ID: userID, Role: parsed})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "id", 0, "user id (token subject)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "teacher or student")
	return cmd
}
