package cli

import (
	"fmt"
	"time"

	"quiz-session-service/internal/auth"
	"quiz-session-service/internal/config"

	"github.com/spf13/cobra"
)

// NewTokenCmd mints a host token signed with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		host string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a host bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret not configured")
			}
			token, err := auth.NewJWTResolver(cfg.Auth.JWTSecret).NewToken(host, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "host id placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	_ = cmd.MarkFlagRequired("host")
	return cmd
}
