package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/app"
	httpapi "github.com/aussiebroadwan/waitlist/internal/waitlist/http"
	"github.com/aussiebroadwan/waitlist/pkg/jwtx"
	"github.com/spf13/cobra"
)

func adminTokenCommand() *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint an operator bearer token signed with ADMIN_JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.LoadConfig()
			if cfg.AdminJWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}

			token, err := mintAdminToken(cfg, subject, scopes, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{httpapi.ScopeStatsRead}, "granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", jwtx.DefaultAdminTokenTTL, "token lifetime")

	return cmd
}

func mintAdminToken(cfg app.Config, subject string, scopes []string, ttl time.Duration, now time.Time) (string, error) {
	signer, err := jwtx.NewHS256([]byte(cfg.AdminJWTSecret), cfg.AdminJWTIssuer, []string{cfg.AdminJWTAudience})
	if err != nil {
		return "", err
	}

	claims := jwtx.NewClaims(subject, scopes, ttl, cfg.AdminJWTIssuer, []string{cfg.AdminJWTAudience}, now)
	token, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return token, nil
}
