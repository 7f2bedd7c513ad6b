package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwtpkg "sunrun/credithub/pkg/jwt"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Admin token utilities",
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue an admin access token for the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWT.SigningKey == "" {
			return errors.New("jwt.signing_key is not set")
		}

		subject := tokenSubject
		if subject == "" {
			if len(cfg.Admin.UserIDs) == 0 {
				return errors.New("no --subject given and admin.user_ids is empty")
			}
			subject = cfg.Admin.UserIDs[0]
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWT.AccessTokenTTL
		}
		token, err := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, ttl).GenerateAccessToken(subject)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", "", "admin subject (defaults to the first admin.user_ids entry)")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to jwt.access_token_ttl)")
	tokenCmd.AddCommand(tokenIssueCmd)
}
