package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/charactercast-api/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an owner token signed with JWT_SECRET",
	RunE:  runToken,
}

var (
	tokenSubject string
	tokenTTL     time.Duration
	tokenSecret  string
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Owner id the token identifies (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTTL, "Token lifetime")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret (overrides JWT_SECRET)")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	secret := tokenSecret
	if secret == "" {
		secret = clientCfg.JWTSecret
	}

	tokens, err := auth.NewTokens(secret, auth.WithTTL(tokenTTL))
	if err != nil {
		return fmt.Errorf("JWT_SECRET or --secret is required: %w", err)
	}

	token, err := tokens.Issue(tokenSubject)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
