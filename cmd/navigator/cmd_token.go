package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type tokenOptions struct {
	UserID   string
	Username string
	Role     string
	Level    string
	TTL      time.Duration
}

func newTokenCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT signed with auth.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := rootOpts.loadQuiet(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}
			ttl := cfg.Auth.TokenTTL
			if opts.TTL > 0 {
				ttl = opts.TTL
			}
			level, err := constraints.ParseAccessLevel(opts.Level)
			if err != nil {
				return err
			}

			m, err := auth.NewJWTManager(cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(opts.UserID, opts.Username, opts.Role, level)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&opts.Username, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Role, "role", auth.RoleViewer, "viewer|admin")
	cmd.Flags().StringVar(&opts.Level, "level", "public", "access level ceiling")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "lifetime (default auth.token_ttl)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

type apiKeyOptions struct {
	Cost int
}

func newAPIKeyCommand(_ *rootOptions) *cobra.Command {
	opts := &apiKeyOptions{}

	cmd := &cobra.Command{
		Use:   "apikey <name>",
		Short: "Generate an admin API key",
		Long: `Generate an admin API key. The key is printed once; add the YAML
entry to auth.api_keys, which stores only its bcrypt hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, plain, err := auth.GenerateAPIKey(args[0], opts.Cost)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(map[string][]auth.APIKey{"api_keys": {key}})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "key: %s\n\n%s", plain, out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}
