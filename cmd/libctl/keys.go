package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysCreateCmd(a), newKeysRevokeCmd(a), newKeysListCmd(a))
	return cmd
}

func (a *app) keys() (*apikey.Validator, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return apikey.NewValidator(db.DB), nil
}

func newKeysCreateCmd(a *app) *cobra.Command {
	var (
		role      string
		rateLimit int
		expiresIn time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an API key",
		Long: heredoc.Doc(`
			Create an API key for the named holder. The name is recorded on
			documents the holder posts or edits. The raw key is printed once
			and cannot be recovered.
		`),
		Example: heredoc.Doc(`
			libctl keys create alice --role contributor
			libctl keys create ops --role admin --expires-in 720h
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.keys()
			if err != nil {
				return err
			}
			var expiresAt *time.Time
			if expiresIn > 0 {
				t := time.Now().Add(expiresIn)
				expiresAt = &t
			}
			key, err := v.CreateKey(cmd.Context(), args[0], catalog.Role(role), rateLimit, expiresAt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(catalog.RoleReader), "admin, contributor or reader")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 100, "requests allowed per rate limit window")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime of the key; 0 never expires")
	return cmd
}

func newKeysRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Deactivate an API key by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key id %q", args[0])
			}
			v, err := a.keys()
			if err != nil {
				return err
			}
			if err := v.RevokeID(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked key %d\n", id)
			return nil
		},
	}
}

func newKeysListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.keys()
			if err != nil {
				return err
			}
			keys, err := v.ListKeys(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE\tRATE LIMIT\tCREATED\tEXPIRES")
			for _, k := range keys {
				expires := "never"
				if k.ExpiresAt != nil {
					expires = k.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
					k.ID, k.Name, k.Role, k.RateLimit, k.CreatedAt.Format(time.RFC3339), expires)
			}
			return tw.Flush()
		},
	}
}
