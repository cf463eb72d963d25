package main

import (
	"encoding/json"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newReindexCmd(a *app) *cobra.Command {
	var recompute bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the inverted index from stored term frequencies",
		Long: heredoc.Doc(`
			Rebuild every posting list from the term frequencies stored with
			each document. With --recompute the term frequencies are first
			derived again from the document fields, which is needed after
			changing the excluded field list or the tokenizer.
		`),
		Example: heredoc.Doc(`
			libctl reindex
			libctl reindex --recompute
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.catalog()
			if err != nil {
				return err
			}
			stats, err := svc.Reindex(cmd.Context(), a.actor(), recompute)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents, %d terms in %s\n",
				stats.Documents, stats.Terms, stats.Duration)
			return nil
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "recompute term frequencies from document fields first")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the inverted index with stored term frequencies",
		Long: heredoc.Doc(`
			Report postings that are missing from the index and postings that
			name documents no longer containing the term. Exits non-zero when
			the index has drifted; run "libctl reindex" to repair it.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.catalog()
			if err != nil {
				return err
			}
			report, err := svc.Verify(cmd.Context(), a.actor())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "documents: %d\nterms: %d\nmissing postings: %d\nstale postings: %d\n",
					report.Documents, report.Terms, report.Missing, report.Stale)
				for _, d := range report.Samples {
					fmt.Fprintf(out, "  %+v\n", d)
				}
			}
			if !report.Consistent() {
				return fmt.Errorf("index is inconsistent")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
