package main

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog/csvio"
)

func newImportCmd(a *app) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import documents of one type from a CSV file",
		Long: heredoc.Doc(`
			Import a CSV file of one document type, one row at a time. Rows
			whose Id names an existing document update it in place; other
			rows create new documents. A blank status imports as published
			and rows titled "Example" are skipped.

			The document type is taken from --type or else from the file
			name, as written by "libctl export".
		`),
		Example: heredoc.Doc(`
			libctl import book.csv
			libctl import --type law statutes.csv
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			t := catalog.DocType(docType)
			if t == "" {
				var ok bool
				if t, ok = csvio.TypeFromFileName(path); !ok {
					return fmt.Errorf("cannot tell the document type of %s, use --type", path)
				}
			}
			if !t.Valid() {
				return fmt.Errorf("unknown document type %q", t)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			svc, err := a.catalog()
			if err != nil {
				return err
			}
			res, err := svc.ImportCSV(cmd.Context(), a.actor(), f, t)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d %s documents\n", res.Created, res.Updated, t)
			return err
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", "", "document type of the rows")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <type>",
		Short: "Export every document of one type as CSV",
		Example: heredoc.Doc(`
			libctl export book > book.csv
			libctl export law -o law.csv
		`),
		Args:      cobra.ExactArgs(1),
		ValidArgs: docTypeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := catalog.DocType(args[0])
			if !t.Valid() {
				return fmt.Errorf("unknown document type %q", t)
			}
			svc, err := a.catalog()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := svc.ExportCSV(cmd.Context(), a.actor(), w, t)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d %s documents to %s\n", n, t, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func docTypeNames() []string {
	out := make([]string, len(catalog.DocTypes))
	for i, t := range catalog.DocTypes {
		out[i] = string(t)
	}
	return out
}
