package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/config"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/postgres"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/s3"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
)

func referenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Inspect and distribute formulary and schedule data",
	}

	checkCmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Load reference data and report problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			source, closeSource, err := openReferenceSource(cmd.Context(), file)
			if err != nil {
				return err
			}
			defer closeSource()

			doc, err := source.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load %s: %w", source.Name(), err)
			}
			formulary, schedules, err := doc.Build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source:    %s\n", source.Name())
			fmt.Fprintf(out, "version:   %s\n", doc.Version)
			fmt.Fprintf(out, "drugs:     %d\n", formulary.Len())
			fmt.Fprintf(out, "schedules: %d\n", schedules.Len())

			if dangling := danglingInteractions(doc); len(dangling) > 0 {
				fmt.Fprintln(out, "interactions naming drugs outside the formulary:")
				for _, d := range dangling {
					fmt.Fprintf(out, "  %s\n", d)
				}
			}
			return nil
		},
	}
	cmd.AddCommand(checkCmd)

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the Postgres reference tables with a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewReferenceSource(pool).Import(cmd.Context(), doc); err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d drugs and %d schedules (version %q).\n",
				len(doc.Formulary), len(doc.Schedules), doc.Version)
			return nil
		},
	}
	cmd.AddCommand(importCmd)

	publishCmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Upload a JSON document to the configured S3 object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			bucket, _ := cmd.Flags().GetString("bucket")
			if bucket == "" {
				bucket = cfg.ReferenceS3Bucket
			}
			src, err := s3.New(cmd.Context(), s3.Config{
				Region:    cfg.ReferenceS3Region,
				Bucket:    bucket,
				Key:       cfg.ReferenceS3Key,
				Endpoint:  cfg.ReferenceS3Endpoint,
				PathStyle: cfg.ReferenceS3Endpoint != "",
			}, zap.NewNop())
			if err != nil {
				return err
			}
			if err := src.Publish(cmd.Context(), doc); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", src.Name())
			return nil
		},
	}
	publishCmd.Flags().String("bucket", "", "Target bucket (defaults to REFERENCE_S3_BUCKET)")
	cmd.AddCommand(publishCmd)

	return cmd
}

func readDocument(path string) (*reference.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return reference.Parse(data)
}

// danglingInteractions lists "drug -> other" pairs whose target is not in
// the formulary. They are allowed but can never fire.
func danglingInteractions(doc *reference.Document) []string {
	formulary, _, err := doc.Build()
	if err != nil {
		return nil
	}
	var out []string
	for _, d := range doc.Formulary {
		for _, other := range d.Interactions {
			if _, ok := formulary.Lookup(other); !ok {
				out = append(out, d.Name+" -> "+other)
			}
		}
	}
	sort.Strings(out)
	return out
}
