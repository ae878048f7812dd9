package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/fhir/mapper"
	"github.com/khoadang148/carehome-system-sub011/internal/reference"
	"github.com/khoadang148/carehome-system-sub011/internal/service"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a prescription from a JSON file or stdin",
		Long: `Check a prescription and print its issues and risk assessment.

The input is {"prescriber": ..., "medications": [...]} or, with --fhir,
{"practitioner": ..., "medicationRequests": [...]}. Reads stdin when no file
is given or the file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fhirInput, _ := cmd.Flags().GetBool("fhir")
			output, _ := cmd.Flags().GetString("output")
			refFile, _ := cmd.Flags().GetString("reference")
			failInvalid, _ := cmd.Flags().GetBool("fail-on-invalid")

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}

			req, err := parseRequest(data, fhirInput)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			source, closeSource, err := openReferenceSource(ctx, refFile)
			if err != nil {
				return err
			}
			defer closeSource()
			provider, err := reference.NewProvider(ctx, source, zap.NewNop())
			if err != nil {
				return err
			}

			res, err := service.New(provider, nil, nil, nil).Check(ctx, req)
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			case "text":
				printResult(cmd.OutOrStdout(), res)
			default:
				return fmt.Errorf("unknown output format %q", output)
			}

			if failInvalid && !res.Valid {
				return errInvalidPrescription
			}
			return nil
		},
	}
	cmd.Flags().Bool("fhir", false, "Input is a FHIR R5 practitioner and medicationRequests bundle")
	cmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	cmd.Flags().String("reference", "", "Reference data file (defaults to REFERENCE_SOURCE)")
	cmd.Flags().Bool("fail-on-invalid", false, "Exit with status 2 when the prescription has errors")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func parseRequest(data []byte, fhirInput bool) (service.Request, error) {
	if fhirInput {
		var fr mapper.Request
		if err := json.Unmarshal(data, &fr); err != nil {
			return service.Request{}, fmt.Errorf("parse FHIR request: %w", err)
		}
		prescriber, meds := mapper.Prescription(&fr)
		return service.Request{Prescriber: prescriber, Medications: meds, Channel: assessment.ChannelCLI}, nil
	}
	var req service.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return service.Request{}, fmt.Errorf("parse request: %w", err)
	}
	req.Channel = assessment.ChannelCLI
	return req, nil
}

func printResult(w io.Writer, res *service.Result) {
	status := "VALID"
	if !res.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(w, "Prescription %s  risk: %s (%d/100)\n", status, res.Risk.Level, res.Risk.Score)
	fmt.Fprintf(w, "errors: %d  warnings: %d  info: %d  active medications: %d\n",
		res.Summary.Errors, res.Summary.Warnings, res.Summary.Infos, res.ActiveCount)
	if res.ReferenceVersion != "" {
		fmt.Fprintf(w, "reference version: %s\n", res.ReferenceVersion)
	}
	if len(res.Issues) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tCODE\tFIELD\tMESSAGE")
	for _, issue := range res.Issues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", issue.Severity(), issue.Code(), issue.Field(), issue.Message())
	}
	tw.Flush()

	if len(res.Risk.Factors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "risk factors:")
		for _, f := range res.Risk.Factors {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
}
