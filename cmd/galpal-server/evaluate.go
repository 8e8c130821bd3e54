package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KyaptainJoyboy/Galpal/internal/config"
	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
	"github.com/KyaptainJoyboy/Galpal/internal/domain/labanalysis"
	"github.com/KyaptainJoyboy/Galpal/internal/platform/db"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [file]",
		Short: "Evaluate a sample file offline and print the findings",
		Long: `Reads one sample as JSON or YAML (by file extension; stdin is JSON) and
prints the aggregated result, detected conditions, and eGFR. Nothing is stored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			report, _ := cmd.Flags().GetBool("report")
			lipids, _ := cmd.Flags().GetBool("lipids")

			cfg, err := config.LoadEngine()
			if err != nil {
				return err
			}

			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			sample, err := decodeSample(data, path)
			if err != nil {
				return err
			}

			engine := interpretation.NewAggregator(interpretation.Options{
				IncludeLipids: lipids || cfg.LipidPanelEnabled,
			})
			logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()
			svc := labanalysis.NewService(nil, nil, engine, 0, logger)

			ev, err := svc.Evaluate(context.Background(), sample)
			if err != nil {
				return err
			}
			var out interface{} = ev
			if report {
				out = interpretation.NewReport(ev.Result, ev.Conditions)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().Bool("report", false, "Print the display report instead of the raw evaluation")
	cmd.Flags().Bool("lipids", false, "Include the lipid evaluators in the blood panel")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodeSample parses a sample document. YAML input is converted to JSON so
// both formats go through the same field rules.
func decodeSample(data []byte, path string) (interpretation.Sample, error) {
	var s interpretation.Sample
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return s, fmt.Errorf("parse %s: %w", path, err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return s, fmt.Errorf("convert %s: %w", path, err)
		}
		data = converted
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse sample: %w", err)
	}
	return s, nil
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
	}
	tw.Flush()
}
