package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gramsift/gramsift/internal/output"
)

var (
	quotaResetYes    bool
	quotaResetDryRun bool
	quotaResetOutput string
	quotaResetOut    string
	quotaResetOutDir string
)

var quotaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stored quota usage state",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(quotaResetOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		if !quotaResetYes && !quotaResetDryRun {
			return errors.New("reset requires --yes (or use --dry-run)")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		snap, err := db.LoadUsage(cmd.Context())
		if err != nil {
			return err
		}

		outPath := strings.TrimSpace(quotaResetOut)
		outDir := strings.TrimSpace(quotaResetOutDir)
		if outPath != "" && outDir != "" {
			return fmt.Errorf("--out and --out-dir are mutually exclusive")
		}
		ext := outputExtension(format)
		if outDir != "" {
			var err error
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("quota.reset.%s", ext))
		}
		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		hadState := snap != nil

		if quotaResetDryRun {
			return writeQuotaResetResult(format, sink.writer, hadState, true)
		}

		if err := db.ResetUsage(cmd.Context()); err != nil {
			return err
		}

		return writeQuotaResetResult(format, sink.writer, hadState, false)
	},
}

func writeQuotaResetResult(format output.Format, w io.Writer, hadState bool, dryRun bool) error {
	result := map[string]any{
		"had_state": hadState,
		"dry_run":   dryRun,
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		if hadState {
			_, err := fmt.Fprintln(w, "Would reset stored quota usage")
			return err
		}
		_, err := fmt.Fprintln(w, "No stored quota usage to reset")
		return err
	}
	_, err := fmt.Fprintln(w, "Quota usage reset")
	return err
}

func init() {
	quotaResetCmd.Flags().BoolVar(&quotaResetYes, "yes", false, "Confirm destructive reset")
	quotaResetCmd.Flags().BoolVar(&quotaResetDryRun, "dry-run", false, "Show what would be reset")
	quotaResetCmd.Flags().StringVar(&quotaResetOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	quotaResetCmd.Flags().StringVar(&quotaResetOut, "out", "", "Write output to a file (default stdout)")
	quotaResetCmd.Flags().StringVar(&quotaResetOutDir, "out-dir", "", "Write output to a directory")
}
