package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/bankfmt"
	"github.com/tallyhq/tally/internal/ingest"
	"github.com/tallyhq/tally/internal/money"
)

func newImportCommand() *cobra.Command {
	var dir string
	var bank string
	var yes bool
	var skipDuplicates bool

	cmd := &cobra.Command{
		Use:   "import <statement-file>",
		Short: "Import a bank statement into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, dir, args[0], bank, yes, skipDuplicates)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringVar(&bank, "bank", "auto", "bank format (auto, chase, chase-pdf, generic)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&skipDuplicates, "skip-duplicates", true, "skip rows already in the ledger")

	return cmd
}

func runImport(cmd *cobra.Command, dir, file, bank string, yes, skipDuplicates bool) error {
	proj, err := openProject(dir)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading statement: %w", err)
	}

	threshold := decimal.NewFromFloat(proj.Config.Thresholds.ReviewFlag)
	session := ingest.NewSession(proj.Store, bankfmt.DefaultRegistry(), threshold)

	preview, err := session.Upload(file, bank, content)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Detected format: %s (%s)\n", preview.Detection.Format, preview.Detection.BankName)
	if preview.Detection.RequiresMapping {
		fmt.Fprintln(out, "No bank profile matched; using generic column mapping.")
	}
	fmt.Fprintf(out, "Parsed %d transactions", preview.ParsedCount)
	if n := len(preview.Flagged); n > 0 {
		fmt.Fprintf(out, " (%d rows flagged)", n)
	}
	fmt.Fprintln(out)

	for _, txn := range preview.Sample {
		fmt.Fprintf(out, "  %s  %-40s %12s  %s\n",
			txn.Date.Format("2006-01-02"), trim(txn.Description, 40), money.Format(txn.Amount), txn.Type)
	}
	if preview.ParsedCount > len(preview.Sample) {
		fmt.Fprintf(out, "  ... and %d more\n", preview.ParsedCount-len(preview.Sample))
	}
	for _, f := range preview.Flagged {
		fmt.Fprintf(out, "  flagged line %d: %s (%s)\n", f.Line, trim(f.Raw, 50), f.Reason)
	}

	if !yes {
		fmt.Fprintf(out, "Import %d transactions? [y/N] ", preview.ParsedCount)
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			if err := session.Cancel(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Import cancelled.")
			return nil
		}
	}

	result, err := session.Confirm(ingest.ConfirmOptions{SkipDuplicates: skipDuplicates})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d transactions (%d duplicates skipped)\n", result.Imported, result.Duplicates)
	fmt.Fprintf(out, "Classified by rules: %d, needing review: %d\n", result.Classified, result.Unclassified)
	if result.Unclassified > 0 {
		fmt.Fprintln(out, "Run `tally classify` to categorize the remainder.")
	}
	return nil
}

func trim(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
