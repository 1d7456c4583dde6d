package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/money"
	"github.com/tallyhq/tally/internal/split"
)

func newSplitCommand() *cobra.Command {
	var dir string
	var partSpecs []string

	cmd := &cobra.Command{
		Use:   "split <transaction-id>",
		Short: "Split a transaction into category-tagged parts",
		Long: `Split a transaction into category-tagged parts.

Each --part is amount:category or amount:category:subcategory, with the
amount as a positive number. Parts may sum to less than the original;
the remainder is reported and stays uncategorized.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, dir, args[0], partSpecs)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringArrayVar(&partSpecs, "part", nil, "part as amount:category[:subcategory] (repeatable)")
	_ = cmd.MarkFlagRequired("part")

	return cmd
}

func runSplit(cmd *cobra.Command, dir, txnID string, specs []string) error {
	proj, err := openProject(dir)
	if err != nil {
		return err
	}

	parts := make([]split.Part, 0, len(specs))
	for _, spec := range specs {
		p, err := parsePartSpec(spec)
		if err != nil {
			return err
		}
		parts = append(parts, p)
	}

	check, err := split.NewService(proj.Store).Split(txnID, parts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Split %s of %s into %d parts\n",
		money.Format(check.TotalSplitAmount), money.Format(check.OriginalAmount), len(parts))
	if !check.Remainder.IsZero() {
		fmt.Fprintf(out, "Remainder %s left uncategorized\n", money.Format(check.Remainder))
	}
	return nil
}

func parsePartSpec(spec string) (split.Part, error) {
	fields := strings.SplitN(spec, ":", 3)
	if len(fields) < 2 {
		return split.Part{}, fmt.Errorf("invalid part %q: want amount:category[:subcategory]", spec)
	}
	p := split.Part{
		Amount:   money.Parse(fields[0]),
		Category: strings.TrimSpace(fields[1]),
	}
	if len(fields) == 3 {
		p.Subcategory = strings.TrimSpace(fields[2])
	}
	return p, nil
}

func newUnsplitCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "unsplit <transaction-id>",
		Short: "Remove a transaction's split parts and restore it to whole",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := openProject(dir)
			if err != nil {
				return err
			}
			if err := split.NewService(proj.Store).Unsplit(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	return cmd
}
