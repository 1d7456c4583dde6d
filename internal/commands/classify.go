package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/classify"
)

func newClassifyCommand() *cobra.Command {
	var dir string
	var modelName string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Categorize transactions needing review with the AI classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, dir, modelName)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringVar(&modelName, "model", "", "override the configured model")

	return cmd
}

func runClassify(cmd *cobra.Command, dir, modelName string) error {
	proj, err := openProject(dir)
	if err != nil {
		return err
	}

	var reqs []classify.Request
	for _, txn := range proj.Store.Transactions() {
		if !txn.NeedsReview || txn.Split {
			continue
		}
		reqs = append(reqs, classify.Request{
			ID:          txn.ID,
			Description: txn.Description,
			Amount:      txn.Amount,
			Type:        txn.Type,
		})
	}

	out := cmd.OutOrStdout()
	if len(reqs) == 0 {
		fmt.Fprintln(out, "Nothing to classify.")
		return nil
	}

	if modelName == "" {
		modelName = proj.Config.AI.Model
	}
	engine := classify.NewEngine(classify.NewGeminiClient(modelName), classify.Options{
		Model:      modelName,
		BatchSize:  proj.Config.AI.BatchSize,
		BatchDelay: time.Duration(proj.Config.AI.BatchDelayMS) * time.Millisecond,
		MaxRetries: uint64(proj.Config.AI.MaxRetries),
		Threshold:  decimal.NewFromFloat(proj.Config.Thresholds.ReviewFlag),
		AuditRoot:  proj.Root,
	})

	fmt.Fprintf(out, "Classifying %d transactions with %s...\n", len(reqs), modelName)
	results, stats := engine.ClassifyAll(cmd.Context(), reqs)

	updated := 0
	for _, r := range results {
		txn, ok := proj.Store.GetTransaction(r.ID)
		if !ok {
			continue
		}
		// The model sets category fields only; the transaction's type is
		// decided at import and stays put.
		txn.Category = r.Category
		txn.Subcategory = r.Subcategory
		txn.Confidence = r.Confidence
		txn.NeedsReview = r.NeedsReview
		if r.Payee != "" {
			txn.Payee = r.Payee
		}
		if err := proj.Store.UpdateTransaction(txn); err != nil {
			return fmt.Errorf("saving classification for %s: %w", r.ID, err)
		}
		if !r.NeedsReview {
			updated++
		}
	}

	fmt.Fprintf(out, "Classified %d of %d in %d batches (%d failed)\n",
		updated, stats.Submitted, stats.Batches, stats.Failed)
	return nil
}
