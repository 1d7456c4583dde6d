package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/id"
	"github.com/tallyhq/tally/internal/model"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}
	cmd.AddCommand(newRulesListCommand())
	cmd.AddCommand(newRulesAddCommand())
	cmd.AddCommand(newRulesRemoveCommand())
	return cmd
}

func newRulesListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List classification rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := openProject(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rules := proj.Store.Rules()
			if len(rules) == 0 {
				fmt.Fprintln(out, "No rules defined.")
				return nil
			}
			for _, r := range rules {
				status := ""
				if !r.IsActive {
					status = " (inactive)"
				}
				fmt.Fprintf(out, "%s  p%d  [%s] -> %s%s\n",
					r.ID, r.Priority, strings.Join(r.Keywords, ", "), r.Category, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	return cmd
}

func newRulesAddCommand() *cobra.Command {
	var dir string
	var keywords []string
	var category string
	var priority int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a classification rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := openProject(dir)
			if err != nil {
				return err
			}

			canonical, ok := model.CanonicalCategory(category)
			if !ok {
				return fmt.Errorf("unknown category %q", category)
			}

			rule := model.ClassificationRule{
				ID:        id.NewRule(),
				Keywords:  keywords,
				Category:  canonical,
				Priority:  priority,
				IsActive:  true,
				CreatedAt: time.Now().UTC(),
			}
			if err := proj.Store.AddRule(rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", rule.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "keywords that trigger the rule (required)")
	_ = cmd.MarkFlagRequired("keywords")
	cmd.Flags().StringVar(&category, "category", "", "category to assign (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().IntVar(&priority, "priority", 0, "rule priority; higher wins")

	return cmd
}

func newRulesRemoveCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "remove <rule-id>",
		Short: "Remove a classification rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := openProject(dir)
			if err != nil {
				return err
			}
			if err := proj.Store.DeleteRule(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory")
	return cmd
}
