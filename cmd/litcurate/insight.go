// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litcurate/internal/insight"
)

var insightCmd = &cobra.Command{
	Use:   "insight [NAME]",
	Short: "Run a built-in insight view, or list them",
	Long: `Insight computes one of the dashboard's fixed views, such as rct or
sex-bias: the number of distinct papers per label of the view's task
within each label of its grouping task. The result is printed as YAML.
Without NAME the catalog is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			var rows [][]string
			for _, d := range insight.Catalog() {
				rows = append(rows, []string{d.Name, d.Task, d.GroupTask, d.Question})
			}
			printTable(os.Stdout, []string{"Name", "Task", "Grouped by", "Question"}, rows)
			return nil
		}

		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := insight.NewService(ix, logger).Run(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonFlag(cmd) {
			return printJSON(res)
		}
		return printYAML(res)
	},
}

var dualTaskCmd = &cobra.Command{
	Use:   "dual-task TASK1 TASK2",
	Short: "Compare the label distributions of two tasks",
	Long: `Dual-task prints the label frequencies of TASK1 and TASK2. With --label,
TASK2 is counted only over the papers carrying that TASK1 label.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")

		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		v, err := insight.NewService(ix, logger).DualTask(context.Background(), args[0], args[1], label)
		if err != nil {
			return err
		}
		if jsonFlag(cmd) {
			return printJSON(v)
		}
		rows := make([][]string, 0, len(v.Frequency1)+len(v.Frequency2))
		for _, lc := range v.Frequency1 {
			rows = append(rows, []string{v.Task1, lc.Label, strconv.Itoa(lc.Count)})
		}
		for _, lc := range v.Frequency2 {
			rows = append(rows, []string{v.Task2, lc.Label, strconv.Itoa(lc.Count)})
		}
		printTable(os.Stdout, []string{"Task", "Label", "Count"}, rows)
		return nil
	},
}

func init() {
	insightCmd.Flags().Bool("json", false, "output as JSON instead of YAML")
	dualTaskCmd.Flags().String("label", "", "TASK1 label to condition TASK2 on")
	dualTaskCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(dualTaskCmd)
}
