// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/index"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the classification tasks present in the corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		reg, err := ix.Registry(context.Background())
		if err != nil {
			return err
		}
		if jsonFlag(cmd) {
			return printJSON(reg.All())
		}
		var rows [][]string
		for _, t := range reg.All() {
			rows = append(rows, []string{t.Name, t.DisplayName, strconv.FormatBool(t.Multilabel), strconv.Itoa(len(t.Labels))})
		}
		printTable(os.Stdout, []string{"Task", "Display name", "Multilabel", "Labels"}, rows)
		return nil
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels TASK",
	Short: "List the labels of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		labels, err := ix.Labels(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonFlag(cmd) {
			return printJSON(labels)
		}
		fmt.Println(strings.Join(labels, "\n"))
		return nil
	},
}

var freqCmd = &cobra.Command{
	Use:   "freq TASK",
	Short: "Count annotations per label of a task",
	Long: `Freq prints how many annotations each label of TASK has, most frequent
first. With --filter-task and --filter-label only papers carrying that
label are counted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, _ := cmd.Flags().GetStringArray("label")
		filterTask, _ := cmd.Flags().GetString("filter-task")
		filterLabel, _ := cmd.Flags().GetString("filter-label")
		if (filterTask == "") != (filterLabel == "") {
			return fmt.Errorf("--filter-task and --filter-label go together")
		}

		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		var freq index.Frequency
		if filterTask != "" {
			freq, err = ix.FilteredLabelFrequency(ctx, args[0], filterTask, filterLabel)
		} else {
			freq, err = ix.LabelFrequency(ctx, args[0], labels)
		}
		if err != nil {
			return err
		}
		if jsonFlag(cmd) {
			return printJSON(freq)
		}
		rows := make([][]string, len(freq))
		for i, lc := range freq {
			rows[i] = []string{lc.Label, strconv.Itoa(lc.Count)}
		}
		printTable(os.Stdout, []string{"Label", "Count"}, rows)
		return nil
	},
}

var groupedCmd = &cobra.Command{
	Use:   "grouped TASK GROUP_TASK",
	Short: "Count papers per label of TASK within each label of GROUP_TASK",
	Long: `Grouped joins TASK with GROUP_TASK through shared papers and prints the
number of distinct papers per (group label, task label). --label limits
TASK to the given labels; adding --label Other reports every remaining
label as Other.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, _ := cmd.Flags().GetStringArray("label")

		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		rows, err := ix.GroupedLabels(context.Background(), args[0], args[1], labels)
		if err != nil {
			return err
		}
		counts := index.Aggregate(rows)
		if jsonFlag(cmd) {
			return printJSON(counts)
		}
		out := make([][]string, len(counts))
		for i, c := range counts {
			out[i] = []string{c.Group, c.Label, strconv.Itoa(c.Count)}
		}
		printTable(os.Stdout, []string{args[1], args[0], "Papers"}, out)
		return nil
	},
}

var idsCmd = &cobra.Command{
	Use:   "ids [TASK]",
	Short: "List paper ids, optionally those carrying a task label",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")

		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		var ids mapset.Set[int64]
		if len(args) == 1 {
			ids, err = ix.PaperIDs(ctx, args[0], label)
		} else {
			ids, err = ix.AllPaperIDs(ctx)
		}
		if err != nil {
			return err
		}
		return printCandidates(cmd, filter.FromSet(ids))
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a filter set to the matching paper ids",
	Long: `Resolve intersects, across tasks, the papers carrying any selected label
of each task. Without filters every paper matches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := filterFlags(cmd)
		if err != nil {
			return err
		}

		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		cands, err := filter.NewResolver(ix, logger).Resolve(context.Background(), set)
		if err != nil {
			return err
		}
		if cands.Unrestricted() {
			ids, err := ix.AllPaperIDs(context.Background())
			if err != nil {
				return err
			}
			cands = filter.FromSet(ids)
		}
		return printCandidates(cmd, cands)
	},
}

func printCandidates(cmd *cobra.Command, cands filter.Candidates) error {
	if jsonFlag(cmd) {
		return printJSON(cands)
	}
	for _, id := range cands.List() {
		fmt.Println(id)
	}
	fmt.Fprintf(os.Stderr, "%d papers\n", cands.Len())
	return nil
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Count papers per publication year",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetInt("from")
		to, _ := cmd.Flags().GetInt("to")

		store, ix, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := ix.YearFrequency(context.Background(), from, to)
		if err != nil {
			return err
		}
		if jsonFlag(cmd) {
			return printJSON(counts)
		}
		rows := make([][]string, len(counts))
		for i, yc := range counts {
			rows[i] = []string{strconv.Itoa(yc.Year), strconv.Itoa(yc.Count)}
		}
		printTable(os.Stdout, []string{"Year", "Papers"}, rows)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{tasksCmd, labelsCmd, freqCmd, groupedCmd, idsCmd, resolveCmd, timelineCmd} {
		c.Flags().Bool("json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}

	freqCmd.Flags().StringArray("label", nil, "count only these labels (repeatable)")
	freqCmd.Flags().String("filter-task", "", "count only papers carrying --filter-label on this task")
	freqCmd.Flags().String("filter-label", "", "label of --filter-task")

	groupedCmd.Flags().StringArray("label", nil, "labels of TASK to join (repeatable; Other collapses the rest)")

	idsCmd.Flags().String("label", "", "label of TASK (default: any label)")

	addFilterFlag(resolveCmd)

	timelineCmd.Flags().Int("from", 0, "first year (0 = open)")
	timelineCmd.Flags().Int("to", 0, "last year (0 = open)")
}
