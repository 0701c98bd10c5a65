// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/results"
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Print one window of the filtered paper list",
	Long: `Page resolves the filters, then prints rows [start, end) of the matching
papers with their selected tags. Sort with --sort COLUMN[:asc|desc]
(repeatable) and narrow with a grid filter model passed as JSON, e.g.

  --filter-model '{"title": {"filterType": "text", "type": "contains", "filter": "lsd"}}'`,
	RunE: runPage,
}

func runPage(cmd *cobra.Command, args []string) error {
	set, err := filterFlags(cmd)
	if err != nil {
		return err
	}
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	sorts, _ := cmd.Flags().GetStringArray("sort")
	rawModel, _ := cmd.Flags().GetString("filter-model")

	req := results.PageRequest{StartRow: start, EndRow: end}
	for _, s := range sorts {
		col, dir, _ := strings.Cut(s, ":")
		req.SortModel = append(req.SortModel, results.SortModel{ColID: col, Sort: dir})
	}
	if req.FilterModel, err = results.ParseFilterModel(rawModel); err != nil {
		return err
	}

	store, ix, cfg, err := openCorpus()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	cands, err := filter.NewResolver(ix, logger).Resolve(ctx, set)
	if err != nil {
		return err
	}
	page, err := results.NewProvider(store, ix, logger, cfg.Export).Page(ctx, cands, set, req)
	if err != nil {
		return err
	}
	if jsonFlag(cmd) {
		return printJSON(page)
	}

	rows := make([][]string, len(page.Rows))
	for i, r := range page.Rows {
		tags := make([]string, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = t.Label
		}
		rows[i] = []string{strconv.FormatInt(r.ID, 10), strconv.Itoa(r.Year), r.Title, strings.Join(tags, ", ")}
	}
	printTable(os.Stdout, []string{"ID", "Year", "Title", "Tags"}, rows)
	fmt.Printf("\nrows %d-%d of %d\n", start, start+len(page.Rows), page.TotalRowCount)
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered papers with one column per task",
	Long: `Export writes every paper matching the filters with its id, title, year,
doi and authors, followed by one column per task holding the paper's
labels. With filters only the filtered tasks and labels are exported;
otherwise every task is.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	set, err := filterFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported format %q: use csv or json", format)
	}

	store, ix, cfg, err := openCorpus()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	cands, err := filter.NewResolver(ix, logger).Resolve(ctx, set)
	if err != nil {
		return err
	}
	table, err := results.NewProvider(store, ix, logger, cfg.Export).Export(ctx, cands, set)
	if err != nil {
		return err
	}

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if format == "json" {
		return writeJSON(w, table)
	}
	if err := table.WriteCSV(w); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported %d papers to %s\n", len(table.Rows), output)
	}
	return nil
}

var paperCmd = &cobra.Command{
	Use:   "paper ID",
	Short: "Show one paper with its tags and highlighted entities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid paper id %q", args[0])
		}
		set, err := filterFlags(cmd)
		if err != nil {
			return err
		}

		store, ix, cfg, err := openCorpus()
		if err != nil {
			return err
		}
		defer store.Close()

		detail, err := results.NewProvider(store, ix, logger, cfg.Export).Detail(context.Background(), id, set)
		if err != nil {
			return err
		}
		return printJSON(detail)
	},
}

func init() {
	addFilterFlag(pageCmd)
	pageCmd.Flags().Int("start", 0, "first row (inclusive)")
	pageCmd.Flags().Int("end", 20, "last row (exclusive)")
	pageCmd.Flags().StringArray("sort", nil, "sort column with optional :asc or :desc (repeatable)")
	pageCmd.Flags().String("filter-model", "", "grid filter model as JSON")
	pageCmd.Flags().Bool("json", false, "output as JSON")

	addFilterFlag(exportCmd)
	exportCmd.Flags().String("format", "csv", "export format: csv or json")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	addFilterFlag(paperCmd)

	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(paperCmd)
}
