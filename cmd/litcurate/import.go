// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pdiddy/litcurate/internal/corpus"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load papers, annotations or entity spans from CSV feeds",
	Long: `Import reads the CSV feeds produced by retrieval and classification and
writes them into the corpus. Papers must be imported before the
annotations and spans that reference them; rows naming an unknown paper
are skipped and reported.`,
}

var importPapersCmd = &cobra.Command{
	Use:   "papers FILE",
	Short: "Import a papers feed as one retrieval batch",
	Long: `Papers reads a CSV with at least a title column. Recognized columns are
id, external_id (or pmid), title, abstract, prediction_input, key_terms,
doi, year, authors, link_to_fulltext and link_to_source.

Retrieval time and duration are read from a YAML sidecar next to the
feed (papers.yaml for papers.csv) unless --provenance names another file.
Papers already present by external id or by title and year are counted
as duplicates. A numeric id is stored as given, because predictions and
spans refer to papers by it; a row whose id already belongs to another
paper fails. When prediction_input is present it is stored verbatim so
span offsets keep pointing at the text the classifier saw.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportPapers,
}

var importAnnotationsCmd = &cobra.Command{
	Use:   "annotations FILE",
	Short: "Import classifier predictions",
	Long: `Annotations reads a CSV with paper_id (or id), task, label and
probability columns, plus optional model and is_multilabel columns.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportAnnotations,
}

var importSpansCmd = &cobra.Command{
	Use:   "spans FILE",
	Short: "Import entity spans",
	Long: `Spans reads a CSV with paper_id (or id), tag, start and end columns,
plus optional text, probability and model columns. Offsets are character
positions in the paper's prediction input.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportSpans,
}

func runImportPapers(cmd *cobra.Command, args []string) error {
	provPath, _ := cmd.Flags().GetString("provenance")
	if provPath == "" {
		provPath = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".yaml"
	}
	prov, err := corpus.LoadProvenance(provPath)
	if err != nil {
		return err
	}

	return runImport(cmd, args[0], "papers", func(ctx context.Context, s *corpus.Store, r io.Reader, bar corpus.Progress) (corpus.ImportSummary, error) {
		return s.ImportPapers(ctx, r, prov, os.Stdout, bar)
	})
}

func runImportAnnotations(cmd *cobra.Command, args []string) error {
	return runImport(cmd, args[0], "annotations", func(ctx context.Context, s *corpus.Store, r io.Reader, bar corpus.Progress) (corpus.ImportSummary, error) {
		return s.ImportAnnotations(ctx, r, os.Stdout, bar)
	})
}

func runImportSpans(cmd *cobra.Command, args []string) error {
	return runImport(cmd, args[0], "spans", func(ctx context.Context, s *corpus.Store, r io.Reader, bar corpus.Progress) (corpus.ImportSummary, error) {
		return s.ImportSpans(ctx, r, os.Stdout, bar)
	})
}

type importFunc func(ctx context.Context, s *corpus.Store, r io.Reader, bar corpus.Progress) (corpus.ImportSummary, error)

func runImport(cmd *cobra.Command, path, kind string, fn importFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	store, ix, _, err := openCorpus()
	if err != nil {
		return err
	}
	defer store.Close()

	quiet, _ := cmd.Flags().GetBool("quiet")
	var bar corpus.Progress = nopProgress{}
	if !quiet {
		pb := getSpinner("importing " + kind)
		defer pb.Finish()
		bar = pb
	}

	ctx := context.Background()
	summary, err := fn(ctx, store, f, bar)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)
	printSummary(kind, summary)

	if kind == "annotations" {
		if err := ix.Refresh(ctx); err != nil {
			return err
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d row(s) failed", summary.Failed)
	}
	return nil
}

func printSummary(kind string, s corpus.ImportSummary) {
	fmt.Printf("%s %s: %s, %s, %s, %s\n",
		color.CyanString("import"), kind,
		color.GreenString("inserted %d", s.Inserted),
		color.YellowString("duplicates %d", s.Duplicates),
		color.YellowString("skipped %d", s.Skipped),
		color.RedString("failed %d", s.Failed))
	if s.BatchID > 0 {
		fmt.Printf("retrieval batch %d\n", s.BatchID)
	}
}

type nopProgress struct{}

func (nopProgress) Add(int) error { return nil }

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func init() {
	importCmd.PersistentFlags().Bool("quiet", false, "do not render a progress spinner")
	importPapersCmd.Flags().String("provenance", "", "YAML file with retrieved_at and duration (default: FILE with .yaml extension)")

	importCmd.AddCommand(importPapersCmd)
	importCmd.AddCommand(importAnnotationsCmd)
	importCmd.AddCommand(importSpansCmd)

	rootCmd.AddCommand(importCmd)
}

var _ corpus.Progress = (*progressbar.ProgressBar)(nil)
