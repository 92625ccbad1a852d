// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvest/internal/store"
)

var papersCmd = &cobra.Command{
	Use:   "papers [query]",
	Short: "Query stored papers with full-text search and filters",
	Long: `Papers searches the database using FTS5 full-text search over titles,
abstracts and reviews, structured filters (conference, year, code,
datasets), or a combination of both.`,
	RunE: runPapers,
}

var paperCmd = &cobra.Command{
	Use:   "paper <id|doi|url>",
	Short: "Show one stored paper as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaper,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored papers to YAML or JSON",
	Long: `Export writes every stored paper (or a filtered subset) with its
datasets and PDF-extracted info to <media-dir>/export.yaml or export.json.`,
	RunE: runExport,
}

func init() {
	addFilterFlags(papersCmd)
	papersCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	papersCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(exportCmd)
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("out", "", "output file (default <media-dir>/export.<format>)")

	rootCmd.AddCommand(papersCmd)
	rootCmd.AddCommand(paperCmd)
	rootCmd.AddCommand(exportCmd)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("conference", "", "filter by conference name")
	cmd.Flags().Int("year", 0, "filter by conference year")
	cmd.Flags().Bool("has-code", false, "only papers with a code repository")
	cmd.Flags().Bool("has-dataset", false, "only papers with at least one dataset")
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) store.QueryOptions {
	conference, _ := cmd.Flags().GetString("conference")
	year, _ := cmd.Flags().GetInt("year")
	hasCode, _ := cmd.Flags().GetBool("has-code")
	hasDataset, _ := cmd.Flags().GetBool("has-dataset")

	opts := store.QueryOptions{
		Query:      strings.Join(args, " "),
		Conference: conference,
		Year:       year,
		HasCode:    hasCode,
		HasDataset: hasDataset,
	}
	if cmd.Flags().Lookup("limit") != nil {
		opts.Limit, _ = cmd.Flags().GetInt("limit")
	}
	return opts
}

func runPapers(cmd *cobra.Command, args []string) error {
	st, err := store.Open(loadConfig().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.ListPapers(cmd.Context(), queryOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-5s  %-60s  %-14s  %-4s  %s\n", "ID", "Title", "Conference", "Code", "Datasets")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range results {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		code := "-"
		if r.CodeURL != nil {
			code = "yes"
		}
		fmt.Fprintf(os.Stdout, "%-5d  %-60s  %-14s  %-4s  %d\n",
			r.ID, title, fmt.Sprintf("%s %d", r.Conference, r.Year), code, len(r.Datasets))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func runPaper(cmd *cobra.Command, args []string) error {
	st, err := store.Open(loadConfig().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.GetPaper(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printYAML(rec)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	cfg := loadConfig()
	if out == "" {
		out = filepath.Join(cfg.Crawl.MediaDir, "export."+format)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := queryOptsFromFlags(cmd, args)

	var n int
	switch format {
	case "yaml", "":
		n, err = st.ExportYAML(cmd.Context(), out, opts)
	case "json":
		n, err = st.ExportJSON(cmd.Context(), out, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d papers to %s\n", n, out)
	return nil
}
