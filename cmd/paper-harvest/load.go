// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvest/internal/sink"
	"github.com/pdiddy/paper-harvest/internal/store"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

var loadCmd = &cobra.Command{
	Use:   "load <conference-name> <conference-year> <conference-url>",
	Short: "Load papers_info.json into the SQLite database",
	Long: `Load reads a papers_info.json produced by crawl and upserts every record
into the database under the given conference. Records are matched by paper
URL, then by DOI, so reloading updates rather than duplicates. Each paper's
PDF is downloaded to the PDF directory unless --no-pdf is given.`,
	Args: cobra.ExactArgs(3),
	RunE: runLoad,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent load runs",
	RunE:  runRuns,
}

func init() {
	loadCmd.Flags().String("file", "", "papers file to load (default <media-dir>/papers_info.json)")
	loadCmd.Flags().String("pdf-dir", "", "directory for downloaded PDFs (default media/pdf)")
	loadCmd.Flags().Bool("no-pdf", false, "skip PDF downloads")
	bindFlag(loadCmd.Flags(), "store.pdf_dir", "pdf-dir")

	runsCmd.Flags().Int("limit", 10, "number of runs to show")
	runsCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(runsCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("conference year %q is not a number", args[1])
	}
	conf := types.Conference{Name: args[0], Year: year, URL: args[2]}

	cfg := loadConfig()
	if noPDF, _ := cmd.Flags().GetBool("no-pdf"); noPDF {
		cfg.Store.DownloadPDFs = false
	}

	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		file = filepath.Join(cfg.Crawl.MediaDir, sink.PapersFile)
	}
	papers, err := sink.ReadJSON(file)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := sink.NewLoader(st, cfg.Store).Load(cmd.Context(), conf, papers, file, os.Stdout)
	if err != nil {
		return err
	}
	if run.Failed > 0 {
		return fmt.Errorf("%d paper(s) failed loading", run.Failed)
	}
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := store.Open(loadConfig().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No load runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %7s  %7s  %4s  %6s  %s\n",
		"Run", "Started", "Created", "Updated", "PDFs", "Failed", "Source")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %7d  %7d  %4d  %6d  %s\n",
			r.ID, r.StartedAt, r.Created, r.Updated, r.PDFs, r.Failed, r.Source)
	}
	return nil
}
