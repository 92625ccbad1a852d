// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvest/internal/llm"
	"github.com/pdiddy/paper-harvest/internal/pdftext"
	"github.com/pdiddy/paper-harvest/internal/store"
)

var pdftextCmd = &cobra.Command{
	Use:   "pdftext <pdf>...",
	Short: "Extract plain text from PDFs into .txt files",
	Long: `Pdftext writes the plain text of each PDF to a .txt file next to it.
The text files are reused by pdfinfo.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPDFText,
}

var pdfinfoCmd = &cobra.Command{
	Use:   "pdfinfo [paper]",
	Short: "Extract author e-mails, datasets and code links from paper PDFs",
	Long: `Pdfinfo sends a stored paper's PDF text to the configured model and saves
the author e-mails, datasets and code URL it finds. The paper is named by
id, DOI or paper URL; --file overrides the stored PDF. With --all every
stored paper that has a PDF and no extracted info is processed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPDFInfo,
}

func init() {
	pdfinfoCmd.Flags().String("file", "", "PDF or .txt file to read instead of the stored PDF")
	pdfinfoCmd.Flags().Bool("all", false, "process every stored paper with a PDF and no info")
	pdfinfoCmd.Flags().Int("limit", 1000, "maximum papers considered with --all")
	addFilterFlags(pdfinfoCmd)

	rootCmd.AddCommand(pdftextCmd)
	rootCmd.AddCommand(pdfinfoCmd)
}

func runPDFText(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		out, err := pdftext.ExtractToFile(path)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "wrote: %s\n", out)
	}
	if failed > 0 {
		return fmt.Errorf("%d PDF(s) failed text extraction", failed)
	}
	return nil
}

func runPDFInfo(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return fmt.Errorf("provide a paper id, DOI or URL, or use --all")
	}

	cfg := loadConfig()
	model, err := llm.New(cfg.AI, &http.Client{Timeout: 5 * cfg.Crawl.Timeout})
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	e := &pdftext.Enricher{Store: st, Model: model}

	if all {
		_, failed, err := e.EnrichAll(cmd.Context(), queryOptsFromFlags(cmd, nil), os.Stdout)
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d paper(s) failed info extraction", failed)
		}
		return nil
	}

	file, _ := cmd.Flags().GetString("file")
	info, err := e.Enrich(cmd.Context(), args[0], file)
	if err != nil {
		return err
	}
	return printYAML(info)
}
