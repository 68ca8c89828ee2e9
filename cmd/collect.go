package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/arxiv-digest/config"
	"github.com/mohammad-safakhou/arxiv-digest/internal/auth"
	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
	srv "github.com/mohammad-safakhou/arxiv-digest/internal/server"
)

func collectCMD() *cobra.Command {
	var (
		categories []string
		req        digest.CollectRequest
		asJSON     bool
	)
	var collect = &cobra.Command{
		Use:   "collect",
		Short: "Run one digest collection with the agent identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			app, err := srv.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			req.Categories = categories
			res, err := app.Pipeline.Run(cmd.Context(), auth.TokenIdentity(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON || !isTerminal(out) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(out, renderResult(res))
			return nil
		},
	}
	f := collect.Flags()
	f.StringSliceVar(&categories, "category", digest.DefaultCategories(), "arXiv category (repeatable)")
	f.IntVar(&req.MaxResults, "max-results", digest.DefaultMaxResults, "number of papers to fetch")
	f.BoolVar(&req.IncludeImages, "images", false, "render and publish cover images")
	f.BoolVar(&req.IncludeAudio, "audio", false, "synthesize and publish narration")
	f.BoolVar(&req.DryRun, "dry-run", false, "compute everything without publishing")
	f.StringVar(&req.Title, "title", "", "note title (default \"arXiv Digest <date>\")")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")

	return collect
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
