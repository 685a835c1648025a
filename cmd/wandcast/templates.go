package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/wandcast/internal/app"
	"github.com/ayusman/wandcast/internal/templates"
)

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List recorded gesture templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			files, err := templates.NewDir(cfg.Training.TemplateDir).List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LABEL\tCREATED\tSIZE\tFILE")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Label, f.CreatedAt.Format(time.DateTime), f.Size, f.Name)
			}
			return w.Flush()
		},
	}
}

func newExportCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy gesture templates to the export directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dest == "" {
				dest = cfg.Training.ExportDir
			}

			report, err := templates.NewDir(cfg.Training.TemplateDir).Export(dest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %d templates to %s\n", len(report.Copied), report.Destination)
			for _, f := range report.Failed {
				fmt.Fprintf(out, "  failed: %s: %s\n", f.Name, f.Err)
			}
			if !report.OK() {
				return fmt.Errorf("%d templates failed to export", len(report.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "destination directory (default from config)")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	var waitNeural time.Duration

	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Classify every stroke of a template file against the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			strokes, err := templates.ReadFile(templates.File{Name: filepath.Base(path), Path: path})
			if err != nil {
				return err
			}

			a, err := app.New(*cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.LoadTemplates(); err != nil {
				return err
			}
			if cfg.Neural.Enabled {
				awaitWarmup(a, waitNeural)
			}

			type strokeResult struct {
				Label   string               `json:"label"`
				Stroke  int                  `json:"stroke"`
				Results []app.Classification `json:"results"`
			}
			out := make([]strokeResult, 0, len(strokes))
			for i, s := range strokes {
				out = append(out, strokeResult{Label: s.Label, Stroke: i, Results: a.Classify(s.Points)})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().DurationVar(&waitNeural, "wait", 10*time.Second, "how long to wait for the neural backend")
	return cmd
}

// awaitWarmup ticks the frame loop until warm-up settles or limit passes.
func awaitWarmup(a *app.App, limit time.Duration) {
	const dt = 16 * time.Millisecond

	wait := a.Warmup().EnsureWarmupCompleted()
	deadline := time.Now().Add(limit)
	for !wait.Done() && time.Now().Before(deadline) {
		a.Loop().Tick(dt)
		time.Sleep(dt)
	}
	fmt.Fprintf(os.Stderr, "neural backend: %s\n", wait.State())
}
