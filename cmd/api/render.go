package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"labreport/api/internal/export"
	"labreport/api/internal/report"
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a saved report JSON file offline",
		RunE:  runRender,
	}
	f := cmd.Flags()
	f.String("in", "", "Report JSON file (required)")
	f.String("out", "", "Output file (default: <safe title>.<format> next to the input)")
	f.String("format", "pdf", "Output format (pdf, docx, xlsx)")
	f.String("renderer", "vector", "PDF renderer (auto, chrome, vector, basic)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	formatName, _ := cmd.Flags().GetString("format")
	mode, _ := cmd.Flags().GetString("renderer")

	format, ok := export.ParseFormat(formatName)
	if !ok {
		return fmt.Errorf("unknown format %q", formatName)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	r := report.ParseReport(data)

	pdf, err := export.NewPDFRenderer(mode, cfg.RenderTimeout, logger)
	if err != nil {
		return err
	}
	result, err := export.NewService(pdf, logger).Export(context.Background(), r, format)
	if err != nil {
		if errors.Is(err, export.ErrDOCXDependencyMissing) {
			return fmt.Errorf("docx export needs pandoc on PATH: %w", err)
		}
		return fmt.Errorf("render report: %w", err)
	}

	if out == "" {
		out = filepath.Join(filepath.Dir(in), result.Filename)
	}
	if err := os.WriteFile(out, result.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("report rendered",
		zap.String("report_id", r.ID),
		zap.String("out", out),
		zap.Int("bytes", len(result.Data)),
	)
	return nil
}
