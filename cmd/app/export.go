package main

import (
	"fmt"
	"io"
	"os"

	"AstroOverlay/internal/di"
	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/services/export"
	"AstroOverlay/internal/usecase"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		file     string
		symbol   string
		startStr string
		endStr   string
		gran     string
		mode     string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build one overlay from a local planetary file and write it as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if file != "" {
				cfg.Planetary.DefaultFile = file
			}
			if cfg.Planetary.DefaultFile == "" {
				return fmt.Errorf("missing --file (or planetary.default_file)")
			}

			p, err := exportParams(symbol, startStr, endStr, gran, mode)
			if err != nil {
				return err
			}

			uc, cleanup, err := di.InitializeOverlay(cfg)
			if err != nil {
				return fmt.Errorf("overlay initialization failed: %w", err)
			}
			defer cleanup()

			ov, err := uc.Build(cmd.Context(), p)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "-" {
				if outPath == "" {
					outPath = export.FileName(ov)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.WriteCSV(w, ov.Table); err != nil {
				return err
			}
			if outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows (%d matched) to %s\n", ov.Table.Len(), ov.Matched, outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "planetary workbook or CSV (defaults to planetary.default_file)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "index symbol (defaults to market.default_symbol)")
	cmd.Flags().StringVar(&startStr, "start", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&endStr, "end", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&gran, "granularity", string(domrepo.Daily), "daily|weekly")
	cmd.Flags().StringVar(&mode, "mode", string(models.ModeLine), "line|candlestick|table")
	cmd.Flags().StringVar(&outPath, "out", "", "output path, - for stdout (defaults to a generated file name)")

	return cmd
}

func exportParams(symbol, startStr, endStr, gran, mode string) (usecase.OverlayParams, error) {
	p := usecase.OverlayParams{
		Dataset:     usecase.DefaultDatasetID,
		Symbol:      symbol,
		Granularity: domrepo.Granularity(gran),
		Mode:        models.Mode(mode),
	}
	if !domrepo.IsValidGranularity(p.Granularity) {
		return p, fmt.Errorf("bad --granularity %q", gran)
	}
	switch p.Mode {
	case models.ModeLine, models.ModeCandlestick, models.ModeTable:
	default:
		return p, fmt.Errorf("bad --mode %q", mode)
	}
	for _, b := range []struct {
		flag string
		raw  string
		dst  **models.Date
	}{{"start", startStr, &p.Start}, {"end", endStr, &p.End}} {
		if b.raw == "" {
			continue
		}
		d, err := models.ParseDate(models.DateLayout, b.raw)
		if err != nil {
			return p, fmt.Errorf("bad --%s: %w", b.flag, err)
		}
		*b.dst = &d
	}
	return p, nil
}
