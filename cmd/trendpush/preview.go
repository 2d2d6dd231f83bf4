package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trendpush/internal/packer"
	"trendpush/internal/report"
)

var (
	previewChannel string
	previewReport  string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the batches a channel would receive, without sending",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgm.Get()
		profiles, err := cfg.Profiles()
		if err != nil {
			return err
		}
		p, err := profiles.Lookup(strings.ToLower(strings.TrimSpace(previewChannel)))
		if err != nil {
			return fmt.Errorf("%w (known: %s)", err, strings.Join(profiles.Channels(), ", "))
		}

		mode, err := report.ParseMode(cfg.Report.Mode)
		if err != nil {
			return err
		}
		path := previewReport
		if path == "" {
			path = cfg.Report.Path
		}
		if path == "" {
			return fmt.Errorf("no report file: set report.path or pass --report")
		}
		data, err := report.FileSource{Path: path, Mode: mode}.Build(context.Background())
		if err != nil {
			return err
		}

		batches := packer.Batches(data, p, packer.Options{
			Now:        time.Now(),
			ReportType: data.Mode.Label(),
			Notice:     cfg.Report.Notice,
			NewFirst:   cfg.Report.ReverseContentOrder,
		})
		for i, b := range batches {
			fmt.Printf("----- %s batch %d/%d (%d/%d bytes) -----\n", p.Channel, i+1, len(batches), len(b), p.ByteBudget)
			fmt.Println(b)
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewChannel, "channel", "feishu", "Channel profile to pack for")
	previewCmd.Flags().StringVar(&previewReport, "report", "", "Report file (default report.path)")
}
