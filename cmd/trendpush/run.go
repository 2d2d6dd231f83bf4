package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trendpush/internal/app"
	"trendpush/internal/pipeline"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Push the current report once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := app.New(cfgm, app.Options{Version: version})
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.RunOnce(ctx)
		if err != nil {
			return err
		}
		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
		} else {
			printOutcome(out)
		}
		if !out.Skipped && !out.Succeeded() {
			return errors.New("no channel accepted the report")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the outcome as JSON")
}

func printOutcome(out pipeline.Outcome) {
	if out.Skipped {
		fmt.Printf("Skipped: %s\n", out.Reason)
	}
	if len(out.Results) > 0 {
		names := make([]string, 0, len(out.Results))
		for name := range out.Results {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("Channels:")
		for _, name := range names {
			status := "failed"
			if out.Results[name] {
				status = "ok"
			}
			fmt.Printf("  %s: %s\n", name, status)
		}
	}
	if len(out.Diagnostics) > 0 {
		fmt.Println("Diagnostics:")
		for _, d := range out.Diagnostics {
			fmt.Printf("  %s\n", d)
		}
	}
	if out.Recorded {
		fmt.Println("Push recorded for today.")
	}
	fmt.Printf("Took %s\n", out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond))
}
