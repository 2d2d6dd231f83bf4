package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trendpush/internal/channels"
	"trendpush/pkg/logx"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List configured channels and their account counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgm.Get()
		settings, err := cfg.ChannelSettings()
		if err != nil {
			return err
		}
		profiles, err := cfg.Profiles()
		if err != nil {
			return err
		}
		chs, errs := channels.Resolve(settings, profiles, channels.NewSenders(settings, channels.SenderOptions{}), logx.Nop())
		if len(chs) == 0 && len(errs) == 0 {
			fmt.Println("No channel configured.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CHANNEL\tACCOUNTS\tBUDGET\tINTERVAL")
		for _, ch := range chs {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", ch.Name, len(ch.Accounts), ch.Profile.ByteBudget, ch.Interval)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, err := range errs {
			fmt.Printf("invalid: %v\n", err)
		}
		return nil
	},
}
