package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ja7ad/energylog/internal/config"
	"github.com/ja7ad/energylog/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		cfg     = config.Default()
	)

	root := &cobra.Command{
		Use:   "energylog [FILE]...",
		Short: "Energy estimation from device on/off and dimmer logs",
		Long: `energylog reads raw device logs, one record per line:

  <unix-epoch> TurnOff
  <unix-epoch> Delta <+|-><level change>

It deduplicates and orders the records, replays them against a consumer of the
given max power and prints the energy used in Watt-hours. Input comes from the
listed files, from a Kafka topic, or from stdin until a line containing the EOF
marker.

Examples:
  printf '1544206562 TurnOff\n1544206563 Delta +0.5\n1544210163 TurnOff\nEOF\n' | energylog
  energylog --kind heater --max-power 2000 -f json -o out/heater.json heater.log
  energylog --kafka-brokers kafka:9092 --kafka-topic bulb-events --kafka-idle-timeout 10s
  energylog serve --addr :8080`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := loaded.ApplyFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			logging.Init(os.Stderr, loaded.Log.JSON, logging.ParseLevel(loaded.Log.Level))
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML configuration file")
	config.BindLogFlags(root.PersistentFlags())
	bindEstimateFlags(root)

	estimate := &cobra.Command{
		Use:   "estimate [FILE]...",
		Short: "Estimate the energy used by one device (default command)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	bindEstimateFlags(estimate)

	events := &cobra.Command{
		Use:   "events [FILE]...",
		Short: "Print the normalized, deduplicated event keys in order",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	config.BindDeviceFlags(events.Flags())
	config.BindInputFlags(events.Flags())

	serve := &cobra.Command{
		Use:   "serve [FILE]...",
		Short: "Serve the ingest/estimate HTTP API for one device, preloading FILEs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg, args)
		},
	}
	config.BindDeviceFlags(serve.Flags())
	config.BindServerFlags(serve.Flags())
	serve.Flags().String(config.FlagEOFMarker, config.Default().Input.EOFMarker, "stop reading preload files at this marker")

	root.AddCommand(estimate, events, serve)
	return root
}

func bindEstimateFlags(cmd *cobra.Command) {
	config.BindDeviceFlags(cmd.Flags())
	config.BindInputFlags(cmd.Flags())
	config.BindOutputFlags(cmd.Flags())
}
