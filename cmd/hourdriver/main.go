// Entry point for hourdriver, the state-change driver: it polls a
// hourmaster /state endpoint and launches plugin executables when the
// operating state changes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/hourmaster/driver"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hourdriver",
		Short: "Polls a hourmaster service and launches plugins on state changes",
		Long: `hourdriver polls the current activity-debt state of a hourmaster
service at a fixed period and dispatches to plugin executables discovered
in the plugins directory. Each plugin is a YAML manifest listing its
triggers, paired with a like-named executable.`,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(pluginsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		period     time.Duration
		timeout    time.Duration
		pluginsDir string
		token      string
	)
	cmd := &cobra.Command{
		Use:   "run <state-url>",
		Short: "Start the polling loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			slog.SetDefault(logger)

			targets, err := driver.DiscoverPlugins(pluginsDir, logger)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				logger.Warn("no plugins discovered, driver will only log state changes", "dir", pluginsDir)
			}

			if token == "" {
				token = os.Getenv("HOURMASTER_TOKEN")
			}
			source := driver.NewHTTPSource(args[0], token, timeout)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			dispatchTargets := make([]driver.Target, len(targets))
			for i, t := range targets {
				dispatchTargets[i] = t
			}
			driver.New(source, dispatchTargets, driver.Options{
				Period:          period,
				DispatchTimeout: timeout,
				Logger:          logger,
			}).Run(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVarP(&period, "period", "p", time.Minute, "state polling period")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request and per-plugin timeout")
	cmd.Flags().StringVarP(&pluginsDir, "plugins-dir", "d", "./plugins", "plugins directory")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for the state endpoint (or HOURMASTER_TOKEN)")
	return cmd
}

func pluginsCmd() *cobra.Command {
	var pluginsDir string
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List discovered plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			targets, err := driver.DiscoverPlugins(pluginsDir, logger)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				fmt.Println("No plugins found.")
				return nil
			}
			bold := color.New(color.Bold)
			for _, t := range targets {
				names := make([]string, 0, len(t.Triggers()))
				for _, tr := range t.Triggers() {
					names = append(names, string(tr))
				}
				bold.Print(t.Name())
				fmt.Printf("  %s  (%s)\n", t.Path(), strings.Join(names, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&pluginsDir, "plugins-dir", "d", "./plugins", "plugins directory")
	return cmd
}
