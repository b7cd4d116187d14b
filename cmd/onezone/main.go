package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onedata/onezone-launcher/internal/config"
	"github.com/onedata/onezone-launcher/internal/log"
)

var (
	cfg config.Config

	flagVerbose bool // value of --verbose flag
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse the environment, setup logging
	rootCmd.PersistentPreRunE = initLauncher

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("onezone launcher failed", "error", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "onezone",
	Short:        "Container entrypoint supervising the Onezone startup",
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "up prepares the configuration, starts the zone services and awaits readiness",
	RunE:  doUp,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of the launcher",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("onezone: version info not available")
			return
		}

		fmt.Printf("onezone: %s\n", info.Main.Version)
		fmt.Printf("go:      %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:  %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:    %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:   %s\n", s.Value)
			}
		}
	},
}

func initLauncher(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.FromEnv()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if flagVerbose || cfg.DebugMode {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(os.Stderr, level))

	slog.Debug("onezone launcher", "config", fmt.Sprintf("%+v", redacted(cfg)))
	return nil
}

// redacted hides the passphrase from debug output.
func redacted(c config.Config) config.Config {
	if c.EmergencyPassphrase != "" {
		c.EmergencyPassphrase = "***"
	}
	return c
}
