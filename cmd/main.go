package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&confPath, "conf", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn or error); overrides the configuration")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "include timestamps in log lines")
}

var (
	rootCmd = &cobra.Command{
		Use:   "ifprobe",
		Short: "Inspect the network interfaces on this host.",
		Long: "ifprobe lists interface addresses over rtnetlink, reads link types and\n" +
			"speeds from sysfs and can export the result over HTTP and Prometheus.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			conf, err = loadConf(confPath)
			if err != nil {
				return err
			}

			level := conf.LogLevel
			if logLevelFlag != "" {
				level = logLevelFlag
			}
			return setLogLevel(level)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	confCmd = &cobra.Command{
		Use:   "conf",
		Short: "Print the effective configuration.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(conf.withDefaults())
		},
	}

	confPath     string
	logLevelFlag string
	logTimeFlag  bool
	builtCommit  = "dev"

	conf = &Config{}
)

func init() {
	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add the different sub-commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(confCmd)
	rootCmd.AddCommand(addrsCmd)
	rootCmd.AddCommand(typeCmd)
	rootCmd.AddCommand(speedCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   true,
		Level:       logLevel,
		ReplaceAttr: logReplacements,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
