package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yoockh/bookbot/config"
	"github.com/yoockh/bookbot/internal/logger"
)

var (
	configPath string
	logLevel   string

	settings config.Settings
	log      *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bookctl",
	Short: "Maintain the bookbot vector index",
	Long: `bookctl loads the book summaries into the vector index and lets you
query it the same way the chat tools do.

  bookctl load-books --file book_sum.json
  bookctl search "a cozy mystery" -k 4`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		settings = cfg
		level := logLevel
		if level == "" {
			level = cfg.LogLevel
		}
		log = logger.New(level)
		log.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (defaults to LOG_LEVEL)")
}
