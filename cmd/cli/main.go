package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/receipt-service/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "receipt-service",
	Short: "Receipt Service CLI - parse receipts and check prices",
	Long: `A CLI tool for turning OCR output from store receipts into structured
line items and comparing the charged prices with current online prices.
Supports Walmart, Target and Costco receipt layouts plus a generic parser
for other stores.`,
	PersistentPreRunE: persistentPreRun,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

// persistentPreRun loads config and sets up the logger before each command
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = initLogger(cfg, os.Stderr)
	return nil
}

// initLogger writes to stderr so command output on stdout stays machine readable
func initLogger(cfg *config.Config, out io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	noColor := false
	if cfg != nil {
		level = cfg.Logging.ParseLogLevel()
		noColor = cfg.Logging.NoColor
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: noColor}).Level(level).With().Timestamp().Logger()
	return &log
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
