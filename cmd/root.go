package cmd

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/runlog"
	"github.com/oystub/barbershop/shop"
)

var (
	configPath string
	dbPath     string
	logDir     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "barbershop",
	Short: "Sleeping barber crawler simulation",
	Long: `A barber serves URL customers from a bounded waiting room while a
producer brings new ones: seed URLs first, then links found on served pages.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return shellCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "barbershop.db", "sqlite database for run history, empty to disable")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "logs", "directory for per-run logs, empty to disable")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also narrate debug events")
}

func EntryPoint() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func level() log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// narratingLogger writes nothing itself, the console hook tells the story.
func narratingLogger() *log.Logger {
	logger := log.New()
	logger.Out = ioutil.Discard
	logger.SetLevel(log.DebugLevel)
	logger.AddHook(runlog.NewConsoleHook(level()))
	return logger
}

func serverLogger() *log.Logger {
	logger := log.New()
	logger.Out = os.Stderr
	logger.SetLevel(level())
	logger.Formatter = &log.TextFormatter{FullTimestamp: true}
	return logger
}

// openShop makes sure a configuration file exists and opens the shop.
func openShop(logger *log.Logger) (*shop.Shop, error) {
	if err := ensureConfig(configPath); err != nil {
		return nil, err
	}
	return shop.Open(shop.Options{
		ConfigPath: configPath,
		DbPath:     dbPath,
		LogDir:     logDir,
		Log:        logger,
	})
}

func ensureConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "checking %s", path)
	}
	if _, err := os.Stat(config.BackupPath(path)); err == nil {
		return nil
	}
	if err := config.Save(path, config.Default()); err != nil {
		return errors.Wrapf(err, "creating default config %s", path)
	}
	fmt.Fprintf(os.Stderr, "Created default configuration in %s\n", path)
	return nil
}
