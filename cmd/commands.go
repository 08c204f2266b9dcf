package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/daemon"
	"github.com/oystub/barbershop/shell"
)

var (
	runFor     time.Duration
	listenAddr string
	autoStart  bool
)

func init() {
	runCmd.Flags().DurationVar(&runFor, "for", 0, "stop the run after this long, 0 waits until max_customers is reached")
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address of the REST API")
	serveCmd.Flags().BoolVar(&autoStart, "start", false, "start a run right away")

	configCmd.AddCommand(configShowCmd, configEditCmd)
	rootCmd.AddCommand(shellCmd, runCmd, serveCmd, explainCmd, configCmd, historyCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive console (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openShop(narratingLogger())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signalContext()
		defer cancel()
		fd := os.Stdout.Fd()
		color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		err = shell.New(s, os.Stdin, colorable.NewColorableStdout(), color).Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation without the console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openShop(narratingLogger())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signalContext()
		defer cancel()
		status, err := daemon.RunFor(ctx, s, runFor)
		if err != nil {
			return err
		}
		fmt.Printf("Processed %d, failed %d, sent home %d of %d admitted customers\n",
			status.Processed, status.Failed, status.Dismissed, status.Admitted)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST control API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := serverLogger()
		s, err := openShop(logger)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signalContext()
		defer cancel()
		logger.WithField("listen", listenAddr).Info("Serving the REST API")
		return daemon.Serve(ctx, s, listenAddr, autoStart)
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain the configuration file structure",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config.Explain(os.Stdout)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration the next run will use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit <key> <value>",
	Short: "Change one key of the configuration file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(configPath); err != nil {
			return err
		}
		if _, err := config.Edit(configPath, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Config key '%s' updated to '%s'. Changes apply at the next start.\n", args[0], args[1])
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openShop(serverLogger())
		if err != nil {
			return err
		}
		defer s.Close()
		runs, err := s.Runs()
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Run", "Started", "Admitted", "Processed", "Failed", "Sent home"})
		for _, r := range runs {
			table.Append([]string{
				r.ID.String(),
				r.StartedAt.Format("2006-01-02 15:04:05"),
				fmt.Sprint(r.Admitted),
				fmt.Sprint(r.Processed),
				fmt.Sprint(r.Failed),
				fmt.Sprint(r.Dismissed),
			})
		}
		table.Render()
		return nil
	},
}
