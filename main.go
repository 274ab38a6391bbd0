package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	zbxchart "github.com/jondoveston/zbxchart/internal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zbxchart",
	Short: "Fetch graph images from the Zabbix web front-end",
	Long: `zbxchart logs in to the Zabbix web front-end and downloads graph
images, which the JSON-RPC API does not expose.

The server and credentials come from flags, then ZABBIX_SERVER,
ZABBIX_USER and ZABBIX_PASSWORD, then http://localhost/zabbix, Admin
and zabbix.

Examples:
  zbxchart get 42 > graph.png
  zbxchart get --save --output /tmp/out 42 43
  zbxchart get --from "2019-08-03 16:20:04" --to now 42
  zbxchart preview 42`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
			fmt.Printf("zbxchart version %s\n", version)
			return nil
		}
		return cmd.Help()
	},
}

var getCmd = &cobra.Command{
	Use:   "get GRAPHID...",
	Short: "Download graph objects to stdout or to graph-<id>.png files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGet,
}

var previewCmd = &cobra.Command{
	Use:   "preview GRAPHID",
	Short: "Show a graph object in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var itemsCmd = &cobra.Command{
	Use:   "items ITEMID...",
	Short: "Download an ad-hoc graph of items (not implemented)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runItems,
}

var (
	logger  = logrus.New()
	metrics = zbxchart.NewMetrics()
)

func init() {
	// Connection flags are resolved by zbxchart.Resolve against ZABBIX_*
	rootCmd.PersistentFlags().String("server", "", "Zabbix front-end URL (env ZABBIX_SERVER)")
	rootCmd.PersistentFlags().String("user", "", "Zabbix user (env ZABBIX_USER)")
	rootCmd.PersistentFlags().String("password", "", "Zabbix password (env ZABBIX_PASSWORD)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP timeout, 0 for none")
	rootCmd.PersistentFlags().Bool("debug", false, "Log requests to stderr")
	rootCmd.PersistentFlags().Bool("metrics", false, "Print request metrics to stderr on exit")
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")

	// Chart flags
	for _, cmd := range []*cobra.Command{getCmd, previewCmd, itemsCmd} {
		cmd.Flags().String("from", zbxchart.DEFAULT_FROM, "Start of the time range")
		cmd.Flags().String("to", zbxchart.DEFAULT_TO, "End of the time range")
		cmd.Flags().String("width", zbxchart.DEFAULT_WIDTH, "Graph width in pixels")
		cmd.Flags().String("height", zbxchart.DEFAULT_HEIGHT, "Graph height in pixels")
	}
	getCmd.Flags().BoolP("save", "s", false, "Save to graph-<id>.png instead of stdout")
	getCmd.Flags().StringP("output", "o", "", "Directory to save into (default: working directory)")
	itemsCmd.Flags().Int("type", zbxchart.GRAPH_TYPE_STACKED, "Graph type: 1 stacked, 0 normal")

	rootCmd.AddCommand(getCmd, previewCmd, itemsCmd)

	// Configure Viper for environment variables (ZBXCHART_FROM, ZBXCHART_SAVE, ...)
	viper.SetEnvPrefix("zbxchart")
	viper.AutomaticEnv()
}

// setup binds the running command's flags to viper and configures logging
func setup(cmd *cobra.Command, args []string) error {
	for _, key := range []string{"from", "to", "width", "height", "save", "output", "type"} {
		if f := cmd.Flags().Lookup(key); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}
	}

	logger.SetOutput(os.Stderr)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func chartOptions() zbxchart.ChartOptions {
	return zbxchart.ChartOptions{
		From:       viper.GetString("from"),
		To:         viper.GetString("to"),
		Width:      viper.GetString("width"),
		Height:     viper.GetString("height"),
		Save:       viper.GetBool("save"),
		OutputPath: viper.GetString("output"),
	}
}

// explicitSettings collects the connection flags; unset flags stay empty
func explicitSettings(cmd *cobra.Command) zbxchart.Settings {
	flags := cmd.Flags()
	explicit := zbxchart.Settings{}
	explicit.BaseURL, _ = flags.GetString("server")
	explicit.Username, _ = flags.GetString("user")
	explicit.Password, _ = flags.GetString("password")
	explicit.Timeout, _ = flags.GetDuration("timeout")
	return explicit
}

func connect(ctx context.Context, cmd *cobra.Command) (*zbxchart.ChartSession, error) {
	session, err := zbxchart.Connect(ctx, explicitSettings(cmd), zbxchart.EnvFromOS(),
		zbxchart.WithLogger(logger),
		zbxchart.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Logged in to %s", session.BaseURL())
	return session, nil
}

func dumpMetrics(cmd *cobra.Command) {
	if enabled, _ := cmd.Flags().GetBool("metrics"); !enabled {
		return
	}
	if err := metrics.WriteText(os.Stderr); err != nil {
		logger.Errorf("Error writing metrics: %v", err)
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	defer dumpMetrics(cmd)

	ctx := cmd.Context()
	session, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	opts := chartOptions()
	results := make([]zbxchart.FetchResult, 0, len(args))
	var errs []error
	for _, graphID := range args {
		result, err := session.FetchGraph(ctx, graphID, opts)
		result.Err = err
		results = append(results, result)
		if err != nil {
			errs = append(errs, fmt.Errorf("graph %s: %w", graphID, err))
		}
	}

	// stdout carries the image, so the summary only goes out when saving
	if opts.Save {
		fmt.Fprintln(os.Stderr, zbxchart.RenderSummary(results))
	}
	return errors.Join(errs...)
}

func runPreview(cmd *cobra.Command, args []string) error {
	defer dumpMetrics(cmd)

	ctx := cmd.Context()
	session, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	img, err := session.FetchImage(ctx, args[0], chartOptions())
	if err != nil {
		return err
	}
	return zbxchart.Preview(fmt.Sprintf("Graph %s (q to quit)", args[0]), img)
}

func runItems(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	session, err := zbxchart.NewChartSession(zbxchart.Resolve(explicitSettings(cmd), zbxchart.EnvFromOS()),
		zbxchart.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	return session.GetByItemIDs(ctx, args, zbxchart.ItemChartOptions{
		ChartOptions: chartOptions(),
		Type:         viper.GetInt("type"),
	})
}
