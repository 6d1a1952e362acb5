package commands

import (
	"catalogmatch/internal/components/telemetry"
	"catalogmatch/internal/config"
	"catalogmatch/internal/restyutil"
	"catalogmatch/internal/storefront"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpDir    string
)

// client is set up by rootCmd before any subcommand runs.
var client *storefront.Client

var rootCmd = &cobra.Command{
	Use:          "catalog-cli",
	Short:        "catalog-cli matches titles against the storefront catalog and shows what it knows about them.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(os.Stderr, verbose)
		tel := telemetry.SlogAPI{}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		var dump restyutil.Output
		if dumpDir != "" {
			out, err := restyutil.NewFilesystemOutput(dumpDir, tel)
			if err != nil {
				return err
			}
			dump = out
		}

		client = cfg.NewClient(tel, dump)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "The configuration file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-http", "", "Write every storefront request/response to this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func titleArg(args []string) string {
	return strings.Join(args, " ")
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}
