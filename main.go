package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheet_ledger/internal/app"
	"sheet_ledger/internal/ledger"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath    string
	token         string
	spreadsheetID string
	sheetName     string
	timeout       time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "sheet-ledger",
		Short:         "Append-and-sort ledger over a Google Sheets window",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.SetupEnvironment()
			if opts.configPath != "" {
				os.Setenv("LEDGER_CONFIG", opts.configPath)
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a TOML config file (default $LEDGER_CONFIG)")

	root.AddCommand(
		newServeCmd(),
		newAppendCmd(opts),
		newReadCmd(opts),
		newLookupCmd(opts),
	)
	return root
}

// addSheetFlags registers the flags shared by the one-shot commands.
func addSheetFlags(cmd *cobra.Command, opts *options, needSheet bool) {
	cmd.Flags().StringVar(&opts.token, "token", "", "OAuth access token (default $SHEETS_ACCESS_TOKEN)")
	cmd.Flags().StringVar(&opts.spreadsheetID, "spreadsheet", "", "spreadsheet id")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")
	_ = cmd.MarkFlagRequired("spreadsheet")
	if needSheet {
		cmd.Flags().StringVar(&opts.sheetName, "sheet", "", "sheet name")
		_ = cmd.MarkFlagRequired("sheet")
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}
}

func newAppendCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append [values...]",
		Short: "Write one record into the first empty window row and re-sort",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd.Context(), opts, func(ctx context.Context, a *app.App, st ledger.Store) (any, error) {
				return a.Ledger.Append(ctx, st, ledger.AppendRequest{
					SpreadsheetID: opts.spreadsheetID,
					SheetName:     opts.sheetName,
					Values:        args,
				})
			})
		},
	}
	addSheetFlags(cmd, opts, true)
	return cmd
}

func newReadCmd(opts *options) *cobra.Command {
	var dataRange, headerRange string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a header and data range with cell colors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd.Context(), opts, func(ctx context.Context, a *app.App, st ledger.Store) (any, error) {
				return a.Ledger.ReadFormatted(ctx, st, ledger.ReadRequest{
					SpreadsheetID: opts.spreadsheetID,
					SheetName:     opts.sheetName,
					DataRange:     dataRange,
					HeaderRange:   headerRange,
				})
			})
		},
	}
	addSheetFlags(cmd, opts, true)
	cmd.Flags().StringVar(&dataRange, "range", "", "data range (default: the append window)")
	cmd.Flags().StringVar(&headerRange, "header-range", "", "header range (default: the window header)")
	return cmd
}

func newLookupCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <list>",
		Short: "Print the options of a configured lookup list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd.Context(), opts, func(ctx context.Context, a *app.App, st ledger.Store) (any, error) {
				return a.Lookups.Fetch(ctx, st, opts.spreadsheetID, args[0])
			})
		},
	}
	addSheetFlags(cmd, opts, false)
	return cmd
}

func setup() (*app.App, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(cfg)
}

func runOneShot(ctx context.Context, opts *options, run func(context.Context, *app.App, ledger.Store) (any, error)) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	token := opts.token
	if token == "" {
		token = app.GetEnvWithDefault("SHEETS_ACCESS_TOKEN", "")
	}
	st, err := a.Sheets.OpenStore(ctx, token)
	if err != nil {
		return report(err)
	}

	out, err := run(ctx, a, st)
	if err != nil {
		return report(err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func report(err error) error {
	e := ledger.Classify(err)
	ev := log.Error().Err(err).Str("kind", string(e.Kind))
	if e.Details != "" {
		ev = ev.Str("details", e.Details)
	}
	ev.Msg(e.Message)
	if errors.Is(err, ledger.ErrAuthRequired) {
		fmt.Fprintln(os.Stderr, "an access token is required: pass --token or set SHEETS_ACCESS_TOKEN")
	}
	return err
}
