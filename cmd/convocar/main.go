/*
convocar - one-shot command line for the convocation engine

PURPOSE:
  Runs a selection without the HTTP server: from a demo scenario, a local
  .xlsx, a Google Sheet or a SQLite snapshot. Prints a plain-text table (or
  JSON) and optionally writes the xlsx report.

COMMANDS:
  convocar run        Run a selection
  convocar scenarios  List the demo scenarios
  convocar import     Copy the four tables from any source into SQLite
  convocar export     Write the four tables from any source as a workbook

EXAMPLES:
  convocar run --scenario demo
  convocar run --file escala.xlsx --mode nacional --vagas 5 --out convocados.xlsx
  convocar run --sheet https://docs.google.com/spreadsheets/d/1A2b3C/edit --json
  convocar import --file escala.xlsx --to escala.db
  convocar run --sqlite escala.db --date 2024-03-15

CONFIGURATION:
  --config (or $CONVOCACAO_CONFIG) points at the same YAML file the server
  reads; selection defaults and the sheets section come from there.

SEE ALSO:
  - config/config.go: Configuration fields
  - convocacao/pipeline.go: What a run does
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/convocation-engine/config"
	"github.com/warp/convocation-engine/generic"
)

// app carries what every command needs once the root has initialized.
type app struct {
	out    io.Writer
	clock  generic.Clock
	cfg    *config.Config
	logger *zap.Logger

	configPath string
	verbose    bool
}

func main() {
	a := &app{out: os.Stdout, clock: generic.SystemClock}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "convocar: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "convocar",
		Short:         "Select officers for an operational mission",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file (default: $CONVOCACAO_CONFIG)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every decision")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newScenariosCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newExportCmd(a))
	return root
}

// init loads configuration and builds the logger, unless a test set them.
func (a *app) init() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		// Quiet by default: the table on stdout is the output.
		lc := a.cfg.Logging
		switch {
		case a.verbose:
			lc.Level = "debug"
		case lc.Level == "info":
			lc.Level = "warn"
		}
		logger, err := lc.NewLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = logger
	}
	return nil
}
