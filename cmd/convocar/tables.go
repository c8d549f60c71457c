package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/sheets"
	"github.com/warp/convocation-engine/store/sqlite"
)

// =============================================================================
// SCENARIOS
// =============================================================================

func newScenariosCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the demo scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCRITÉRIO\tVAGAS\tPOLICIAIS\tREFERÊNCIA\tDESCRIÇÃO")
			for _, s := range convocacao.Scenarios() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
					s.ID, s.Config.MissionMode.Label(), s.Config.NumVagas, len(s.Data.Operacional),
					s.ReferenceDate.Format(generic.DateLayoutBR), s.Description)
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// IMPORT - any source into SQLite
// =============================================================================

func newImportCmd(a *app) *cobra.Command {
	var (
		source sourceFlags
		to     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the four tables into a SQLite snapshot",
		Long: `Import reads the four tables from one source and replaces them in the
SQLite database given by --to. Later runs can use --sqlite to work offline
on exactly that snapshot.`,
		Example: `  convocar import --sheet 1A2b3C --to escala.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if source.sqlite != "" {
				return errors.New("--sqlite is not a valid import source")
			}
			src, err := source.open(a.cfg)
			if err != nil {
				return err
			}
			defer closeSource(src, &err)

			data, err := generic.Load(cmd.Context(), src)
			if err != nil {
				return err
			}

			db, err := sqlite.New(to)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := db.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			started := time.Now()
			if err := db.ImportSheetData(cmd.Context(), data); err != nil {
				return err
			}
			counts, err := db.Tables(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("import complete", zap.String("source", src.name), zap.String("to", to),
				zap.Duration("duration", time.Since(started)))

			return printCounts(cmd, to, counts)
		},
	}

	source.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "SQLite database to write")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// =============================================================================
// EXPORT - any source as a workbook
// =============================================================================

func newExportCmd(a *app) *cobra.Command {
	var (
		source sourceFlags
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the four tables as a source workbook",
		Long: `Export reads the four tables from one source and writes them as an .xlsx
with the tab names the readers expect. Useful as a template: export a
demo scenario, edit it, run it with --file.`,
		Example: `  convocar export --scenario demo --out modelo.xlsx`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			src, err := source.open(a.cfg)
			if err != nil {
				return err
			}
			defer closeSource(src, &err)

			data, err := generic.Load(cmd.Context(), src)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			if err := sheets.WriteWorkbook(f, data); err != nil {
				return err
			}

			return printCounts(cmd, out, data.Counts())
		},
	}

	source.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Workbook to write")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func printCounts(cmd *cobra.Command, dest string, counts map[generic.Table]int) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s:\n", dest)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range generic.Tables {
		fmt.Fprintf(tw, "  %s\t%d\n", t.TabName(), counts[t])
	}
	return tw.Flush()
}
