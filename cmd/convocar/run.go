package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/factory"
	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/sheets"
)

type runOptions struct {
	source sourceFlags
	mode   string
	vagas  int
	date   string
	out    string
	json   bool
}

// runOutput is the --json document.
type runOutput struct {
	RunID         string                     `json:"run_id"`
	Source        string                     `json:"source"`
	ReferenceDate string                     `json:"reference_date"`
	Config        factory.RunConfigJSON      `json:"config"`
	Summary       convocacao.Summary         `json:"summary"`
	Selected      []*convocacao.Officer      `json:"selected"`
	AuditLogs     []convocacao.AuditLogEntry `json:"audit_logs"`
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a selection and print the convocation list",
		Long: `Run loads the four tables from one source, merges them as of the
reference date and prints the selected officers in selection order, followed
by every skipped officer and the reason.

Flags left unset take the scenario's values (with --scenario) or the
configuration defaults.`,
		Example: `  convocar run --scenario demo
  convocar run --file escala.xlsx --mode nacional --vagas 5 --out convocados.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelection(cmd, a, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Mission mode: regional | nacional")
	cmd.Flags().IntVar(&opts.vagas, "vagas", 0, "Number of open slots")
	cmd.Flags().StringVar(&opts.date, "date", "", "Reference date (YYYY-MM-DD or dd/mm/yyyy, default: today)")
	cmd.Flags().StringVar(&opts.out, "out", "", "Also write the xlsx report to this path")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON instead of a table")
	return cmd
}

func runSelection(cmd *cobra.Command, a *app, opts runOptions) (err error) {
	src, err := opts.source.open(a.cfg)
	if err != nil {
		return err
	}
	defer closeSource(src, &err)

	defaults, err := a.cfg.SelectionDefaults()
	if err != nil {
		return err
	}

	cj := factory.RunConfigJSON{MissionMode: opts.mode, NumVagas: opts.vagas, ReferenceDate: opts.date}
	if sc := src.scenario; sc != nil {
		defaults = sc.Config
		if cj.ReferenceDate == "" {
			cj.ReferenceDate = sc.ReferenceDate.Format(time.DateOnly)
		}
	}
	if cmd.Flags().Changed("vagas") && opts.vagas <= 0 {
		return fmt.Errorf("%w: got %d", generic.ErrInvalidSlots, opts.vagas)
	}

	rc, err := factory.NewInputFactory(defaults).FromJSON(cj)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := a.logger.With(zap.String("run_id", runID), zap.String("source", src.name))
	p := &convocacao.Pipeline{Clock: rc.Clock(a.clock), Logger: logger}

	out, err := p.Execute(cmd.Context(), src, rc.Selection)
	if err != nil {
		return err
	}

	if opts.out != "" {
		if err := writeReport(opts.out, runID, rc, out); err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", opts.out))
	}

	w := cmd.OutOrStdout()
	if opts.json {
		cfgJSON := factory.NewInputFactory(defaults).ToJSON(rc)
		cfgJSON.ReferenceDate = out.ReferenceDate.Format(time.RFC3339)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runOutput{
			RunID:         runID,
			Source:        src.name,
			ReferenceDate: out.ReferenceDate.Format(time.DateOnly),
			Config:        cfgJSON,
			Summary:       out.Result.Summary(),
			Selected:      out.Result.Selected,
			AuditLogs:     out.Result.AuditLogs,
		})
	}
	return printResult(w, rc.Selection, out)
}

func writeReport(path, runID string, rc factory.RunConfig, out *convocacao.Outcome) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return sheets.WriteResult(f, out.Result, sheets.ReportMeta{
		RunID:         runID,
		MissionMode:   rc.Selection.MissionMode,
		NumVagas:      rc.Selection.NumVagas,
		ReferenceDate: out.ReferenceDate,
	})
}

// printResult writes the selection and the skipped officers as aligned tables.
func printResult(w io.Writer, cfg convocacao.SelectionConfig, out *convocacao.Outcome) error {
	summary := out.Result.Summary()
	fmt.Fprintf(w, "Critério: %s | Vagas: %d | Referência: %s | Policiais: %d\n\n",
		cfg.MissionMode.Label(), cfg.NumVagas, out.ReferenceDate.Format(generic.DateLayoutBR), len(out.Officers))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMATRÍCULA\tNOME\tUNIDADE\tGRUPO\tJUSTIFICATIVA")
	for i, o := range out.Result.Selected {
		grupo := o.GrupoEspecial
		if grupo == "" {
			grupo = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, o.Matricula, o.Nome, o.Unidade, grupo, o.Justificativa)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if skipped := out.Result.SkippedLogs(); len(skipped) > 0 {
		fmt.Fprintln(w, "\nNão convocados:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MATRÍCULA\tNOME\tMOTIVO")
		for _, e := range skipped {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Matricula, e.Nome, e.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nConvocados: %d (ranking %d, mobilização %d) | Não convocados: %d\n",
		summary.Selected, summary.Ranked, summary.Forced, summary.Skipped)
	return nil
}
