/*
Package sheets reads the four source tables from spreadsheets and writes
selection reports back out as xlsx.

PURPOSE:
  The convocation workbook is maintained by hand in Google Sheets. This
  package turns it (as an uploaded .xlsx, a Google export download or a
  Sheets API read) into a generic.SheetData snapshot, and renders a run as
  an xlsx report.

TAB LOOKUP:
  Tabs are matched by normalized name, so " ORIGEM ", "Origem" and "origem"
  are the same tab and "Restricoes" matches "Restrições".

    Hrs Operacionais - Frequência   required (base table)
    Origem                          optional
    Convocações Externas            optional
    Restrições                      optional

ROW SHAPE:
  The first non-empty row is the header. Every later non-empty row becomes a
  record keyed by header text. Empty cells are omitted, so a blank cell is
  the same as an absent column. Cells are read raw: a date-formatted cell
  arrives as its serial number and numeric text becomes float64.

WRITING:
  WriteWorkbook lays a snapshot out as a source workbook (demo templates,
  sqlite exports). WriteResult renders a run as a two-tab report.

SEE ALSO:
  - export.go: Google Sheets xlsx export download
  - gsheets.go: Google Sheets API v4 reader
  - generic/parse.go: Interprets the raw cell values
*/
package sheets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
)

// =============================================================================
// READING
// =============================================================================

// ReadWorkbook reads the four source tables from an xlsx stream.
func ReadWorkbook(r io.Reader) (generic.SheetData, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return generic.SheetData{}, fmt.Errorf("%w: %w", generic.ErrInvalidWorkbook, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	var data generic.SheetData
	for _, table := range generic.Tables {
		name, ok := FindTab(names, table.TabName())
		if !ok {
			if table.IsBase() {
				return generic.SheetData{}, &generic.TabNotFoundError{Tab: table.TabName(), Available: names}
			}
			continue
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return generic.SheetData{}, fmt.Errorf("%w: read tab %q: %w", generic.ErrInvalidWorkbook, name, err)
		}
		data.Set(table, RowsToRecords(toAny(rows)))
	}
	return data, nil
}

// FindTab returns the sheet whose normalized name equals target's.
func FindTab(names []string, target string) (string, bool) {
	want := generic.NormalizeKey(target)
	for _, n := range names {
		if generic.NormalizeKey(n) == want {
			return n, true
		}
	}
	return "", false
}

// RowsToRecords turns a grid into records: the first non-empty row is the
// header, columns with an empty header are ignored.
func RowsToRecords(rows [][]any) []generic.RawRecord {
	var header []string
	var records []generic.RawRecord
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		if header == nil {
			header = make([]string, len(row))
			for i, c := range row {
				header[i] = strings.TrimSpace(generic.ParseString(c))
			}
			continue
		}

		rec := make(generic.RawRecord, len(row))
		for i, c := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if v, ok := cellValue(c); ok {
				rec[header[i]] = v
			}
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records
}

// cellValue drops empty cells and turns numeric text into float64.
func cellValue(c any) (any, bool) {
	s, ok := c.(string)
	if !ok {
		return c, c != nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	return s, true
}

func isEmptyRow(row []any) bool {
	for _, c := range row {
		if _, ok := cellValue(c); ok {
			return false
		}
	}
	return true
}

func toAny(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, c := range row {
			out[i][j] = c
		}
	}
	return out
}

// =============================================================================
// FILE SOURCE
// =============================================================================

// FileSource reads a workbook from disk.
type FileSource struct {
	Path string
}

// LoadTables implements generic.TableSource.
func (s FileSource) LoadTables(ctx context.Context) (generic.SheetData, error) {
	fh, err := os.Open(s.Path)
	if err != nil {
		return generic.SheetData{}, fmt.Errorf("%w: %w", generic.ErrInvalidWorkbook, err)
	}
	defer fh.Close()
	return ReadWorkbook(fh)
}

// BytesSource reads a workbook held in memory, e.g. an upload.
type BytesSource []byte

// LoadTables implements generic.TableSource.
func (b BytesSource) LoadTables(ctx context.Context) (generic.SheetData, error) {
	return ReadWorkbook(bytes.NewReader(b))
}

// =============================================================================
// WRITING SOURCE TABLES
// =============================================================================

// WriteWorkbook writes a snapshot as a source workbook, one tab per table
// under its TabName. Each tab's header is the sorted union of its records'
// keys. ReadWorkbook on the output returns the same records, except that
// numeric text comes back as float64.
func WriteWorkbook(w io.Writer, data generic.SheetData) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for _, t := range generic.Tables {
		name := t.TabName()
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		records := data.Get(t)
		if len(records) == 0 {
			continue
		}
		header := headerOf(records)
		if err := setRow(f, name, 1, header); err != nil {
			return err
		}
		for i, r := range records {
			row := make([]any, len(header))
			for j, k := range header {
				row[j] = r[k.(string)]
			}
			if err := setRow(f, name, i+2, row); err != nil {
				return err
			}
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func headerOf(records []generic.RawRecord) []any {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	header := make([]any, len(keys))
	for i, k := range keys {
		header[i] = k
	}
	return header
}

// =============================================================================
// REPORT
// =============================================================================

const (
	sheetSelected = "Convocados"
	sheetAudit    = "Auditoria"
	reportTitle   = "Relatório de Convocação"
)

// ReportMeta is the header information of a report.
type ReportMeta struct {
	RunID         string
	MissionMode   convocacao.MissionMode
	NumVagas      int
	ReferenceDate time.Time
}

var selectedHeader = []any{
	"Matrícula", "Nome", "Unidade", "Grupo", "H. Ops", "H. IFR", "Qtd IFR 12h", "Último IFR", "Justificativa Técnica",
}

var auditHeader = []any{"Matrícula", "Policial", "Status", "Motivo"}

// WriteResult writes an xlsx report with the selected officers and the full
// audit log.
func WriteResult(w io.Writer, result *convocacao.SelectionResult, meta ReportMeta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetSelected); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetAudit); err != nil {
		return err
	}

	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFCC00"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"003399"}},
	})
	if err != nil {
		return err
	}

	// Convocados: info block, then one row per selected officer
	info := [][]any{
		{reportTitle},
		{"Critério de Aplicação", meta.MissionMode.Label()},
		{"Vagas", meta.NumVagas},
		{"Data de Referência", meta.ReferenceDate.UTC().Format(generic.DateLayoutBR)},
		{"Total Convocados", len(result.Selected)},
		{"Execução", meta.RunID},
	}
	row := 1
	for _, r := range info {
		if err := setRow(f, sheetSelected, row, r); err != nil {
			return err
		}
		row++
	}
	row++

	if err := setHeader(f, sheetSelected, row, selectedHeader, headStyle); err != nil {
		return err
	}
	for _, o := range result.Selected {
		row++
		grupo := o.GrupoEspecial
		if grupo == "" {
			grupo = "-"
		}
		hOps, _ := o.HorasOperacionais.Float64()
		hIfr, _ := o.CargaHorariaIfr.Float64()
		if err := setRow(f, sheetSelected, row, []any{
			o.Matricula, o.Nome, o.Unidade, grupo, hOps, hIfr, o.QtdIfr12h,
			generic.FormatDate(o.DataUltimoIfr), o.Justificativa,
		}); err != nil {
			return err
		}
	}

	// Auditoria
	if err := setHeader(f, sheetAudit, 1, auditHeader, headStyle); err != nil {
		return err
	}
	for i, e := range result.AuditLogs {
		if err := setRow(f, sheetAudit, i+2, []any{e.Matricula, e.Nome, string(e.Status), e.Reason}); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(sheetSelected, "B", "B", 28)
	_ = f.SetColWidth(sheetSelected, "I", "I", 70)
	_ = f.SetColWidth(sheetAudit, "B", "B", 28)
	_ = f.SetColWidth(sheetAudit, "D", "D", 60)

	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func setHeader(f *excelize.File, sheet string, row int, values []any, style int) error {
	if err := setRow(f, sheet, row, values); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(values), row)
	return f.SetCellStyle(sheet, first, last, style)
}
