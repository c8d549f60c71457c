/*
Package generic provides the domain-agnostic tabular plumbing.

PURPOSE:
  Everything in here is about spreadsheet-shaped data, not about officers.
  Source tables arrive as ragged rows keyed by whatever the header cell said
  ("Matrícula", " MATRICULA ", "matricula"), with values that may be text,
  numbers or Excel serial dates. This package turns them into something the
  domain packages can read by fixed keys.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawRecord: One row of one source table, keyed by header text
  - Table: Identifies which of the four source tables a record set belongs to
  - SheetData: The snapshot of all four tables handed to the domain pipeline

DESIGN PRINCIPLES:
  1. Never abort on a bad cell: unparseable values default, they don't fail
  2. Precision: numeric cells are decimal.Decimal, not float64
  3. Determinism: nothing depends on map iteration order or wall-clock time

USAGE:
  data := generic.SheetData{
      Operacional: []generic.RawRecord{
          {"Servidor": "João", "Matrícula": "1001", "Horas operacional": 200},
      },
  }
  rows := generic.NormalizeRecords(data.Operacional)
  hours := generic.ParseNumber(rows[0]["horas operacional"])

SEE ALSO:
  - normalize.go: Key/value canonicalization
  - parse.go: Locale-aware number and date parsing
  - store.go: TableSource interface implemented by every input collaborator
*/
package generic

import "fmt"

// =============================================================================
// RAW RECORD - One spreadsheet row
// =============================================================================

// RawRecord is one row of a source table. Values are string, a numeric type
// (float64, int, int64, decimal.Decimal) or nil/absent.
type RawRecord map[string]any

// Clone returns a shallow copy of the record.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// =============================================================================
// TABLES - The four source record sets
// =============================================================================

// Table identifies one of the four source record sets.
type Table string

const (
	// TableOperacional is the base table: one row per deployable officer.
	TableOperacional Table = "operacional"
	// TableOrigem carries IFR statistics and the last four IFR dates.
	TableOrigem Table = "origem"
	// TableExternas lists external missions and their end dates.
	TableExternas Table = "externas"
	// TableRestricoes lists officers under administrative/medical restriction.
	TableRestricoes Table = "restricoes"
)

// Tables lists the source tables in load order. The base table comes first.
var Tables = []Table{TableOperacional, TableOrigem, TableExternas, TableRestricoes}

// TabName returns the workbook tab title the table is published under.
func (t Table) TabName() string {
	switch t {
	case TableOperacional:
		return "Hrs Operacionais - Frequência"
	case TableOrigem:
		return "Origem"
	case TableExternas:
		return "Convocações Externas"
	case TableRestricoes:
		return "Restrições"
	default:
		return string(t)
	}
}

// IsBase reports whether the table is the one every officer must appear in.
func (t Table) IsBase() bool { return t == TableOperacional }

// =============================================================================
// SHEET DATA - Snapshot of all four tables
// =============================================================================

// SheetData is a snapshot of the four source tables, exactly as ingested.
type SheetData struct {
	Operacional []RawRecord `json:"operacional"`
	Origem      []RawRecord `json:"origem"`
	Externas    []RawRecord `json:"externas"`
	Restricoes  []RawRecord `json:"restricoes"`
}

// Get returns the record set for a table.
func (d SheetData) Get(t Table) []RawRecord {
	switch t {
	case TableOperacional:
		return d.Operacional
	case TableOrigem:
		return d.Origem
	case TableExternas:
		return d.Externas
	case TableRestricoes:
		return d.Restricoes
	}
	return nil
}

// Set replaces the record set for a table.
func (d *SheetData) Set(t Table, records []RawRecord) {
	switch t {
	case TableOperacional:
		d.Operacional = records
	case TableOrigem:
		d.Origem = records
	case TableExternas:
		d.Externas = records
	case TableRestricoes:
		d.Restricoes = records
	}
}

// Counts returns the number of rows per table.
func (d SheetData) Counts() map[Table]int {
	counts := make(map[Table]int, len(Tables))
	for _, t := range Tables {
		counts[t] = len(d.Get(t))
	}
	return counts
}

// Validate checks the snapshot can feed a run: the base table must have rows.
// The auxiliary tables are optional.
func (d SheetData) Validate() error {
	if len(d.Operacional) == 0 {
		return fmt.Errorf("%w: tab %q", ErrNoBaseRows, TableOperacional.TabName())
	}
	return nil
}
