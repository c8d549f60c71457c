/*
store.go - Input collaborator interface

PURPOSE:
  Defines the boundary between "where the four tables come from" and the
  pipeline. The pipeline never opens files or sockets; it is handed a
  SheetData snapshot. Every collaborator (workbook file, Google export,
  Sheets API, SQLite import, in-memory fixture) implements TableSource.

SNAPSHOT CONTRACT:
  LoadTables returns a complete snapshot. It is read once, before the run,
  and nothing is written back. There is no run persistence.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory, for tests and demo scenarios
  - store/sqlite/sqlite.go:  Tables imported into a SQLite database
  - sheets/workbook.go:      An .xlsx file or byte stream
  - sheets/export.go:        Google Sheets xlsx export download
  - sheets/gsheets.go:       Google Sheets API v4

SEE ALSO:
  - types.go: SheetData
  - convocacao/pipeline.go: Consumes the snapshot
*/
package generic

import "context"

// TableSource supplies a snapshot of the four source tables.
type TableSource interface {
	LoadTables(ctx context.Context) (SheetData, error)
}

// TableSourceFunc adapts a function to TableSource.
type TableSourceFunc func(ctx context.Context) (SheetData, error)

// LoadTables calls f(ctx).
func (f TableSourceFunc) LoadTables(ctx context.Context) (SheetData, error) { return f(ctx) }

// Load reads a snapshot from src and checks it has a base table.
func Load(ctx context.Context, src TableSource) (SheetData, error) {
	data, err := src.LoadTables(ctx)
	if err != nil {
		return SheetData{}, err
	}
	if err := data.Validate(); err != nil {
		return SheetData{}, err
	}
	return data, nil
}
