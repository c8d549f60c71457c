/*
Package sqlite provides a SQLite-backed TableSource.

PURPOSE:
  Lets the four source tables live in a SQLite file instead of a spreadsheet,
  e.g. when the tables are exported from another system or when a workbook
  is imported once and run many times offline. The database is an INPUT
  snapshot: runs read it, nothing about a run is ever written back.

SCHEMA:
  One SQL table per source table, named after generic.Table:

    operacional, origem, externas, restricoes

  Columns are the spreadsheet headers verbatim ("Matrícula", "Data Fim", ...),
  declared without a type so each cell keeps its storage class (TEXT, REAL,
  INTEGER, NULL). A hidden _row column keeps the import order, which the
  merger relies on for first-row-wins and stable ties.

IMPORT:
  ImportTable replaces a whole table inside one transaction. Column set is
  the sorted union of the records' keys; a record missing a key stores NULL.

LOADING:
  LoadTables reads the four tables concurrently (errgroup). NULL cells are
  omitted from the record, matching a blank spreadsheet cell. A missing
  auxiliary table is empty; a missing base table is a TabNotFoundError.

CONCURRENCY:
  Uses sync.RWMutex so an import never interleaves with a load. An in-memory
  database (":memory:") exists per connection, so the pool is pinned to one.

USAGE:
  store, err := sqlite.New("./data/convocacao.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.ImportSheetData(ctx, data)      // once
  out, err := pipeline.Execute(ctx, store, cfg) // many times

SEE ALSO:
  - generic/store.go: TableSource interface
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/convocation-engine/generic"
)

const rowColumn = "_row"

// Store is a SQLite-backed generic.TableSource.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.TableSource = (*Store)(nil)

// New opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportSheetData replaces all four tables with the snapshot.
func (s *Store) ImportSheetData(ctx context.Context, data generic.SheetData) error {
	for _, t := range generic.Tables {
		if err := s.ImportTable(ctx, t, data.Get(t)); err != nil {
			return err
		}
	}
	return nil
}

// ImportTable replaces one table with records, preserving their order.
func (s *Store) ImportTable(ctx context.Context, table generic.Table, records []generic.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	columns := columnSet(records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	name := quoteIdent(string(table))
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}

	defs := []string{quoteIdent(rowColumn) + " INTEGER PRIMARY KEY"}
	for _, c := range columns {
		defs = append(defs, quoteIdent(c))
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	if len(records) > 0 {
		quoted := []string{quoteIdent(rowColumn)}
		for _, c := range columns {
			quoted = append(quoted, quoteIdent(c))
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(quoted)), ", ")
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			name, strings.Join(quoted, ", "), placeholders))
		if err != nil {
			return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
		}
		defer stmt.Close()

		args := make([]any, len(quoted))
		for i, r := range records {
			args[0] = i
			for j, c := range columns {
				args[j+1] = toSQLValue(r[c])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert row %d into %s: %w", i, table, err)
			}
		}
	}

	return tx.Commit()
}

// columnSet returns the sorted union of the records' keys.
func columnSet(records []generic.RawRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for k := range r {
			if k == rowColumn || seen[k] {
				continue
			}
			seen[k] = true
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

func toSQLValue(v any) any {
	switch val := v.(type) {
	case nil, string, float64, int64, bool:
		return val
	case int:
		return int64(val)
	case float32:
		return float64(val)
	case decimal.Decimal:
		f, _ := val.Float64()
		return f
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// =============================================================================
// LOADING
// =============================================================================

// LoadTables implements generic.TableSource.
func (s *Store) LoadTables(ctx context.Context) (generic.SheetData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([][]generic.RawRecord, len(generic.Tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range generic.Tables {
		i, t := i, t
		g.Go(func() error {
			records, err := s.loadTable(gctx, t)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return generic.SheetData{}, err
	}

	var data generic.SheetData
	for i, t := range generic.Tables {
		data.Set(t, results[i])
	}
	return data, nil
}

// LoadTable reads one table in import order.
func (s *Store) LoadTable(ctx context.Context, table generic.Table) ([]generic.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadTable(ctx, table)
}

func (s *Store) loadTable(ctx context.Context, table generic.Table) ([]generic.RawRecord, error) {
	exists, err := s.tableExists(ctx, string(table))
	if err != nil {
		return nil, err
	}
	if !exists {
		if table.IsBase() {
			return nil, &generic.TabNotFoundError{Tab: string(table)}
		}
		return nil, nil
	}

	name := quoteIdent(string(table))
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s", name, quoteIdent(rowColumn)))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	var records []generic.RawRecord
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		rec := make(generic.RawRecord, len(columns))
		for i, c := range columns {
			if c == rowColumn || values[i] == nil {
				continue
			}
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = values[i]
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", name, err)
	}
	return n > 0, nil
}

// Tables lists the source tables present in the database with their row counts.
func (s *Store) Tables(ctx context.Context) (map[generic.Table]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[generic.Table]int)
	for _, t := range generic.Tables {
		exists, err := s.tableExists(ctx, string(t))
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(string(t))).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t, err)
		}
		counts[t] = n
	}
	return counts, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
