package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/warp/convocation-engine/generic"
)

// APISource reads the four tabs through the Google Sheets API v4. Values are
// requested unformatted with dates as serial numbers, which is what the
// value parsers expect.
type APISource struct {
	SheetID  string
	APIKey   string
	Endpoint string // overrides the API base URL, e.g. for tests
	Options  []option.ClientOption
}

// LoadTables implements generic.TableSource.
func (s *APISource) LoadTables(ctx context.Context) (generic.SheetData, error) {
	id := ExtractSheetID(s.SheetID)
	if id == "" {
		return generic.SheetData{}, fmt.Errorf("%w: sheet id is required", generic.ErrInvalidInput)
	}

	srv, err := gsheets.NewService(ctx, s.clientOptions()...)
	if err != nil {
		return generic.SheetData{}, fmt.Errorf("%w: sheets client: %w", generic.ErrSourceUnavailable, err)
	}

	spreadsheet, err := srv.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return generic.SheetData{}, fmt.Errorf("%w: get spreadsheet %s: %w", generic.ErrSourceUnavailable, id, err)
	}
	var titles []string
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}

	// Resolve tabs, then fetch them all in one batch.
	var tables []generic.Table
	var ranges []string
	for _, table := range generic.Tables {
		title, ok := FindTab(titles, table.TabName())
		if !ok {
			if table.IsBase() {
				return generic.SheetData{}, &generic.TabNotFoundError{Tab: table.TabName(), Available: titles}
			}
			continue
		}
		tables = append(tables, table)
		ranges = append(ranges, quoteSheetName(title))
	}

	batch, err := srv.Spreadsheets.Values.BatchGet(id).
		Ranges(ranges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return generic.SheetData{}, fmt.Errorf("%w: read values %s: %w", generic.ErrSourceUnavailable, id, err)
	}
	if len(batch.ValueRanges) != len(tables) {
		return generic.SheetData{}, fmt.Errorf("%w: asked for %d ranges, got %d",
			generic.ErrSourceUnavailable, len(tables), len(batch.ValueRanges))
	}

	var data generic.SheetData
	for i, vr := range batch.ValueRanges {
		data.Set(tables[i], RowsToRecords(vr.Values))
	}
	return data, nil
}

func (s *APISource) clientOptions() []option.ClientOption {
	opts := append([]option.ClientOption(nil), s.Options...)
	if s.APIKey != "" {
		opts = append(opts, option.WithAPIKey(s.APIKey))
	}
	if s.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.Endpoint))
	}
	return opts
}

// quoteSheetName turns a tab title into an A1 range covering the whole tab.
func quoteSheetName(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
