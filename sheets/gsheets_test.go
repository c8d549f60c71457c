package sheets_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/sheets"
)

// fakeSheetsAPI serves the two Sheets v4 calls APISource makes.
func fakeSheetsAPI(t *testing.T, id string, tabs map[string][][]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/v4/spreadsheets/" + id:
			var props []map[string]any
			for title := range tabs {
				props = append(props, map[string]any{"properties": map[string]any{"title": title}})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": id, "sheets": props})

		case "/v4/spreadsheets/" + id + "/values:batchGet":
			q := r.URL.Query()
			assert.Equal(t, "UNFORMATTED_VALUE", q.Get("valueRenderOption"))
			assert.Equal(t, "SERIAL_NUMBER", q.Get("dateTimeRenderOption"))

			var ranges []map[string]any
			for _, rng := range q["ranges"] {
				title := strings.ReplaceAll(strings.Trim(rng, "'"), "''", "'")
				ranges = append(ranges, map[string]any{"range": rng, "values": tabs[title]})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": id, "valueRanges": ranges})

		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAPISource_LoadTables(t *testing.T) {
	// GIVEN: A spreadsheet whose tabs use other casing and no accents
	// WHEN: Loading through the Sheets API
	// THEN: Tabs are resolved and values keep their raw types

	srv := fakeSheetsAPI(t, "sheet-1", map[string][][]any{
		"HRS OPERACIONAIS - FREQUENCIA": {
			{"Matrícula", "Servidor", "Lotação", "Horas operacional"},
			{1001, "João", "DEL01", 200},
			{1002, "Maria", "DEL01 (NOE)", 150.5},
		},
		"Convocacoes Externas": {
			{"Matrícula", "Data Fim"},
			{1001, 45352},
		},
		"Resumo": {{"ignored"}},
	})
	defer srv.Close()

	src := &sheets.APISource{SheetID: "sheet-1", APIKey: "test-key", Endpoint: srv.URL + "/"}

	data, err := src.LoadTables(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Operacional, 2)
	assert.Equal(t, 1001.0, data.Operacional[0]["Matrícula"])
	assert.Equal(t, 150.5, data.Operacional[1]["Horas operacional"])
	assert.Empty(t, data.Origem)
	require.Len(t, data.Externas, 1)
	assert.NotNil(t, generic.ParseDate(data.Externas[0]["Data Fim"]))
}

func TestAPISource_MissingBaseTab(t *testing.T) {
	srv := fakeSheetsAPI(t, "sheet-2", map[string][][]any{"Origem": {{"Matrícula"}}})
	defer srv.Close()

	src := &sheets.APISource{SheetID: "sheet-2", APIKey: "test-key", Endpoint: srv.URL + "/"}

	_, err := src.LoadTables(context.Background())
	assert.ErrorIs(t, err, generic.ErrTabNotFound)
}

func TestAPISource_UnknownSheet(t *testing.T) {
	srv := fakeSheetsAPI(t, "sheet-3", nil)
	defer srv.Close()

	src := &sheets.APISource{SheetID: "other", APIKey: "test-key", Endpoint: srv.URL + "/"}

	_, err := src.LoadTables(context.Background())
	assert.ErrorIs(t, err, generic.ErrSourceUnavailable)
}
