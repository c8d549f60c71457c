package api_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/convocation-engine/api"
	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/factory"
	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/generic/store"
	"github.com/warp/convocation-engine/sheets"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	demoRegional = []string{
		"1005", "1012", "1013", "1014", "1002", "1008", "1004",
		"1001", "1009", "1006", "1011", "1010",
	}
	demoNational5 = []string{"1010", "1011", "1006", "1004", "1015"}
)

func newHandler(opts api.Options) *api.Handler {
	if opts.Defaults.NumVagas == 0 {
		opts.Defaults = convocacao.SelectionConfig{MissionMode: convocacao.MissionRegional, NumVagas: 15}
	}
	if opts.Clock == nil {
		opts.Clock = generic.FixedClock(convocacao.DemoReferenceDate)
	}
	return api.NewHandler(opts)
}

func newRouter(opts api.Options) http.Handler {
	return api.NewRouter(newHandler(opts), api.RouterOptions{})
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	return serve(router, httptest.NewRequest(http.MethodGet, path, nil))
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return serve(router, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func selected(resp api.SelectionResponse) []string {
	out := make([]string, len(resp.Selected))
	for i, o := range resp.Selected {
		out[i] = o.Matricula
	}
	return out
}

// uploadRequest builds a multipart request with an optional file and form fields.
func uploadRequest(t *testing.T, path string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		fw, err := mw.CreateFormFile("file", "convocacao.xlsx")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func demoWorkbook(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, sheets.WriteWorkbook(&buf, convocacao.DemoData()))
	return buf.Bytes()
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	rec := get(newRouter(api.Options{}), "/api/health")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2024-03-15", body["reference_date"])
}

// =============================================================================
// SCENARIO RUNS
// =============================================================================

func TestRunScenario_Demo(t *testing.T) {
	// GIVEN: The demo scenario and an empty config
	// WHEN: Running it
	// THEN: The scenario's own mode, vagas and reference date are used

	rec := postJSON(t, newRouter(api.Options{}), "/api/selections/scenario", map[string]any{"scenario_id": "demo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.SelectionResponse](t, rec)
	_, err := uuid.Parse(resp.RunID)
	assert.NoError(t, err)
	assert.Equal(t, api.SourceScenario, resp.Source)
	assert.Equal(t, "2024-03-15", resp.ReferenceDate)
	assert.Equal(t, "REGIONAL", resp.Config.MissionMode)
	assert.Equal(t, 15, resp.Config.NumVagas)
	assert.Equal(t, 15, resp.TotalOfficers)

	assert.Equal(t, demoRegional, selected(resp))
	assert.Equal(t, 12, resp.Summary.Selected)
	assert.Equal(t, 1, resp.Summary.Forced)
	assert.Equal(t, 3, resp.Summary.Skipped)
	assert.Len(t, resp.AuditLogs, 15)

	first := resp.Selected[0]
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, "GOC", first.GrupoEspecial)
	assert.Equal(t, "50", first.HorasOperacionais)
}

func TestRunScenario_ConfigOverrides(t *testing.T) {
	rec := postJSON(t, newRouter(api.Options{}), "/api/selections/scenario", map[string]any{
		"scenario_id": "demo",
		"config":      map[string]any{"mission_mode": "nacional", "num_vagas": 5},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.SelectionResponse](t, rec)
	assert.Equal(t, demoNational5, selected(resp))
	assert.Equal(t, "Maior IFR (300h) | 12h: 30 | Último: 20/02/2024", resp.Selected[0].Justificativa)
	assert.Equal(t, "20/02/2024", resp.Selected[0].DataUltimoIfr)
}

func TestRunScenario_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing scenario id", map[string]any{}, http.StatusBadRequest},
		{"unknown scenario", map[string]any{"scenario_id": "nope"}, http.StatusNotFound},
		{"negative vagas", map[string]any{"scenario_id": "demo", "config": map[string]any{"num_vagas": -1}}, http.StatusBadRequest},
		{"unknown mode", map[string]any{"scenario_id": "demo", "config": map[string]any{"mission_mode": "estadual"}}, http.StatusBadRequest},
		{"bad reference date", map[string]any{"scenario_id": "demo", "config": map[string]any{"reference_date": "ontem"}}, http.StatusBadRequest},
	}

	router := newRouter(api.Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/selections/scenario", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decode[api.ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestRunScenario_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/selections/scenario", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(newRouter(api.Options{}), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// INLINE RUNS
// =============================================================================

func TestRunInline_National(t *testing.T) {
	// GIVEN: The demo tables posted inline with a pinned reference date
	// WHEN: Running a national selection
	// THEN: The result matches the engine's

	router := newRouter(api.Options{Clock: generic.SystemClock})
	rec := postJSON(t, router, "/api/selections", factory.RunRequestJSON{
		Config: factory.RunConfigJSON{MissionMode: "nacional", NumVagas: 5, ReferenceDate: "2024-03-15"},
		Data:   factory.FromSheetData(convocacao.DemoData()),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.SelectionResponse](t, rec)
	assert.Equal(t, api.SourceInline, resp.Source)
	assert.Equal(t, "2024-03-15", resp.ReferenceDate)
	assert.Equal(t, demoNational5, selected(resp))
}

func TestRunInline_DefaultsFromServer(t *testing.T) {
	// GIVEN: No config at all
	// WHEN: Running
	// THEN: Server defaults and the server clock apply

	rec := postJSON(t, newRouter(api.Options{}), "/api/selections", map[string]any{
		"data": factory.FromSheetData(convocacao.DemoData()),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.SelectionResponse](t, rec)
	assert.Equal(t, "2024-03-15", resp.ReferenceDate)
	assert.Equal(t, "REGIONAL", resp.Config.MissionMode)
	assert.Equal(t, demoRegional, selected(resp))
}

func TestRunInline_Errors(t *testing.T) {
	router := newRouter(api.Options{})

	t.Run("no base rows", func(t *testing.T) {
		rec := postJSON(t, router, "/api/selections", map[string]any{"data": map[string]any{"operacional": []any{}}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("no officers", func(t *testing.T) {
		rec := postJSON(t, router, "/api/selections", map[string]any{
			"data": map[string]any{"operacional": []any{map[string]any{"Servidor": "Sem matrícula"}}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/selections", strings.NewReader(`{"data": "nope"}`))
		rec := serve(router, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// XLSX FORMAT
// =============================================================================

func TestRun_XLSXFormat(t *testing.T) {
	rec := postJSON(t, newRouter(api.Options{}), "/api/selections/scenario?format=xlsx", map[string]any{"scenario_id": "demo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "convocacao_20240315.xlsx")
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Convocados", "Auditoria"}, f.GetSheetList())

	rows, err := f.GetRows("Convocados")
	require.NoError(t, err)
	assert.Equal(t, "1005", rows[8][0])
}

// =============================================================================
// UPLOAD RUNS
// =============================================================================

func TestRunUpload(t *testing.T) {
	// GIVEN: The demo workbook uploaded with form fields
	// WHEN: Running
	// THEN: The form fields configure the run

	req := uploadRequest(t, "/api/selections/upload", demoWorkbook(t), map[string]string{
		"mission_mode":   "nacional",
		"num_vagas":      "5",
		"reference_date": "15/03/2024",
	})
	rec := serve(newRouter(api.Options{Clock: generic.SystemClock}), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.SelectionResponse](t, rec)
	assert.Equal(t, api.SourceUpload, resp.Source)
	assert.Equal(t, "2024-03-15", resp.ReferenceDate)
	assert.Equal(t, demoNational5, selected(resp))
}

func TestRunUpload_Errors(t *testing.T) {
	router := newRouter(api.Options{})

	tests := []struct {
		name   string
		file   []byte
		fields map[string]string
		status int
	}{
		{"missing file", nil, map[string]string{"num_vagas": "3"}, http.StatusBadRequest},
		{"not a workbook", []byte("matricula;nome\n1;Ana\n"), nil, http.StatusBadRequest},
		{"non-numeric vagas", demoWorkbook(t), map[string]string{"num_vagas": "dez"}, http.StatusBadRequest},
		{"zero vagas", demoWorkbook(t), map[string]string{"num_vagas": "0"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, uploadRequest(t, "/api/selections/upload", tt.file, tt.fields))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRunUpload_NotMultipart(t *testing.T) {
	rec := postJSON(t, newRouter(api.Options{}), "/api/selections/upload", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SHEET RUNS
// =============================================================================

func TestRunSheet(t *testing.T) {
	// GIVEN: A sheet source that serves the demo tables
	// WHEN: Posting a full sheet URL
	// THEN: The id is extracted before the source is built

	var gotID string
	router := newRouter(api.Options{
		SheetSource: func(id string) generic.TableSource {
			gotID = id
			return store.NewMemoryFrom(convocacao.DemoData())
		},
	})

	rec := postJSON(t, router, "/api/selections/sheet", map[string]any{
		"sheet_id": "https://docs.google.com/spreadsheets/d/abc123/edit#gid=0",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "abc123", gotID)
	resp := decode[api.SelectionResponse](t, rec)
	assert.Equal(t, api.SourceSheet, resp.Source)
	assert.Equal(t, demoRegional, selected(resp))
}

func TestRunSheet_SourceErrors(t *testing.T) {
	failing := func(err error) api.SourceFunc {
		return func(string) generic.TableSource {
			return generic.TableSourceFunc(func(context.Context) (generic.SheetData, error) {
				return generic.SheetData{}, err
			})
		}
	}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not shared", &generic.FetchError{URL: "https://example.test", Status: http.StatusUnauthorized}, http.StatusBadGateway},
		{"missing base tab", &generic.TabNotFoundError{Tab: "Hrs Operacionais - Frequência"}, http.StatusUnprocessableEntity},
		{"broken workbook", generic.ErrInvalidWorkbook, http.StatusBadRequest},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(api.Options{SheetSource: failing(tt.err)})
			rec := postJSON(t, router, "/api/selections/sheet", map[string]any{"sheet_id": "abc"})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRunSheet_Validation(t *testing.T) {
	router := newRouter(api.Options{SheetSource: func(string) generic.TableSource {
		t.Fatal("source must not be built for an invalid request")
		return nil
	}})

	rec := postJSON(t, router, "/api/selections/sheet", map[string]any{"config": map[string]any{"num_vagas": 3}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSheet_NotConfigured(t *testing.T) {
	rec := postJSON(t, newRouter(api.Options{}), "/api/selections/sheet", map[string]any{"sheet_id": "abc"})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
