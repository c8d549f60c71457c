/*
handlers.go - HTTP API handlers for the convocation engine

PURPOSE:
  Exposes the selection pipeline via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the pipeline. Handlers hold no state
  between requests: every run loads its own snapshot and returns the result.

ENDPOINTS:
  Health:
    GET    /api/health                 Liveness

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    GET    /api/scenarios/{id}         Scenario with its four tables

  Selections:
    POST   /api/selections             Inline tables + config
    POST   /api/selections/scenario    Run a demo scenario
    POST   /api/selections/sheet       Fetch a spreadsheet by id or URL
    POST   /api/selections/upload      Multipart xlsx upload ("file" field)

  Any selection endpoint accepts ?format=xlsx and then answers with the
  report workbook instead of JSON.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Factory: JSON to RunConfig conversion, with server defaults
  - Clock: reference date when a request does not pin one
  - SheetSource: builds the TableSource for a sheet id (export or API)
  - Metrics: Prometheus collectors on a private registry

REQUEST FLOW:
  1. Decode and validate the request into a TableSource + RunConfig
  2. Pipeline.Execute (load, merge, select)
  3. Record metrics, log the run
  4. Serialize as JSON or xlsx

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Bad config or undecodable input (generic.IsClientError)
  - 404: Unknown scenario
  - 422: Readable input with nothing to select from (generic.IsInputAbsent)
  - 502: Remote spreadsheet unreachable or not shared
  - 504: Source took longer than the request allows
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario handlers
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/factory"
	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/generic/store"
	"github.com/warp/convocation-engine/sheets"
)

const (
	dateLayout = "2006-01-02"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultMaxUploadBytes = 32 << 20
)

// Source labels used in responses and metrics.
const (
	SourceInline   = "inline"
	SourceScenario = "scenario"
	SourceSheet    = "sheet"
	SourceUpload   = "upload"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// SourceFunc builds the TableSource for a spreadsheet id.
type SourceFunc func(sheetID string) generic.TableSource

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Factory        *factory.InputFactory
	Clock          generic.Clock
	Logger         *zap.Logger
	SheetSource    SourceFunc
	MaxUploadBytes int64

	Registry *prometheus.Registry
	metrics  *Metrics
	validate *validator.Validate
}

// Options configures NewHandler. Zero values get usable defaults, except
// SheetSource: without it /api/selections/sheet answers 501.
type Options struct {
	Defaults       convocacao.SelectionConfig
	Clock          generic.Clock
	Logger         *zap.Logger
	SheetSource    SourceFunc
	MaxUploadBytes int64
}

// NewHandler creates a new handler.
func NewHandler(opts Options) *Handler {
	if opts.Clock == nil {
		opts.Clock = generic.SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	reg := prometheus.NewRegistry()
	return &Handler{
		Factory:        factory.NewInputFactory(opts.Defaults),
		Clock:          opts.Clock,
		Logger:         opts.Logger,
		SheetSource:    opts.SheetSource,
		MaxUploadBytes: opts.MaxUploadBytes,
		Registry:       reg,
		metrics:        NewMetrics(reg),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness and the server's current reference date.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":         "ok",
		"reference_date": h.Clock().Format(dateLayout),
	})
}

// =============================================================================
// SELECTION HANDLERS
// =============================================================================

// RunInline runs the selection on tables sent in the body.
// POST /api/selections
func (h *Handler) RunInline(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large", err)
		return
	}

	req, err := h.Factory.ParseRunRequest(body)
	if err != nil {
		h.fail(w, r, "Invalid selection request", err)
		return
	}

	h.run(w, r, SourceInline, store.NewMemoryFrom(req.Data), req.Config)
}

// RunScenario runs a demo scenario. Config fields left empty take the
// scenario's values, so an empty config reproduces the scenario exactly.
// POST /api/selections/scenario
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRunRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid scenario request", err)
		return
	}

	sc, err := convocacao.FindScenario(req.ScenarioID)
	if err != nil {
		h.fail(w, r, "Scenario not found", err)
		return
	}

	cj := req.Config
	if cj.MissionMode == "" {
		cj.MissionMode = string(sc.Config.MissionMode)
	}
	if cj.NumVagas == 0 {
		cj.NumVagas = sc.Config.NumVagas
	}
	if cj.ReferenceDate == "" {
		cj.ReferenceDate = sc.ReferenceDate.Format(dateLayout)
	}

	cfg, err := h.Factory.FromJSON(cj)
	if err != nil {
		h.fail(w, r, "Invalid configuration", err)
		return
	}

	h.run(w, r, SourceScenario, store.NewMemoryFrom(sc.Data), cfg)
}

// RunSheet fetches a remote spreadsheet and runs the selection on it.
// POST /api/selections/sheet
func (h *Handler) RunSheet(w http.ResponseWriter, r *http.Request) {
	if h.SheetSource == nil {
		writeError(w, r, http.StatusNotImplemented, "Remote spreadsheets are not configured", nil)
		return
	}

	var req SheetRunRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid sheet request", err)
		return
	}

	cfg, err := h.Factory.FromJSON(req.Config)
	if err != nil {
		h.fail(w, r, "Invalid configuration", err)
		return
	}

	h.run(w, r, SourceSheet, h.SheetSource(sheets.ExtractSheetID(req.SheetID)), cfg)
}

// RunUpload runs the selection on an uploaded workbook.
// Form fields: file (required), mission_mode, num_vagas, reference_date.
// POST /api/selections/upload
func (h *Handler) RunUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		h.fail(w, r, "Invalid upload", fmt.Errorf("%w: %w", generic.ErrInvalidInput, err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, "Missing workbook", fmt.Errorf("%w: form field \"file\": %w", generic.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, "Failed to read upload", fmt.Errorf("%w: %w", generic.ErrInvalidInput, err))
		return
	}

	cj := factory.RunConfigJSON{
		MissionMode:   r.FormValue("mission_mode"),
		ReferenceDate: r.FormValue("reference_date"),
	}
	if v := r.FormValue("num_vagas"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.fail(w, r, "Invalid configuration", fmt.Errorf("%w: num_vagas %q", generic.ErrInvalidSlots, v))
			return
		}
		if n <= 0 {
			h.fail(w, r, "Invalid configuration", fmt.Errorf("%w: got %d", generic.ErrInvalidSlots, n))
			return
		}
		cj.NumVagas = n
	}

	cfg, err := h.Factory.FromJSON(cj)
	if err != nil {
		h.fail(w, r, "Invalid configuration", err)
		return
	}

	h.run(w, r, SourceUpload, sheets.BytesSource(data), cfg)
}

// run executes the pipeline and writes the result.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, source string, src generic.TableSource, cfg factory.RunConfig) {
	runID := uuid.NewString()
	logger := h.Logger.With(
		zap.String("run_id", runID),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("source", source),
		zap.String("mode", string(cfg.Selection.MissionMode)),
		zap.Int("num_vagas", cfg.Selection.NumVagas),
	)

	p := &convocacao.Pipeline{Clock: cfg.Clock(h.Clock), Logger: logger}

	started := time.Now()
	out, err := p.Execute(r.Context(), src, cfg.Selection)
	if err != nil {
		h.metrics.observe(source, cfg.Selection.MissionMode, started, nil, err)
		logger.Warn("selection failed", zap.Error(err))
		h.fail(w, r, "Selection failed", err)
		return
	}
	h.metrics.observe(source, cfg.Selection.MissionMode, started, out.Result, nil)

	summary := out.Result.Summary()
	logger.Info("selection complete",
		zap.Time("reference_date", out.ReferenceDate),
		zap.Int("officers", len(out.Officers)),
		zap.Int("selected", summary.Selected),
		zap.Int("forced", summary.Forced),
		zap.Int("skipped", summary.Skipped),
	)

	if r.URL.Query().Get("format") == "xlsx" {
		h.writeReport(w, r, runID, cfg, out)
		return
	}

	cfgJSON := h.Factory.ToJSON(cfg)
	cfgJSON.ReferenceDate = out.ReferenceDate.Format(time.RFC3339)

	render.JSON(w, r, SelectionResponse{
		RunID:         runID,
		Source:        source,
		ReferenceDate: out.ReferenceDate.Format(dateLayout),
		Config:        cfgJSON,
		TotalOfficers: len(out.Officers),
		Summary:       summary,
		Selected:      toOfficerDTOs(out.Result.Selected),
		AuditLogs:     out.Result.AuditLogs,
	})
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, runID string, cfg factory.RunConfig, out *convocacao.Outcome) {
	var buf bytes.Buffer
	err := sheets.WriteResult(&buf, out.Result, sheets.ReportMeta{
		RunID:         runID,
		MissionMode:   cfg.Selection.MissionMode,
		NumVagas:      cfg.Selection.NumVagas,
		ReferenceDate: out.ReferenceDate,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to build report", err)
		return
	}

	filename := fmt.Sprintf("convocacao_%s.xlsx", out.ReferenceDate.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Run-ID", runID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into v and validates its struct tags.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: %w", generic.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s failed on %q", generic.ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %w", generic.ErrInvalidInput, err)
	}
	return nil
}

// fail writes err with the status of its category.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err), zap.String("path", r.URL.Path))
	}
	writeError(w, r, status, message, err)
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsInputAbsent(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generic.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}
