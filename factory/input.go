/*
Package factory provides JSON to Go conversion of run inputs.

PURPOSE:
  Converts JSON payloads into the pipeline's inputs: a generic.SheetData
  snapshot and a validated run configuration. This lets any caller (HTTP
  body, CLI file, test fixture) feed the pipeline without touching a
  spreadsheet.

JSON SCHEMA:
  {
    "config": {
      "mission_mode": "regional",      // regional | national | nacional
      "num_vagas": 10,
      "reference_date": "2024-03-15"   // optional; YYYY-MM-DD, RFC3339, dd/mm/yyyy
    },
    "data": {
      "operacional": [{"Matrícula": "1001", "Servidor": "João", "Lotação": "DEL01", "Horas operacional": 200}],
      "origem":      [...],
      "externas":    [...],
      "restricoes":  [...]
    }
  }

  Record keys are free-form spreadsheet headers. They are normalized later
  by the merger, so "Matrícula", "MATRICULA" and "matricula" all work.

DEFAULTS:
  A missing mission_mode or num_vagas falls back to the factory's Defaults
  (normally the selection section of the server config). A missing
  reference_date leaves Now zero; the caller's clock decides.

VALIDATION:
  Everything the selection engine assumes but does not check happens here:
  known mission mode, positive slot count, parseable reference date.

SEE ALSO:
  - convocacao/types.go: SelectionConfig
  - generic/types.go: SheetData
  - api/handlers.go: Decodes request bodies through this package
*/
package factory

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SheetDataJSON is the JSON representation of the four source tables.
type SheetDataJSON struct {
	Operacional []generic.RawRecord `json:"operacional"`
	Origem      []generic.RawRecord `json:"origem,omitempty"`
	Externas    []generic.RawRecord `json:"externas,omitempty"`
	Restricoes  []generic.RawRecord `json:"restricoes,omitempty"`
}

// RunConfigJSON is the JSON representation of a run configuration.
type RunConfigJSON struct {
	MissionMode   string `json:"mission_mode,omitempty"`
	NumVagas      int    `json:"num_vagas,omitempty"`
	ReferenceDate string `json:"reference_date,omitempty"`
}

// RunRequestJSON bundles a configuration with inline data.
type RunRequestJSON struct {
	Config RunConfigJSON `json:"config"`
	Data   SheetDataJSON `json:"data"`
}

// =============================================================================
// PARSED TYPES
// =============================================================================

// RunConfig is a validated run configuration.
type RunConfig struct {
	Selection convocacao.SelectionConfig
	Now       time.Time // zero when the caller did not pin a reference date
}

// Clock returns a clock pinned to Now, or fallback when Now is unset.
func (c RunConfig) Clock(fallback generic.Clock) generic.Clock {
	if !c.Now.IsZero() {
		return generic.FixedClock(c.Now)
	}
	if fallback == nil {
		return generic.SystemClock
	}
	return fallback
}

// RunRequest is a parsed RunRequestJSON.
type RunRequest struct {
	Config RunConfig
	Data   generic.SheetData
}

// =============================================================================
// INPUT FACTORY
// =============================================================================

// InputFactory converts JSON inputs to Go structs.
type InputFactory struct {
	Defaults convocacao.SelectionConfig
}

// NewInputFactory creates a factory with the given defaults.
func NewInputFactory(defaults convocacao.SelectionConfig) *InputFactory {
	return &InputFactory{Defaults: defaults}
}

// ParseSheetData parses the four tables.
func (f *InputFactory) ParseSheetData(data []byte) (generic.SheetData, error) {
	var sj SheetDataJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return generic.SheetData{}, fmt.Errorf("%w: parse sheet data: %w", generic.ErrInvalidInput, err)
	}
	return sj.ToSheetData(), nil
}

// ParseRunConfig parses and validates a run configuration.
func (f *InputFactory) ParseRunConfig(data []byte) (RunConfig, error) {
	var cj RunConfigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return RunConfig{}, fmt.Errorf("%w: parse run config: %w", generic.ErrInvalidInput, err)
	}
	return f.FromJSON(cj)
}

// ParseRunRequest parses a configuration plus inline data.
func (f *InputFactory) ParseRunRequest(data []byte) (RunRequest, error) {
	var rj RunRequestJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return RunRequest{}, fmt.Errorf("%w: parse run request: %w", generic.ErrInvalidInput, err)
	}
	cfg, err := f.FromJSON(rj.Config)
	if err != nil {
		return RunRequest{}, err
	}
	return RunRequest{Config: cfg, Data: rj.Data.ToSheetData()}, nil
}

// FromJSON applies defaults to cj and validates it.
func (f *InputFactory) FromJSON(cj RunConfigJSON) (RunConfig, error) {
	sel := f.Defaults
	if cj.MissionMode != "" {
		mode, err := convocacao.ParseMissionMode(cj.MissionMode)
		if err != nil {
			return RunConfig{}, err
		}
		sel.MissionMode = mode
	}
	if cj.NumVagas != 0 {
		sel.NumVagas = cj.NumVagas
	}
	if err := sel.Validate(); err != nil {
		return RunConfig{}, err
	}

	cfg := RunConfig{Selection: sel}
	if cj.ReferenceDate != "" {
		now, err := generic.ParseReferenceDate(cj.ReferenceDate)
		if err != nil {
			return RunConfig{}, err
		}
		cfg.Now = now
	}
	return cfg, nil
}

// ToJSON converts a RunConfig back to its JSON form.
func (f *InputFactory) ToJSON(cfg RunConfig) RunConfigJSON {
	cj := RunConfigJSON{
		MissionMode: string(cfg.Selection.MissionMode),
		NumVagas:    cfg.Selection.NumVagas,
	}
	if !cfg.Now.IsZero() {
		cj.ReferenceDate = cfg.Now.UTC().Format(time.RFC3339)
	}
	return cj
}

// ToSheetData converts the JSON tables to a snapshot.
func (sj SheetDataJSON) ToSheetData() generic.SheetData {
	return generic.SheetData{
		Operacional: sj.Operacional,
		Origem:      sj.Origem,
		Externas:    sj.Externas,
		Restricoes:  sj.Restricoes,
	}
}

// FromSheetData converts a snapshot to its JSON form.
func FromSheetData(data generic.SheetData) SheetDataJSON {
	return SheetDataJSON{
		Operacional: data.Operacional,
		Origem:      data.Origem,
		Externas:    data.Externas,
		Restricoes:  data.Restricoes,
	}
}
