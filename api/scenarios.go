/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Lists and serves the pre-built scenarios from convocacao/demo.go so a
  frontend (or curl) can show what the engine does without a spreadsheet.

AVAILABLE SCENARIOS:

	demo:              The reference workbook, regional, 15 vagas
	noe-mobilization:  NOE members at ranks 1, 2, 5 and 9; the second pick mobilizes the team
	unit-quota:        Five officers of one Delegacia and three of a Núcleo, 8 vagas

USAGE VIA API:

	GET  /api/scenarios
	GET  /api/scenarios/noe-mobilization
	POST /api/selections/scenario
	{"scenario_id": "unit-quota", "config": {"num_vagas": 4}}

ADDING NEW SCENARIOS:
 1. Add an entry to convocacao.Scenarios
 2. Nothing here changes: handlers iterate the list

SEE ALSO:
  - convocacao/demo.go: Scenario data
  - handlers.go: RunScenario
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/factory"
)

// ListScenarios returns every demo scenario without its data.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all := convocacao.Scenarios()
	dtos := make([]ScenarioDTO, len(all))
	for i, s := range all {
		dtos[i] = toScenarioDTO(s)
	}
	render.JSON(w, r, dtos)
}

// GetScenario returns one scenario with its tables.
// GET /api/scenarios/{id}
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	s, err := convocacao.FindScenario(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Scenario not found", err)
		return
	}
	render.JSON(w, r, ScenarioDetailDTO{
		ScenarioDTO: toScenarioDTO(s),
		Data:        factory.FromSheetData(s.Data),
	})
}
