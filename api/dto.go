/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external API contract: decimals are rendered
  as strings, dates as dd/mm/yyyy like the report, and every selection
  response carries its run id and reference date.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Selection:
    ScenarioRunRequest, SheetRunRequest (inline runs use factory.RunRequestJSON)
    SelectionResponse, OfficerDTO

  Scenarios:
    ScenarioDTO, ScenarioDetailDTO

VALIDATION:
  Request types carry validator/v10 tags, checked by Handler.decode.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/input.go: RunConfigJSON, SheetDataJSON
*/
package api

import (
	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/factory"
	"github.com/warp/convocation-engine/generic"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ScenarioRunRequest runs a demo scenario. Config fields left empty take the
// scenario's own values, including its reference date.
type ScenarioRunRequest struct {
	ScenarioID string                `json:"scenario_id" validate:"required"`
	Config     factory.RunConfigJSON `json:"config"`
}

// SheetRunRequest runs on a remote spreadsheet, given by id or full URL.
type SheetRunRequest struct {
	SheetID string                `json:"sheet_id" validate:"required"`
	Config  factory.RunConfigJSON `json:"config"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// OfficerDTO is one selected officer, in selection order.
type OfficerDTO struct {
	Position            int    `json:"position"`
	Matricula           string `json:"matricula"`
	Nome                string `json:"nome"`
	Unidade             string `json:"unidade"`
	TipoUnidade         string `json:"tipo_unidade"`
	GrupoEspecial       string `json:"grupo_especial,omitempty"`
	HorasOperacionais   string `json:"horas_operacionais"`
	CargaHorariaIfr     string `json:"carga_horaria_ifr"`
	QtdIfr12h           int    `json:"qtd_ifr_12h"`
	DataUltimoIfr       string `json:"data_ultimo_ifr"`
	DataFimUltimaMissao string `json:"data_fim_ultima_missao"`
	Justificativa       string `json:"justificativa"`
}

// SelectionResponse is the JSON result of every selection endpoint.
type SelectionResponse struct {
	RunID         string                     `json:"run_id"`
	Source        string                     `json:"source"`
	ReferenceDate string                     `json:"reference_date"`
	Config        factory.RunConfigJSON      `json:"config"`
	TotalOfficers int                        `json:"total_officers"`
	Summary       convocacao.Summary         `json:"summary"`
	Selected      []OfficerDTO               `json:"selected"`
	AuditLogs     []convocacao.AuditLogEntry `json:"audit_logs"`
}

// ScenarioDTO describes a demo scenario without its data.
type ScenarioDTO struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	ReferenceDate string                `json:"reference_date"`
	MissionMode   string                `json:"mission_mode"`
	NumVagas      int                   `json:"num_vagas"`
	Tables        map[generic.Table]int `json:"tables"`
}

// ScenarioDetailDTO is a scenario with its four tables, ready to be posted
// back to /api/selections after editing.
type ScenarioDetailDTO struct {
	ScenarioDTO
	Data factory.SheetDataJSON `json:"data"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toOfficerDTOs(officers []*convocacao.Officer) []OfficerDTO {
	dtos := make([]OfficerDTO, len(officers))
	for i, o := range officers {
		dtos[i] = OfficerDTO{
			Position:            i + 1,
			Matricula:           o.Matricula,
			Nome:                o.Nome,
			Unidade:             o.Unidade,
			TipoUnidade:         string(o.TipoUnidade),
			GrupoEspecial:       o.GrupoEspecial,
			HorasOperacionais:   o.HorasOperacionais.String(),
			CargaHorariaIfr:     o.CargaHorariaIfr.String(),
			QtdIfr12h:           o.QtdIfr12h,
			DataUltimoIfr:       generic.FormatDate(o.DataUltimoIfr),
			DataFimUltimaMissao: generic.FormatDate(o.DataFimUltimaMissao),
			Justificativa:       o.Justificativa,
		}
	}
	return dtos
}

func toScenarioDTO(s convocacao.Scenario) ScenarioDTO {
	return ScenarioDTO{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		ReferenceDate: s.ReferenceDate.Format(dateLayout),
		MissionMode:   string(s.Config.MissionMode),
		NumVagas:      s.Config.NumVagas,
		Tables:        s.Data.Counts(),
	}
}
