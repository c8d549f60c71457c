// Package convocacao implements the officer convocation pipeline: merging the
// four source tables into officers, ranking them by mission mode and greedily
// selecting under unit quotas and team-integrity rules, with an audit trail
// explaining every decision.
package convocacao

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/convocation-engine/generic"
)

// =============================================================================
// RULE CONSTANTS
// =============================================================================

const (
	// QuarantineDays is the minimum interstice after an external mission before
	// an officer is eligible for a national mission again.
	QuarantineDays = 180

	// QuotaDelegacia is the slot limit per Delegacia-type unit.
	QuotaDelegacia = 2

	// QuotaOther is the slot limit per Núcleo/Seção unit.
	QuotaOther = 1

	// MobilizationThreshold is the number of ranked picks from one special group
	// that triggers mobilization of the rest of the team.
	MobilizationThreshold = 2

	// MaxGroupSize caps how many officers of one special group a run selects.
	MaxGroupSize = 4
)

// SpecialGroups lists the tactical-team codes, in match priority order.
var SpecialGroups = []string{"NOE", "GOC", "GMP", "GPT", "GFT"}

// IsSpecialGroup reports whether code is one of SpecialGroups.
func IsSpecialGroup(code string) bool {
	if code == "" {
		return false
	}
	for _, g := range SpecialGroups {
		if g == code {
			return true
		}
	}
	return false
}

// =============================================================================
// UNIT TYPE
// =============================================================================

// UnitType classifies a unit label for the per-unit quota.
type UnitType string

const (
	UnitDelegacia UnitType = "Delegacia"
	UnitNucleo    UnitType = "Núcleo"
	UnitSecao     UnitType = "Seção"
)

// Quota returns the per-unit slot limit for this unit type.
func (u UnitType) Quota() int {
	if u == UnitDelegacia {
		return QuotaDelegacia
	}
	return QuotaOther
}

// =============================================================================
// MISSION MODE
// =============================================================================

// MissionMode selects the comparator and the eligibility filters of a run.
type MissionMode string

const (
	// MissionRegional ranks least operational hours first; quarantine does not apply.
	MissionRegional MissionMode = "REGIONAL"
	// MissionNational ranks most IFR-qualified first; quarantined officers are skipped.
	MissionNational MissionMode = "NATIONAL"
)

// ParseMissionMode accepts "regional", "national" or "nacional" in any case.
func ParseMissionMode(s string) (MissionMode, error) {
	switch generic.NormalizeKey(s) {
	case "regional":
		return MissionRegional, nil
	case "national", "nacional":
		return MissionNational, nil
	}
	return "", fmt.Errorf("%w: %q", generic.ErrUnknownMissionMode, s)
}

// Label is the pt-BR name used in reports.
func (m MissionMode) Label() string {
	switch m {
	case MissionRegional:
		return "Regional"
	case MissionNational:
		return "Nacional"
	}
	return string(m)
}

// =============================================================================
// OFFICER - Canonical entity, one per identifier
// =============================================================================

// Officer is one deployable person, merged from the four source tables.
// Everything except Justificativa is fixed at merge time.
type Officer struct {
	ID            string   `json:"id"`
	Matricula     string   `json:"matricula"`
	Nome          string   `json:"nome"`
	Unidade       string   `json:"unidade"`
	TipoUnidade   UnitType `json:"tipo_unidade"`
	GrupoEspecial string   `json:"grupo_especial"`

	HorasOperacionais decimal.Decimal `json:"horas_operacionais"`
	CargaHorariaIfr   decimal.Decimal `json:"carga_horaria_ifr"`
	QtdIfr12h         int             `json:"qtd_ifr_12h"`
	DataUltimoIfr     *time.Time      `json:"data_ultimo_ifr"`

	DataFimUltimaMissao *time.Time `json:"data_fim_ultima_missao"`
	EmQuarentena        bool       `json:"em_quarentena"`
	Restricao           bool       `json:"restricao"`

	// Set once, when the officer is selected.
	Justificativa string `json:"justificativa"`
}

// IsQuotaExempt reports whether the per-unit quota is waived for this officer.
func (o *Officer) IsQuotaExempt() bool { return IsSpecialGroup(o.GrupoEspecial) }

// =============================================================================
// AUDIT LOG
// =============================================================================

// AuditStatus is the outcome recorded for one candidate.
type AuditStatus string

const (
	StatusSelected AuditStatus = "selected"
	StatusSkipped  AuditStatus = "skipped"
	StatusForced   AuditStatus = "forced"
)

// AuditLogEntry records one accept/skip/force decision.
type AuditLogEntry struct {
	Matricula string      `json:"matricula"`
	Nome      string      `json:"nome"`
	Status    AuditStatus `json:"status"`
	Reason    string      `json:"reason"`
}

// Audit reasons. User-facing, pt-BR.
const (
	ReasonRestriction  = "Restrição Administrativa/Médica"
	ReasonQuarantine   = "Quarentena (< 180 dias da última missão)"
	ReasonExemptSuffix = " (isento de cota)"
)

func reasonUnitQuota(unidade string) string {
	return fmt.Sprintf("Cota Unidade (%s) Excedida", unidade)
}

func reasonGroupComplete(group string) string {
	return fmt.Sprintf("Equipe %s completa (%d/%d)", group, MaxGroupSize, MaxGroupSize)
}

// =============================================================================
// SELECTION CONFIG & RESULT
// =============================================================================

// SelectionConfig is what a caller chooses per run: ranking mode and open slots.
type SelectionConfig struct {
	MissionMode MissionMode `json:"mission_mode"`
	NumVagas    int         `json:"num_vagas"`
}

// Validate checks the configuration. Select itself does not call this;
// validating is the caller's job.
func (c SelectionConfig) Validate() error {
	if c.MissionMode != MissionRegional && c.MissionMode != MissionNational {
		return fmt.Errorf("%w: %q", generic.ErrUnknownMissionMode, c.MissionMode)
	}
	if c.NumVagas <= 0 {
		return fmt.Errorf("%w: got %d", generic.ErrInvalidSlots, c.NumVagas)
	}
	return nil
}

// SelectionResult holds the selected officers in the order they were added,
// and the audit log in processing order.
type SelectionResult struct {
	Selected  []*Officer      `json:"selected"`
	AuditLogs []AuditLogEntry `json:"audit_logs"`
}

// Summary is a count of the decisions in a result.
type Summary struct {
	Selected int            `json:"selected"`
	Ranked   int            `json:"ranked"`
	Forced   int            `json:"forced"`
	Skipped  int            `json:"skipped"`
	ByGroup  map[string]int `json:"by_group"`
	ByUnit   map[string]int `json:"by_unit"`
}

// Summary tallies the result.
func (r *SelectionResult) Summary() Summary {
	s := Summary{
		Selected: len(r.Selected),
		ByGroup:  make(map[string]int),
		ByUnit:   make(map[string]int),
	}
	for _, e := range r.AuditLogs {
		switch e.Status {
		case StatusSelected:
			s.Ranked++
		case StatusForced:
			s.Forced++
		case StatusSkipped:
			s.Skipped++
		}
	}
	for _, o := range r.Selected {
		s.ByUnit[o.Unidade]++
		if o.GrupoEspecial != "" {
			s.ByGroup[o.GrupoEspecial]++
		}
	}
	return s
}

// SkippedLogs returns only the skip decisions, in order.
func (r *SelectionResult) SkippedLogs() []AuditLogEntry {
	var out []AuditLogEntry
	for _, e := range r.AuditLogs {
		if e.Status == StatusSkipped {
			out = append(out, e)
		}
	}
	return out
}

// classifyUnit maps an upper-cased unit label to its type.
func classifyUnit(label string) UnitType {
	if strings.Contains(label, "DEL") {
		return UnitDelegacia
	}
	return UnitNucleo
}

// specialGroupOf returns the first special-group code contained in the label.
func specialGroupOf(label string) string {
	for _, g := range SpecialGroups {
		if strings.Contains(label, g) {
			return g
		}
	}
	return ""
}
