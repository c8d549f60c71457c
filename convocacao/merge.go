/*
merge.go - Officer merger

PURPOSE:
  Joins the four source tables on the matrícula into one Officer per person.
  The base table decides who exists; the other three only enrich.

TABLES:
  operacional (base):  who exists, unit label, operational hours
  origem:              IFR hours, 12h shift count, last four IFR dates
  externas:            end date of the last external mission (quarantine)
  restricoes:          presence = restricted

MERGE POLICY:
  - Base rows without matrícula are dropped, never entering the pipeline.
  - A matrícula repeated in the base table keeps its first row.
  - Duplicate matrículas in origem/externas: LAST row wins.
  - Empty matrículas never enter the restriction set; otherwise every
    unidentified row would mark every officer without matrícula restricted.
  - An officer absent from an auxiliary table gets that table's zero values
    (0 hours, 0 shifts, nil dates).

DERIVED FIELDS:
  Unidade:       upper-cased lotação
  TipoUnidade:   Delegacia if the label contains "DEL", else Núcleo
  GrupoEspecial: first code of SpecialGroups found in the label
  EmQuarentena:  mission end date set and less than 180 days before "now"

"NOW":
  Injected. The merger never reads the wall clock, so a run is a pure
  function of (tables, now).

SEE ALSO:
  - records.go: Typed rows decoded from normalized records
  - selection.go: Consumes the merged officers
*/
package convocacao

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/convocation-engine/generic"
)

// Merger merges source tables into officers as of a reference instant.
type Merger struct {
	Now    time.Time
	Logger *zap.Logger
}

// Merge merges the four tables as of now.
func Merge(data generic.SheetData, now time.Time) ([]*Officer, error) {
	m := &Merger{Now: now}
	return m.Merge(data)
}

// Merge joins the tables. Returns generic.ErrNoBaseRows when the base table is
// empty and generic.ErrNoOfficers when no base row has a matrícula.
func (m *Merger) Merge(data generic.SheetData) ([]*Officer, error) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}

	base := decodeAll(data.Operacional, DecodeOperational)
	origins := indexOrigins(decodeAll(data.Origem, DecodeOrigin))
	missions := indexMissions(decodeAll(data.Externas, DecodeMission))
	restricted := restrictionSet(decodeAll(data.Restricoes, DecodeRestriction))

	officers := make([]*Officer, 0, len(base))
	seen := make(map[string]bool, len(base))
	var dropped, duplicates int

	for i, op := range base {
		if op.Matricula == "" {
			dropped++
			continue
		}
		if seen[op.Matricula] {
			duplicates++
			logger.Warn("duplicate matricula in base table, keeping first row",
				zap.String("matricula", op.Matricula),
				zap.Int("row", i))
			continue
		}
		seen[op.Matricula] = true

		origin := origins[op.Matricula]
		mission := missions[op.Matricula]

		officers = append(officers, &Officer{
			ID:                  fmt.Sprintf("off-%d", i),
			Matricula:           op.Matricula,
			Nome:                op.Nome,
			Unidade:             op.Lotacao,
			TipoUnidade:         classifyUnit(op.Lotacao),
			GrupoEspecial:       specialGroupOf(op.Lotacao),
			HorasOperacionais:   op.HorasOperacionais,
			CargaHorariaIfr:     origin.CargaHorariaIfr,
			QtdIfr12h:           origin.QtdIfr12h,
			DataUltimoIfr:       origin.UltimoIfr,
			DataFimUltimaMissao: mission.DataFim,
			EmQuarentena:        inQuarantine(mission.DataFim, m.Now),
			Restricao:           restricted[op.Matricula],
		})
	}

	logger.Debug("merged source tables",
		zap.Int("base_rows", len(base)),
		zap.Int("officers", len(officers)),
		zap.Int("dropped_without_matricula", dropped),
		zap.Int("duplicates", duplicates),
		zap.Int("origin_rows", len(data.Origem)),
		zap.Int("mission_rows", len(data.Externas)),
		zap.Int("restrictions", len(restricted)))

	if len(officers) == 0 {
		return nil, fmt.Errorf("%w: %d base rows, none with matricula", generic.ErrNoOfficers, len(base))
	}
	return officers, nil
}

// inQuarantine reports whether a mission ending at end blocks national
// eligibility as of now. A future end date is always in quarantine.
func inQuarantine(end *time.Time, now time.Time) bool {
	if end == nil {
		return false
	}
	return generic.DaysSince(*end, now) < QuarantineDays
}

// Last write wins on duplicate identifiers.
func indexOrigins(rows []OriginRow) map[string]OriginRow {
	idx := make(map[string]OriginRow, len(rows))
	for _, r := range rows {
		if r.Matricula != "" {
			idx[r.Matricula] = r
		}
	}
	return idx
}

// Last write wins on duplicate identifiers.
func indexMissions(rows []MissionRow) map[string]MissionRow {
	idx := make(map[string]MissionRow, len(rows))
	for _, r := range rows {
		if r.Matricula != "" {
			idx[r.Matricula] = r
		}
	}
	return idx
}

func restrictionSet(rows []RestrictionRow) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.Matricula != "" {
			set[r.Matricula] = true
		}
	}
	return set
}
