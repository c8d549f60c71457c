/*
selection.go - Selection engine

PURPOSE:
  Picks up to NumVagas officers from the merged list and records why every
  officer was selected, skipped or forced in.

PHASES (run once, in order):
  1. Eligibility: restricted officers are skipped. In NATIONAL mode officers
     in quarantine are skipped too. REGIONAL mode keeps them eligible.
  2. Rank: sort survivors with the mode's comparator.
  3. Greedy pick: walk the ranking, trying to add each candidate until the
     slot cap is reached.

ATTEMPT-ADD RULES:
  Unit quota:  2 per Delegacia, 1 per Núcleo/Seção. Officers of a special
               group are exempt from the check but still fill their unit's
               counter.
  Group cap:   At most 4 officers of one special group per run, ranked or forced.

TEAM INTEGRITY (Art. 5º):
  When a ranked pick brings its special group to exactly 2, the remaining
  eligible members of that group are forced in right away, in ranked order,
  until the group has 4, the slots run out, or no members remain:

    ranked: [NOE#1, NOE#2, X, Y, NOE#5, Z, W, V, NOE#9]
    picks:   NOE#1 (selected), NOE#2 (selected) -> NOE#5 (forced), NOE#9 (forced),
             X (selected), Y (selected), ...

STATE:
  All counters live in a selection value local to one Run call. Nothing is
  shared between runs.

SEE ALSO:
  - ranking.go: Comparators
  - merge.go: Produces the officers
*/
package convocacao

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/convocation-engine/generic"
)

// Selector runs the selection engine.
type Selector struct {
	Logger *zap.Logger
}

// Select runs the selection engine with no logging.
func Select(officers []*Officer, cfg SelectionConfig) *SelectionResult {
	return (&Selector{}).Run(officers, cfg)
}

// pickMethod tells attemptAdd whether the candidate came from the ranking or
// from team mobilization.
type pickMethod int

const (
	pickRanked pickMethod = iota
	pickForced
)

// Run selects officers. The only side effect is setting Justificativa on the
// officers it selects.
func (s *Selector) Run(officers []*Officer, cfg SelectionConfig) *SelectionResult {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	st := newSelection(cfg, logger)

	// 1. Eligibility
	candidates := make([]*Officer, 0, len(officers))
	for _, o := range officers {
		if o.Restricao {
			st.record(o, StatusSkipped, ReasonRestriction)
			continue
		}
		if cfg.MissionMode == MissionNational && o.EmQuarentena {
			st.record(o, StatusSkipped, ReasonQuarantine)
			continue
		}
		candidates = append(candidates, o)
	}

	// 2. Rank
	ranked := Rank(candidates, cfg.MissionMode)

	// 3. Greedy pick
	for _, c := range ranked {
		if st.full() {
			break
		}
		if st.selectedIDs[c.ID] {
			continue
		}
		if !st.attemptAdd(c, pickRanked, justify(c, cfg.MissionMode)) {
			continue
		}
		if g := c.GrupoEspecial; IsSpecialGroup(g) && st.groupCounts[g] == MobilizationThreshold {
			st.mobilize(g, ranked)
		}
	}

	result := &SelectionResult{Selected: st.selected, AuditLogs: st.logs}
	summary := result.Summary()
	logger.Info("selection finished",
		zap.String("mission_mode", string(cfg.MissionMode)),
		zap.Int("num_vagas", cfg.NumVagas),
		zap.Int("officers", len(officers)),
		zap.Int("eligible", len(candidates)),
		zap.Int("selected", summary.Selected),
		zap.Int("forced", summary.Forced),
		zap.Int("skipped", summary.Skipped))
	return result
}

// =============================================================================
// SELECTION STATE - local to one run
// =============================================================================

type selection struct {
	cfg    SelectionConfig
	logger *zap.Logger

	selected    []*Officer
	selectedIDs map[string]bool
	unitCounts  map[string]int
	groupCounts map[string]int
	logs        []AuditLogEntry
}

func newSelection(cfg SelectionConfig, logger *zap.Logger) *selection {
	return &selection{
		cfg:         cfg,
		logger:      logger,
		selectedIDs: make(map[string]bool),
		unitCounts:  make(map[string]int),
		groupCounts: make(map[string]int),
	}
}

func (st *selection) full() bool { return len(st.selected) >= st.cfg.NumVagas }

func (st *selection) record(o *Officer, status AuditStatus, reason string) {
	st.logs = append(st.logs, AuditLogEntry{
		Matricula: o.Matricula,
		Nome:      o.Nome,
		Status:    status,
		Reason:    reason,
	})
	st.logger.Debug("selection decision",
		zap.String("matricula", o.Matricula),
		zap.String("status", string(status)),
		zap.String("reason", reason))
}

// attemptAdd applies the group cap or unit quota and, if the officer fits,
// selects them. A rejected attempt is logged and does not count.
func (st *selection) attemptAdd(o *Officer, method pickMethod, reason string) bool {
	if st.selectedIDs[o.ID] {
		return false
	}

	exempt := o.IsQuotaExempt()
	if exempt {
		if st.groupCounts[o.GrupoEspecial] >= MaxGroupSize {
			st.record(o, StatusSkipped, reasonGroupComplete(o.GrupoEspecial))
			return false
		}
	} else if st.unitCounts[o.Unidade] >= o.TipoUnidade.Quota() {
		st.record(o, StatusSkipped, reasonUnitQuota(o.Unidade))
		return false
	}

	o.Justificativa = reason
	st.selected = append(st.selected, o)
	st.selectedIDs[o.ID] = true
	st.unitCounts[o.Unidade]++
	if exempt {
		st.groupCounts[o.GrupoEspecial]++
	}

	status := StatusSelected
	if method == pickForced {
		status = StatusForced
	}
	if exempt {
		reason += ReasonExemptSuffix
	}
	st.record(o, status, reason)
	return true
}

// mobilize forces the remaining members of group into the selection, in
// ranked order, until the team is complete or the slots run out.
func (st *selection) mobilize(group string, ranked []*Officer) {
	for _, mate := range ranked {
		if st.groupCounts[group] >= MaxGroupSize || st.full() {
			return
		}
		if mate.GrupoEspecial != group || st.selectedIDs[mate.ID] {
			continue
		}
		st.attemptAdd(mate, pickForced, justifyForced(mate, group, st.cfg.MissionMode))
	}
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

// justify explains a ranked pick with the metric that drove it.
func justify(o *Officer, mode MissionMode) string {
	last := generic.FormatDate(o.DataUltimoIfr)
	if mode == MissionNational {
		return fmt.Sprintf("Maior IFR (%sh) | 12h: %d | Último: %s",
			o.CargaHorariaIfr.String(), o.QtdIfr12h, last)
	}
	return fmt.Sprintf("Menor Ops (%sh) | IFR: %sh | Último: %s",
		o.HorasOperacionais.String(), o.CargaHorariaIfr.String(), last)
}

func justifyForced(o *Officer, group string, mode MissionMode) string {
	return fmt.Sprintf("Integridade de Equipe %s (Art. 5º) - mobilização coletiva | %s",
		group, justify(o, mode))
}
