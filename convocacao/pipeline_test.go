package convocacao_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/generic/store"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// =============================================================================
// DEMO SCENARIOS
// =============================================================================

func TestRun_DemoRegional(t *testing.T) {
	// GIVEN: The demo workbook, regional mission, 15 slots
	// WHEN: Running the pipeline
	// THEN: 12 selected; Ana (NOE) is forced in after Ricardo's pick,
	//       Gabriel hits the DEL04 quota, the two restricted officers are skipped

	result, err := convocacao.Run(convocacao.DemoData(), regional(15), convocacao.DemoReferenceDate)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"1005", "1012", "1013", "1014", "1002", "1008", "1004",
		"1001", "1009", "1006", "1011", "1010",
	}, ids(result.Selected))

	assert.Equal(t, convocacao.StatusForced, logFor(t, result, "1004").Status)
	assert.Equal(t, "Cota Unidade (DEL04) Excedida", logFor(t, result, "1015").Reason)
	assert.Equal(t, convocacao.ReasonRestriction, logFor(t, result, "1003").Reason)
	assert.Equal(t, convocacao.ReasonRestriction, logFor(t, result, "1007").Reason)

	summary := result.Summary()
	assert.Equal(t, 12, summary.Selected)
	assert.Equal(t, 1, summary.Forced)
	assert.Equal(t, 3, summary.Skipped)
}

func TestRun_DemoNational(t *testing.T) {
	// GIVEN: The demo workbook, national mission, 5 slots
	// WHEN: Running the pipeline
	// THEN: The most IFR-qualified are picked and Tiago sits out his quarantine

	result, err := convocacao.Run(convocacao.DemoData(), national(5), convocacao.DemoReferenceDate)
	require.NoError(t, err)

	assert.Equal(t, []string{"1010", "1011", "1006", "1004", "1015"}, ids(result.Selected))
	assert.Equal(t, "Maior IFR (300h) | 12h: 30 | Último: 20/02/2024", result.Selected[0].Justificativa)
	assert.Equal(t, convocacao.ReasonQuarantine, logFor(t, result, "1012").Reason)
}

func TestRun_IsDeterministic(t *testing.T) {
	for _, cfg := range []convocacao.SelectionConfig{regional(15), national(7)} {
		first, err := convocacao.Run(convocacao.DemoData(), cfg, convocacao.DemoReferenceDate)
		require.NoError(t, err)
		second, err := convocacao.Run(convocacao.DemoData(), cfg, convocacao.DemoReferenceDate)
		require.NoError(t, err)

		if diff := cmp.Diff(first, second, decimalEqual); diff != "" {
			t.Errorf("%s: runs differ (-first +second):\n%s", cfg.MissionMode, diff)
		}
	}
}

func TestScenarios_AllRun(t *testing.T) {
	for _, s := range convocacao.Scenarios() {
		t.Run(s.ID, func(t *testing.T) {
			result, err := convocacao.Run(s.Data, s.Config, s.ReferenceDate)
			require.NoError(t, err)
			assert.NotEmpty(t, result.Selected)
			assert.LessOrEqual(t, len(result.Selected), s.Config.NumVagas)
		})
	}
}

func TestScenario_Mobilization(t *testing.T) {
	s, err := convocacao.FindScenario("noe-mobilization")
	require.NoError(t, err)

	result, err := convocacao.Run(s.Data, s.Config, s.ReferenceDate)
	require.NoError(t, err)

	assert.Equal(t, []string{"2001", "2002", "2005", "2009", "2003", "2004", "2006", "2007", "2008", "2010"}, ids(result.Selected))
	assert.Equal(t, 2, result.Summary().Forced)
}

func TestScenario_UnitQuota(t *testing.T) {
	s, err := convocacao.FindScenario("unit-quota")
	require.NoError(t, err)

	result, err := convocacao.Run(s.Data, s.Config, s.ReferenceDate)
	require.NoError(t, err)

	assert.Equal(t, []string{"3001", "3006", "3002"}, ids(result.Selected))
	assert.Equal(t, 5, result.Summary().Skipped)
}

func TestFindScenario_Unknown(t *testing.T) {
	_, err := convocacao.FindScenario("nope")
	assert.ErrorIs(t, err, generic.ErrScenarioNotFound)
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestPipeline_Execute_FromStore(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemoryFrom(convocacao.DemoData())
	p := &convocacao.Pipeline{Clock: generic.FixedClock(convocacao.DemoReferenceDate)}

	out, err := p.Execute(ctx, src, regional(15))
	require.NoError(t, err)

	assert.Equal(t, convocacao.DemoReferenceDate, out.ReferenceDate)
	assert.Len(t, out.Officers, 15)
	assert.Len(t, out.Result.Selected, 12)
}

func TestPipeline_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  convocacao.SelectionConfig
		want error
	}{
		{"zero slots", regional(0), generic.ErrInvalidSlots},
		{"negative slots", national(-1), generic.ErrInvalidSlots},
		{"unknown mode", convocacao.SelectionConfig{MissionMode: "LOCAL", NumVagas: 3}, generic.ErrUnknownMissionMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convocacao.Run(convocacao.DemoData(), tt.cfg, refDate)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestPipeline_Execute_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	src := generic.TableSourceFunc(func(context.Context) (generic.SheetData, error) {
		return generic.SheetData{}, boom
	})

	_, err := (&convocacao.Pipeline{}).Execute(context.Background(), src, regional(1))
	assert.ErrorIs(t, err, boom)
}

func TestPipeline_Execute_EmptySource(t *testing.T) {
	_, err := (&convocacao.Pipeline{}).Execute(context.Background(), store.NewMemory(), regional(1))
	assert.ErrorIs(t, err, generic.ErrNoBaseRows)
	assert.True(t, generic.IsInputAbsent(err))
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseMissionMode(t *testing.T) {
	tests := []struct {
		in   string
		want convocacao.MissionMode
	}{
		{"regional", convocacao.MissionRegional},
		{"REGIONAL", convocacao.MissionRegional},
		{" National ", convocacao.MissionNational},
		{"Nacional", convocacao.MissionNational},
	}
	for _, tt := range tests {
		got, err := convocacao.ParseMissionMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := convocacao.ParseMissionMode("estadual")
	assert.ErrorIs(t, err, generic.ErrUnknownMissionMode)
}
