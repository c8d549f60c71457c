package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/factory"
	"github.com/warp/convocation-engine/generic"
)

func newFactory() *factory.InputFactory {
	return factory.NewInputFactory(convocacao.SelectionConfig{
		MissionMode: convocacao.MissionRegional,
		NumVagas:    5,
	})
}

func TestParseRunConfig(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantMode convocacao.MissionMode
		wantN    int
		wantNow  time.Time
	}{
		{
			name:     "explicit",
			json:     `{"mission_mode":"national","num_vagas":7,"reference_date":"2024-03-15"}`,
			wantMode: convocacao.MissionNational,
			wantN:    7,
			wantNow:  time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "pt-BR mode and date",
			json:     `{"mission_mode":"Nacional","num_vagas":3,"reference_date":"15/03/2024"}`,
			wantMode: convocacao.MissionNational,
			wantN:    3,
			wantNow:  time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "defaults",
			json:     `{}`,
			wantMode: convocacao.MissionRegional,
			wantN:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newFactory().ParseRunConfig([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, cfg.Selection.MissionMode)
			assert.Equal(t, tt.wantN, cfg.Selection.NumVagas)
			assert.True(t, tt.wantNow.Equal(cfg.Now), "got %v", cfg.Now)
		})
	}
}

func TestParseRunConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"malformed", `{"num_vagas":`, generic.ErrInvalidInput},
		{"wrong type", `{"num_vagas":"ten"}`, generic.ErrInvalidInput},
		{"negative slots", `{"num_vagas":-2}`, generic.ErrInvalidSlots},
		{"unknown mode", `{"mission_mode":"estadual"}`, generic.ErrUnknownMissionMode},
		{"bad date", `{"reference_date":"31/02/2024"}`, generic.ErrInvalidReferenceDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFactory().ParseRunConfig([]byte(tt.json))
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestParseRunConfig_NoDefaultSlots(t *testing.T) {
	// GIVEN: A factory with no defaults
	// WHEN: The payload omits num_vagas
	// THEN: The slot count is rejected, not silently zero

	f := factory.NewInputFactory(convocacao.SelectionConfig{MissionMode: convocacao.MissionRegional})
	_, err := f.ParseRunConfig([]byte(`{}`))
	assert.ErrorIs(t, err, generic.ErrInvalidSlots)
}

func TestParseSheetData(t *testing.T) {
	payload := `{
		"operacional": [
			{"Matrícula": "1001", "Servidor": "João", "Lotação": "DEL01", "Horas operacional": 200},
			{"Matrícula": 1002, "Servidor": "Maria", "Lotação": "DEL01", "Horas operacional": "150,5"}
		],
		"restricoes": [{"MATRÍCULA": "1002"}]
	}`

	data, err := newFactory().ParseSheetData([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, map[generic.Table]int{
		generic.TableOperacional: 2,
		generic.TableOrigem:      0,
		generic.TableExternas:    0,
		generic.TableRestricoes:  1,
	}, data.Counts())
	assert.Equal(t, 200.0, data.Operacional[0]["Horas operacional"])

	officers, err := convocacao.Merge(data, time.Now())
	require.NoError(t, err)
	require.Len(t, officers, 2)
	assert.Equal(t, "1002", officers[1].Matricula)
	assert.True(t, officers[1].Restricao)
}

func TestParseSheetData_Malformed(t *testing.T) {
	_, err := newFactory().ParseSheetData([]byte(`{"operacional": "nope"}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestParseRunRequest_RunsEndToEnd(t *testing.T) {
	payload := `{
		"config": {"mission_mode": "regional", "num_vagas": 1, "reference_date": "2024-03-15"},
		"data": {"operacional": [
			{"matricula": "a", "lotacao": "DEL01", "horas operacional": 30},
			{"matricula": "b", "lotacao": "DEL02", "horas operacional": 10}
		]}
	}`

	req, err := newFactory().ParseRunRequest([]byte(payload))
	require.NoError(t, err)

	result, err := convocacao.Run(req.Data, req.Config.Selection, req.Config.Now)
	require.NoError(t, err)
	require.Len(t, result.Selected, 1)
	assert.Equal(t, "b", result.Selected[0].Matricula)
}

func TestRunConfig_Clock(t *testing.T) {
	pinned := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	other := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, pinned, factory.RunConfig{Now: pinned}.Clock(generic.FixedClock(other))())
	assert.Equal(t, other, factory.RunConfig{}.Clock(generic.FixedClock(other))())
	assert.NotNil(t, factory.RunConfig{}.Clock(nil))
}

func TestToJSON(t *testing.T) {
	f := newFactory()
	cfg := factory.RunConfig{
		Selection: convocacao.SelectionConfig{MissionMode: convocacao.MissionNational, NumVagas: 4},
		Now:       time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
	}

	got, err := f.FromJSON(f.ToJSON(cfg))
	require.NoError(t, err)
	assert.Equal(t, cfg.Selection, got.Selection)
	assert.True(t, cfg.Now.Equal(got.Now))
}
