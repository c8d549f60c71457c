package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/convocation-engine/config"
	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
)

// execute runs the CLI with a fixed clock, default config and a silent logger.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{
		out:    &out,
		clock:  generic.FixedClock(convocacao.DemoReferenceDate),
		cfg:    config.Default(),
		logger: zap.NewNop(),
	}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScenariosCmd(t *testing.T) {
	out, err := execute(t, "scenarios")
	require.NoError(t, err)

	for _, s := range convocacao.Scenarios() {
		assert.Contains(t, out, s.ID)
	}
	assert.Contains(t, out, "15/03/2024")
}

func TestRunCmd_ScenarioTable(t *testing.T) {
	out, err := execute(t, "run", "--scenario", "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "Critério: Regional | Vagas: 15 | Referência: 15/03/2024 | Policiais: 15")
	assert.Contains(t, out, "Carlos Souza")
	assert.Contains(t, out, "Cota Unidade (DEL04) Excedida")
	assert.Contains(t, out, "Convocados: 12 (ranking 11, mobilização 1) | Não convocados: 3")
}

func TestRunCmd_JSONWithOverrides(t *testing.T) {
	// GIVEN: The demo scenario with mode and vagas overridden
	// WHEN: Printing JSON
	// THEN: The overrides apply and the scenario's reference date is kept

	out, err := execute(t, "run", "--scenario", "demo", "--mode", "nacional", "--vagas", "5", "--json")
	require.NoError(t, err)

	var doc runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "2024-03-15", doc.ReferenceDate)
	assert.Equal(t, "NATIONAL", doc.Config.MissionMode)
	assert.NotEmpty(t, doc.RunID)

	ids := make([]string, len(doc.Selected))
	for i, o := range doc.Selected {
		ids[i] = o.Matricula
	}
	assert.Equal(t, []string{"1010", "1011", "1006", "1004", "1015"}, ids)
}

func TestRunCmd_WritesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convocados.xlsx")

	_, err := execute(t, "run", "--scenario", "unit-quota", "--out", path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Convocados", "Auditoria"}, f.GetSheetList())
}

func TestExportThenRunFile(t *testing.T) {
	// GIVEN: The demo scenario exported as a workbook
	// WHEN: Running on the file with the demo reference date
	// THEN: The selection is the demo's

	path := filepath.Join(t.TempDir(), "modelo.xlsx")
	out, err := execute(t, "export", "--scenario", "demo", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Hrs Operacionais - Frequência")

	out, err = execute(t, "run", "--file", path, "--date", "2024-03-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Convocados: 12 (ranking 11, mobilização 1) | Não convocados: 3")
}

func TestImportThenRunSQLite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "escala.db")

	out, err := execute(t, "import", "--scenario", "unit-quota", "--to", db)
	require.NoError(t, err)
	assert.Contains(t, out, db)

	out, err = execute(t, "run", "--sqlite", db, "--vagas", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Convocados: 3 (ranking 3, mobilização 0) | Não convocados: 5")
}

func TestRunCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"no source", []string{"run"}, nil},
		{"two sources", []string{"run", "--scenario", "demo", "--file", "x.xlsx"}, nil},
		{"unknown scenario", []string{"run", "--scenario", "nope"}, generic.ErrScenarioNotFound},
		{"zero vagas", []string{"run", "--scenario", "demo", "--vagas", "0"}, generic.ErrInvalidSlots},
		{"unknown mode", []string{"run", "--scenario", "demo", "--mode", "estadual"}, generic.ErrUnknownMissionMode},
		{"bad date", []string{"run", "--scenario", "demo", "--date", "ontem"}, generic.ErrInvalidReferenceDate},
		{"missing file", []string{"run", "--file", filepath.Join(t.TempDir(), "x.xlsx")}, generic.ErrInvalidWorkbook},
		{"import from sqlite", []string{"import", "--sqlite", "a.db", "--to", "b.db"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
