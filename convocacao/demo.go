package convocacao

import (
	"fmt"
	"time"

	"github.com/warp/convocation-engine/generic"
)

// =============================================================================
// DEMO SCENARIOS - Pre-built inputs for demos and integration tests
// =============================================================================

// Scenario is a named, reproducible input set.
type Scenario struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	ReferenceDate time.Time       `json:"reference_date"`
	Config        SelectionConfig `json:"config"`
	Data          generic.SheetData
}

// DemoReferenceDate is the "now" the demo workbook was written against.
var DemoReferenceDate = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

// Scenarios returns every demo scenario. Each call builds fresh data.
func Scenarios() []Scenario {
	return []Scenario{
		{
			ID:            "demo",
			Name:          "Planilha de demonstração",
			Description:   "Quinze policiais em quatro delegacias, com restrições, quarentena e equipes NOE/GOC",
			ReferenceDate: DemoReferenceDate,
			Config:        SelectionConfig{MissionMode: MissionRegional, NumVagas: 15},
			Data:          DemoData(),
		},
		{
			ID:            "noe-mobilization",
			Name:          "Mobilização de equipe NOE",
			Description:   "Quatro policiais do NOE nas posições 1, 2, 5 e 9 do ranking regional",
			ReferenceDate: DemoReferenceDate,
			Config:        SelectionConfig{MissionMode: MissionRegional, NumVagas: 10},
			Data:          mobilizationData(),
		},
		{
			ID:            "unit-quota",
			Name:          "Cotas por unidade",
			Description:   "Cinco policiais de uma delegacia e três de um núcleo disputando as vagas",
			ReferenceDate: DemoReferenceDate,
			Config:        SelectionConfig{MissionMode: MissionRegional, NumVagas: 8},
			Data:          quotaData(),
		},
	}
}

// FindScenario looks up a scenario by id.
func FindScenario(id string) (Scenario, error) {
	for _, s := range Scenarios() {
		if s.ID == id {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q", generic.ErrScenarioNotFound, id)
}

// DemoData is the demo workbook: four tabs as they come out of the sheet,
// with the original header spellings.
func DemoData() generic.SheetData {
	return generic.SheetData{
		// Tab: Hrs Operacionais - Frequência
		Operacional: []generic.RawRecord{
			op("João Silva", "1001", "DEL01", 200),
			op("Maria Santos", "1002", "DEL01", 150),
			op("Pedro Costa", "1003", "DEL01", 100),
			op("Ana Oliveira", "1004", "DEL01 (NOE)", 300),
			op("Carlos Souza", "1005", "NUC_OPS (GOC)", 50),
			op("Fernanda Lima", "1006", "SEC_ADM", 400),
			op("Roberto Alves", "1007", "DEL02", 0),
			op("Ricardo Pereira", "1008", "DEL02 (NOE)", 180),
			op("Lucas Mendes", "1009", "DEL02 (GOC)", 210),
			op("Juliana Costa", "1010", "DEL03", 500),
			op("Marcos Rocha", "1011", "DEL03", 450),
			op("Tiago Silva", "1012", "DEL03 (NOE)", 80),
			op("Bruna Dias", "1013", "DEL04", 120),
			op("Rafael Martins", "1014", "DEL04", 140),
			op("Gabriel Nunes", "1015", "DEL04", 220),
		},

		// Tab: Origem
		Origem: []generic.RawRecord{
			{"Servidor": "João Silva", "Matrícula": "1001", "Lotação": "DEL01", "Carga Horária IFR": 100, "QTD IFR - 12h": 10, "Data1": "01/11/2023", "Data2": "01/12/2023"},
			{"Servidor": "Maria Santos", "Matrícula": "1002", "Lotação": "DEL01", "Carga Horária IFR": 50, "QTD IFR - 12h": 5, "Data1": "10/01/2024"},
			{"Servidor": "Ana Oliveira", "Matrícula": "1004", "Lotação": "DEL01", "Carga Horária IFR": 120, "QTD IFR - 12h": 12, "Data1": "01/10/2023", "Data2": "01/11/2023", "Data3": "01/01/2024", "Data4": "01/02/2024"},
			{"Servidor": "Fernanda Lima", "Matrícula": "1006", "Lotação": "SEC_ADM", "Carga Horária IFR": 200, "QTD IFR - 12h": 20, "Data1": "01/01/2024", "Data2": "15/02/2024"},
			{"Servidor": "Ricardo Pereira", "Matrícula": "1008", "Lotação": "DEL02", "Carga Horária IFR": 80, "QTD IFR - 12h": 8, "Data1": "20/12/2023"},
			{"Servidor": "Lucas Mendes", "Matrícula": "1009", "Lotação": "DEL02", "Carga Horária IFR": 90, "QTD IFR - 12h": 9, "Data1": "05/11/2023", "Data2": "05/01/2024"},
			{"Servidor": "Juliana Costa", "Matrícula": "1010", "Lotação": "DEL03", "Carga Horária IFR": 300, "QTD IFR - 12h": 30, "Data1": "20/02/2024"},
			{"Servidor": "Marcos Rocha", "Matrícula": "1011", "Lotação": "DEL03", "Carga Horária IFR": 250, "QTD IFR - 12h": 25, "Data1": "10/02/2024"},
			{"Servidor": "Gabriel Nunes", "Matrícula": "1015", "Lotação": "DEL04", "Carga Horária IFR": 110, "QTD IFR - 12h": 11, "Data1": "05/01/2024", "Data2": "05/02/2024"},
		},

		// Tab: Convocações Externas
		Externas: []generic.RawRecord{
			{"Nome": "João Silva", "Matrícula": "1001", "Convocante": "DOP", "Data Fim": "15/08/2023"},
			{"Nome": "Maria Santos", "Matrícula": "1002", "Convocante": "COE", "Data Fim": "20/01/2023"},
			{"Nome": "Ana Oliveira", "Matrícula": "1004", "Convocante": "DOP", "Data Fim": "01/09/2023"},
			{"Nome": "Tiago Silva", "Matrícula": "1012", "Convocante": "DOP", "Data Fim": "01/03/2024", "Observações": "Recent Mission"},
		},

		// Tab: Restrições
		Restricoes: []generic.RawRecord{
			{"NOME": "Roberto Alves", "MATRÍCULA": "1007", "LOTAÇÃO": "DEL02", "OBS": "Licença Médica"},
			{"NOME": "Pedro Costa", "MATRÍCULA": "1003", "LOTAÇÃO": "DEL01", "OBS": "Férias"},
		},
	}
}

// mobilizationData ranks four NOE officers at regional positions 1, 2, 5 and 9.
// Every non-NOE officer sits in a different Delegacia so quotas never bind.
func mobilizationData() generic.SheetData {
	return generic.SheetData{
		Operacional: []generic.RawRecord{
			op("NOE Alfa", "2001", "DEL01 (NOE)", 10),
			op("NOE Bravo", "2002", "DEL02 (NOE)", 20),
			op("Xavier", "2003", "DEL03", 30),
			op("Yara", "2004", "DEL04", 40),
			op("NOE Charlie", "2005", "NUC01 (NOE)", 50),
			op("Zeca", "2006", "DEL05", 60),
			op("Wagner", "2007", "DEL06", 70),
			op("Vitor", "2008", "DEL07", 80),
			op("NOE Delta", "2009", "DEL08 (NOE)", 90),
			op("Ulisses", "2010", "DEL09", 100),
		},
	}
}

// quotaData has more candidates per unit than the quotas allow.
func quotaData() generic.SheetData {
	return generic.SheetData{
		Operacional: []generic.RawRecord{
			op("Delegacia 1", "3001", "DEL01", 10),
			op("Delegacia 2", "3002", "DEL01", 20),
			op("Delegacia 3", "3003", "DEL01", 30),
			op("Delegacia 4", "3004", "DEL01", 40),
			op("Delegacia 5", "3005", "DEL01", 50),
			op("Núcleo 1", "3006", "NUC_OPS", 15),
			op("Núcleo 2", "3007", "NUC_OPS", 25),
			op("Núcleo 3", "3008", "NUC_OPS", 35),
		},
	}
}

func op(nome, matricula, lotacao string, horas float64) generic.RawRecord {
	return generic.RawRecord{
		"Servidor":          nome,
		"Matrícula":         matricula,
		"Lotação":           lotacao,
		"Horas operacional": horas,
	}
}
