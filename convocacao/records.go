package convocacao

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/convocation-engine/generic"
)

// Normalized column keys of the source tables.
const (
	colMatricula        = "matricula"
	colServidor         = "servidor"
	colNome             = "nome"
	colLotacao          = "lotacao"
	colHorasOperacional = "horas operacional"
	colCargaHorariaIfr  = "carga horaria ifr"
	colQtdIfr12h        = "qtd ifr - 12h"
	colDataFim          = "data fim"
)

// IFR date columns of the origin table.
var colDatasIfr = []string{"data1", "data2", "data3", "data4"}

// OperationalRow is one row of the base table (operational hours).
type OperationalRow struct {
	Matricula         string
	Nome              string
	Lotacao           string
	HorasOperacionais decimal.Decimal
}

// OriginRow is one row of the origin table (IFR statistics).
type OriginRow struct {
	Matricula       string
	CargaHorariaIfr decimal.Decimal
	QtdIfr12h       int
	UltimoIfr       *time.Time // max of data1..data4
}

// MissionRow is one row of the external-missions table.
type MissionRow struct {
	Matricula string
	DataFim   *time.Time
}

// RestrictionRow is one row of the restrictions table.
type RestrictionRow struct {
	Matricula string
}

// DecodeOperational reads a normalized base-table record.
func DecodeOperational(r generic.RawRecord) OperationalRow {
	nome := generic.ParseString(r[colServidor])
	if nome == "" {
		nome = generic.ParseString(r[colNome])
	}
	return OperationalRow{
		Matricula:         generic.ParseString(r[colMatricula]),
		Nome:              nome,
		Lotacao:           strings.ToUpper(generic.ParseString(r[colLotacao])),
		HorasOperacionais: generic.NonNegative(generic.ParseNumber(r[colHorasOperacional])),
	}
}

// DecodeOrigin reads a normalized origin-table record.
func DecodeOrigin(r generic.RawRecord) OriginRow {
	dates := make([]any, len(colDatasIfr))
	for i, c := range colDatasIfr {
		dates[i] = r[c]
	}
	qtd := generic.ParseInt(r[colQtdIfr12h])
	if qtd < 0 {
		qtd = 0
	}
	return OriginRow{
		Matricula:       generic.ParseString(r[colMatricula]),
		CargaHorariaIfr: generic.NonNegative(generic.ParseNumber(r[colCargaHorariaIfr])),
		QtdIfr12h:       qtd,
		UltimoIfr:       generic.Recency(dates...),
	}
}

// DecodeMission reads a normalized external-mission record.
func DecodeMission(r generic.RawRecord) MissionRow {
	return MissionRow{
		Matricula: generic.ParseString(r[colMatricula]),
		DataFim:   generic.ParseDate(r[colDataFim]),
	}
}

// DecodeRestriction reads a normalized restriction record.
func DecodeRestriction(r generic.RawRecord) RestrictionRow {
	return RestrictionRow{Matricula: generic.ParseString(r[colMatricula])}
}

// decodeAll normalizes and decodes a whole table.
func decodeAll[T any](records []generic.RawRecord, decode func(generic.RawRecord) T) []T {
	out := make([]T, len(records))
	for i, r := range generic.NormalizeRecords(records) {
		out[i] = decode(r)
	}
	return out
}
