package convocacao

import (
	"cmp"
	"slices"
	"time"
)

// CompareRegional orders by fewest operational hours first, then falls back
// to the national criteria.
//
//  1. horas operacionais ASC
//  2. carga horária IFR  DESC
//  3. qtd IFR 12h        DESC
//  4. data último IFR    DESC (nil last)
func CompareRegional(a, b *Officer) int {
	if c := a.HorasOperacionais.Cmp(b.HorasOperacionais); c != 0 {
		return c
	}
	return CompareNational(a, b)
}

// CompareNational orders the most IFR-qualified first.
//
//  1. carga horária IFR DESC
//  2. qtd IFR 12h       DESC
//  3. data último IFR   DESC (nil last)
func CompareNational(a, b *Officer) int {
	if c := b.CargaHorariaIfr.Cmp(a.CargaHorariaIfr); c != 0 {
		return c
	}
	if c := cmp.Compare(b.QtdIfr12h, a.QtdIfr12h); c != 0 {
		return c
	}
	return compareRecencyDesc(a.DataUltimoIfr, b.DataUltimoIfr)
}

// compareRecencyDesc puts the most recent date first and nil after any date.
func compareRecencyDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

// Comparator returns the comparator for a mission mode.
func Comparator(mode MissionMode) func(a, b *Officer) int {
	if mode == MissionNational {
		return CompareNational
	}
	return CompareRegional
}

// Rank returns a sorted copy of officers. The sort is stable: officers equal
// on every criterion keep their base-table order.
func Rank(officers []*Officer, mode MissionMode) []*Officer {
	ranked := slices.Clone(officers)
	slices.SortStableFunc(ranked, Comparator(mode))
	return ranked
}
