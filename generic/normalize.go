package generic

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey canonicalizes a header cell: trimmed, lower-cased, with
// diacritics removed ("Matrícula " -> "matricula"). Trimming runs last so a
// second pass never changes the key.
func NormalizeKey(key string) string {
	return strings.TrimSpace(stripDiacritics(strings.ToLower(key)))
}

// stripDiacritics decomposes s into NFD and drops combining marks (unicode.Mn).
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeRecord returns a copy of the record with normalized keys and
// trimmed string values. Non-string values pass through unchanged.
//
// Raw keys are visited in sorted order, so when two headers collapse to the
// same key ("Matrícula" and "MATRICULA") the result does not depend on map
// iteration order. Normalizing an already-normalized record is a no-op.
func NormalizeRecord(r RawRecord) RawRecord {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(RawRecord, len(r))
	for _, k := range keys {
		v := r[k]
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		out[NormalizeKey(k)] = v
	}
	return out
}

// NormalizeRecords normalizes every record of a table.
func NormalizeRecords(records []RawRecord) []RawRecord {
	out := make([]RawRecord, len(records))
	for i, r := range records {
		out[i] = NormalizeRecord(r)
	}
	return out
}
