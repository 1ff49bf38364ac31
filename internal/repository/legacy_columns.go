package repository

import (
	"sort"
	"strings"
)

// Column suffixes on the legacy employee table. The next-due column is
// computed by the database and never used for detection.
const (
	SuffixLastCompleted = "DatumPosl"
	SuffixRequired      = "Pozadovano"
	SuffixNextDue       = "DatumPristi"
)

// LegacyColumns knows the naming convention {prefix}{code}{suffix}.
type LegacyColumns struct {
	Prefix string
}

func (l LegacyColumns) LastCompleted(code string) string {
	return l.Prefix + code + SuffixLastCompleted
}

func (l LegacyColumns) Required(code string) string {
	return l.Prefix + code + SuffixRequired
}

// DetectCodes groups column names by training code and keeps the codes that
// have both the last-completed and the required marker. Anything else,
// including malformed codes, is ignored. The returned dropped list names
// codes that had only one marker.
func (l LegacyColumns) DetectCodes(columns []string) (codes []string, dropped []string) {
	const (
		hasLast = 1 << iota
		hasRequired
	)
	seen := map[string]int{}
	for _, col := range columns {
		if !strings.HasPrefix(col, l.Prefix) {
			continue
		}
		name := strings.TrimPrefix(col, l.Prefix)
		var code string
		var marker int
		switch {
		case strings.HasSuffix(name, SuffixNextDue):
			continue
		case strings.HasSuffix(name, SuffixLastCompleted):
			code, marker = strings.TrimSuffix(name, SuffixLastCompleted), hasLast
		case strings.HasSuffix(name, SuffixRequired):
			code, marker = strings.TrimSuffix(name, SuffixRequired), hasRequired
		default:
			continue
		}
		if !ValidTrainingCodeFormat(code) {
			continue
		}
		seen[code] |= marker
	}
	for code, markers := range seen {
		if markers == hasLast|hasRequired {
			codes = append(codes, code)
		} else {
			dropped = append(dropped, code)
		}
	}
	sort.Strings(codes)
	sort.Strings(dropped)
	return codes, dropped
}
