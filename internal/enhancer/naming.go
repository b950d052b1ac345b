package enhancer

import (
	"strings"
	"unicode"
)

// acronyms keep their upper-case spelling when names are normalized.
var acronyms = map[string]bool{
	"ac": true, "ahu": true, "ats": true, "cctv": true, "db": true, "dc": true,
	"dg": true, "fcu": true, "hv": true, "hvac": true, "ic": true, "it": true,
	"lv": true, "mcc": true, "mdb": true, "mv": true, "pcc": true, "plc": true,
	"sdb": true, "smdb": true, "swbd": true, "ups": true, "vfd": true, "vsd": true,
	"ev": true, "led": true, "fa": true, "bms": true, "ct": true, "vt": true,
}

// NormalizeName collapses whitespace and title-cases each word. Known
// acronyms and words containing digits are upper-cased, so "ahu-1 supply fan"
// becomes "AHU-1 Supply Fan".
func NormalizeName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = normalizeWord(w)
	}
	return strings.Join(words, " ")
}

// normalizeWord handles hyphen and slash separated parts independently.
func normalizeWord(w string) string {
	var b strings.Builder
	start := 0
	for i, r := range w {
		if r == '-' || r == '/' {
			b.WriteString(normalizePart(w[start:i]))
			b.WriteRune(r)
			start = i + 1
		}
	}
	b.WriteString(normalizePart(w[start:]))
	return b.String()
}

func normalizePart(p string) string {
	if p == "" {
		return p
	}
	lower := strings.ToLower(p)
	if acronyms[strings.Trim(lower, "().,")] || strings.IndexFunc(p, unicode.IsDigit) >= 0 {
		return strings.ToUpper(p)
	}
	r := []rune(lower)
	for i, c := range r {
		if unicode.IsLetter(c) {
			r[i] = unicode.ToUpper(c)
			break
		}
	}
	return string(r)
}
