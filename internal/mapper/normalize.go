package mapper

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	folder = cases.Fold()

	// NFKD turns "mm²" into "mm2" and splits accented letters so the marks can be dropped.
	stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// unitTokens rewrites single tokens to their canonical unit spelling.
var unitTokens = map[string]string{
	"metres": "m", "metre": "m", "meters": "m", "meter": "m", "mtrs": "m", "mtr": "m",
	"kilometres": "km", "kilometers": "km",
	"amps": "a", "amp": "a", "amperes": "a", "ampere": "a",
	"volts": "v", "volt": "v", "kilovolts": "kv",
	"kilowatts": "kw", "kilowatt": "kw", "watts": "w", "watt": "w",
	"sqmm": "mm2", "mmsq": "mm2",
	"percent": "pct", "percentage": "pct",
	"number": "no", "num": "no", "nos": "no",
	"degc": "c",
}

// unitPhrases rewrites two-token unit spellings.
var unitPhrases = map[[2]string]string{
	{"sq", "mm"}:     "mm2",
	{"mm", "sq"}:     "mm2",
	{"square", "mm"}: "mm2",
	{"deg", "c"}:     "c",
}

// NormalizeHeader folds case and diacritics, canonicalizes unit tokens, turns
// punctuation into spaces and collapses whitespace. "Size (mm²)" becomes "size mm2".
func NormalizeHeader(s string) string {
	s = splitCamel(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = folder.String(s)
	s = strings.NewReplacer("%", " pct ", "#", " no ", "&", " and ").Replace(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		if i+1 < len(fields) {
			if repl, ok := unitPhrases[[2]string{fields[i], fields[i+1]}]; ok {
				out = append(out, repl)
				i++
				continue
			}
		}
		if repl, ok := unitTokens[fields[i]]; ok {
			out = append(out, repl)
			continue
		}
		out = append(out, fields[i])
	}
	return strings.Join(out, " ")
}

// splitCamel inserts a space where a lowercase letter is followed by an
// uppercase letter that starts a lowercase word: "LoadList" becomes "Load List",
// "kW" is left alone.
func splitCamel(s string) string {
	r := []rune(s)
	var b strings.Builder
	for i, c := range r {
		if i > 0 && unicode.IsUpper(c) && unicode.IsLower(r[i-1]) &&
			i+1 < len(r) && unicode.IsLower(r[i+1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(c)
	}
	return b.String()
}
