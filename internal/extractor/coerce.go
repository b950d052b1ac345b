package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var numberRe = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?`)

// CellString renders a scalar cell as trimmed text.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case float64:
		if c == math.Trunc(c) && math.Abs(c) < 1e15 {
			return strconv.FormatInt(int64(c), 10)
		}
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return CellString(float64(c))
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		return strconv.FormatBool(c)
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

// ParseQuantity reads a number and an optional trailing unit from a cell.
// Thousands separators and inner spaces are ignored: "1,250 kW" is (1250, "kw").
// A decimal comma is accepted when it is the only separator: "0,85" is 0.85.
func ParseQuantity(v any) (float64, string, bool) {
	switch c := v.(type) {
	case nil:
		return 0, "", false
	case float64:
		return c, "", !math.IsNaN(c) && !math.IsInf(c, 0)
	case float32:
		return float64(c), "", true
	case int:
		return float64(c), "", true
	case int64:
		return float64(c), "", true
	case bool:
		return 0, "", false
	}

	s := strings.TrimSpace(CellString(v))
	if s == "" {
		return 0, "", false
	}

	commas := strings.Count(s, ",")
	switch {
	case commas == 1 && !strings.Contains(s, ".") && digitsAfter(s, strings.Index(s, ",")) != 3:
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.ReplaceAll(s, "_", "")

	// Drop spaces between digit groups ("1 250") but keep the one before a unit.
	var b strings.Builder
	r := []rune(s)
	for i, ch := range r {
		if ch == ' ' && i > 0 && i+1 < len(r) && unicode.IsDigit(r[i-1]) && unicode.IsDigit(r[i+1]) {
			continue
		}
		b.WriteRune(ch)
	}
	s = b.String()

	m := numberRe.FindString(s)
	if m == "" {
		return 0, "", false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, "", false
	}
	unit := strings.ToLower(strings.TrimSpace(s[len(m):]))
	unit = strings.Trim(unit, "() ")
	return f, unit, true
}

// digitsAfter counts the digits that directly follow position i.
func digitsAfter(s string, i int) int {
	n := 0
	for _, r := range s[i+1:] {
		if !unicode.IsDigit(r) {
			break
		}
		n++
	}
	return n
}

// ParseNumber is ParseQuantity without the unit.
func ParseNumber(v any) (float64, bool) {
	f, _, ok := ParseQuantity(v)
	return f, ok
}

// ParsePhases accepts numbers and the usual spellings ("3ph", "single", "TPN").
func ParsePhases(v any) (int, bool) {
	if f, ok := ParseNumber(v); ok {
		switch int(f) {
		case 1, 3:
			return int(f), true
		case 2:
			return 1, true
		}
		return 0, false
	}
	s := strings.ToLower(CellString(v))
	switch {
	case s == "":
		return 0, false
	case strings.Contains(s, "three"), strings.Contains(s, "tp"), strings.Contains(s, "3"):
		return 3, true
	case strings.Contains(s, "single"), strings.Contains(s, "sp"), strings.Contains(s, "1"):
		return 1, true
	}
	return 0, false
}

// ParseBool accepts yes/no style flags. Unknown text is false.
func ParseBool(v any) bool {
	switch c := v.(type) {
	case bool:
		return c
	case float64:
		return c != 0
	case int:
		return c != 0
	}
	s := strings.ToLower(CellString(v))
	switch s {
	case "y", "yes", "true", "1", "x", "armoured", "armored", "swa", "sta", "awa":
		return true
	}
	return false
}

// Ratio normalizes a power factor or efficiency given as a fraction or percentage.
func Ratio(v float64, unit string) float64 {
	if unit == "%" || (v > 1 && v <= 100) {
		return v / 100
	}
	return v
}
