package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a currency token in an unknown locale format to a
// signed float64 with two-decimal precision. It never fails: empty,
// unparseable or sentinel tokens yield 0.
//
// Separator disambiguation follows the accounting-export convention: when
// both comma and dot are present, whichever occurs last is the decimal
// separator and the other is a thousands separator. A lone separator that
// appears more than once is a thousands separator.
//
// Accounting negatives are recognized in three notations: leading minus,
// trailing minus and a parenthesized value. The sign is applied after the
// magnitude is parsed.
//
// Examples:
//
//	ParseAmount("1.234,56")    ->  1234.56
//	ParseAmount("1,234.56")    ->  1234.56
//	ParseAmount("(1.234,56)")  -> -1234.56
//	ParseAmount("1.234,56-")   -> -1234.56
//	ParseAmount("R$ 100,00")   ->  100.0
//	ParseAmount("n/a")         ->  0.0
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	// Currency prefix from Conta Azul exports.
	s = strings.TrimSpace(strings.ReplaceAll(s, "R$", ""))

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	s = strings.ReplaceAll(s, " ", "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,56: dot groups thousands, comma is decimal.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.56: comma groups thousands.
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case hasDot:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	v, _ := d.Round(2).Float64()
	if negative {
		return -v
	}
	return v
}
