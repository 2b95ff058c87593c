package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/shopspring/decimal"
)

type termType int

const (
	termAmount  termType = iota // positive money amount
	termPercent                 // 0..100
	termFlag                    // boolean
	termMonths                  // positive whole number
)

var safeTerms = map[string]termType{
	"POST_MONEY_VALUATION": termAmount,
	"VALUATION_CAP":        termAmount,
	"DISCOUNT_RATE":        termPercent,
	"AUTHORIZATION_AMOUNT": termAmount,
	"PRO_RATA":             termFlag,
	"MFN":                  termFlag,
}

var noteTerms = map[string]termType{
	"POST_MONEY_VALUATION": termAmount,
	"VALUATION_CAP":        termAmount,
	"DISCOUNT_RATE":        termPercent,
	"AUTHORIZATION_AMOUNT": termAmount,
	"PRO_RATA":             termFlag,
	"MFN":                  termFlag,
	"INTEREST_RATE":        termPercent,
	"MATURITY_MONTHS":      termMonths,
}

var hundred = decimal.NewFromInt(100)

func termSchema(kind models.TermSheetKind) map[string]termType {
	if kind == models.KindNote {
		return noteTerms
	}
	return safeTerms
}

// ValidateTerms checks the offered fields against the kind's schema and
// returns them normalized: numbers as canonical decimal strings, months as
// integers, flags as booleans.
func ValidateTerms(kind models.TermSheetKind, terms map[string]any) (map[string]any, error) {
	schema := termSchema(kind)
	out := make(map[string]any, len(terms))

	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		typ, ok := schema[k]
		if !ok {
			return nil, fmt.Errorf("%w: unknown %s term %q", common.ErrValidation, kind, k)
		}
		v, err := normalizeTerm(typ, terms[k])
		if err != nil {
			return nil, fmt.Errorf("%w: %s %v", common.ErrValidation, k, err)
		}
		out[k] = v
	}
	return out, nil
}

func normalizeTerm(typ termType, raw any) (any, error) {
	if typ == termFlag {
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return b, nil
	}

	d, err := toDecimal(raw)
	if err != nil {
		return nil, err
	}

	switch typ {
	case termAmount:
		if !d.IsPositive() {
			return nil, fmt.Errorf("must be greater than zero")
		}
		return d.String(), nil
	case termPercent:
		if d.IsNegative() || d.GreaterThan(hundred) {
			return nil, fmt.Errorf("must be between 0 and 100")
		}
		return d.String(), nil
	case termMonths:
		if !d.IsInteger() || !d.IsPositive() {
			return nil, fmt.Errorf("must be a positive whole number")
		}
		return int(d.IntPart()), nil
	}
	return nil, fmt.Errorf("unsupported term type")
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v), ",", ""))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("must be a number")
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("must be a number")
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("must be a number")
	}
}
