package services

import (
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTerms_NormalizesSAFE(t *testing.T) {
	out, err := ValidateTerms(models.KindSAFE, map[string]any{
		"POST_MONEY_VALUATION": "5,000,000.00",
		"VALUATION_CAP":        8000000.0,
		"DISCOUNT_RATE":        "20",
		"AUTHORIZATION_AMOUNT": json.Number("250000"),
		"PRO_RATA":             true,
		"MFN":                  false,
	})
	require.NoError(t, err)

	assert.Equal(t, "5000000", out["POST_MONEY_VALUATION"])
	assert.Equal(t, "8000000", out["VALUATION_CAP"])
	assert.Equal(t, "20", out["DISCOUNT_RATE"])
	assert.Equal(t, "250000", out["AUTHORIZATION_AMOUNT"])
	assert.Equal(t, true, out["PRO_RATA"])
	assert.Equal(t, false, out["MFN"])
}

func TestValidateTerms_NoteOnlyFields(t *testing.T) {
	_, err := ValidateTerms(models.KindSAFE, map[string]any{"INTEREST_RATE": "5"})
	assert.ErrorIs(t, err, common.ErrValidation)

	out, err := ValidateTerms(models.KindNote, map[string]any{"INTEREST_RATE": "5.5", "MATURITY_MONTHS": "24"})
	require.NoError(t, err)
	assert.Equal(t, "5.5", out["INTEREST_RATE"])
	assert.Equal(t, 24, out["MATURITY_MONTHS"])
}

func TestValidateTerms_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		kind  models.TermSheetKind
		terms map[string]any
	}{
		{"unknown key", models.KindSAFE, map[string]any{"valuation": "1"}},
		{"not a number", models.KindSAFE, map[string]any{"VALUATION_CAP": "lots"}},
		{"zero amount", models.KindSAFE, map[string]any{"VALUATION_CAP": "0"}},
		{"negative percent", models.KindSAFE, map[string]any{"DISCOUNT_RATE": "-1"}},
		{"percent over 100", models.KindNote, map[string]any{"INTEREST_RATE": "100.01"}},
		{"flag as string", models.KindSAFE, map[string]any{"MFN": "yes"}},
		{"fractional months", models.KindNote, map[string]any{"MATURITY_MONTHS": 1.5}},
		{"object value", models.KindSAFE, map[string]any{"VALUATION_CAP": map[string]any{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateTerms(tc.kind, tc.terms)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestValidateTerms_EmptyAllowed(t *testing.T) {
	out, err := ValidateTerms(models.KindSAFE, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
