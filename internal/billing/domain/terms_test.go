package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalTerms_Resolve(t *testing.T) {
	defaults := ContractTerms{PanelFee: 30000, ChargePerPerson: 1000, GuaranteeCount: 5, UnderGuaranteePenalty: 10000}

	tests := []struct {
		name     string
		input    OptionalTerms
		expected ContractTerms
	}{
		{
			name:     "all absent uses defaults",
			input:    OptionalTerms{},
			expected: defaults,
		},
		{
			name: "explicit zero is preserved",
			input: OptionalTerms{
				PanelFee:              IntPtr(0),
				ChargePerPerson:       IntPtr(0),
				GuaranteeCount:        IntPtr(0),
				UnderGuaranteePenalty: IntPtr(0),
			},
			expected: ContractTerms{},
		},
		{
			name:     "fields default independently",
			input:    OptionalTerms{PanelFee: IntPtr(0), GuaranteeCount: IntPtr(8)},
			expected: ContractTerms{PanelFee: 0, ChargePerPerson: 1000, GuaranteeCount: 8, UnderGuaranteePenalty: 10000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Resolve(defaults)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOptionalTerms_ResolveRejectsNegative(t *testing.T) {
	_, err := OptionalTerms{ChargePerPerson: IntPtr(-5)}.Resolve(DefaultTerms)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "chargePerPerson", validationErr.Field)

	_, err = OptionalTerms{}.Resolve(ContractTerms{PanelFee: -1})
	assert.True(t, errors.As(err, &validationErr))
}

func TestOptionalTerms_Merge(t *testing.T) {
	base := OptionalTerms{PanelFee: IntPtr(120000), ChargePerPerson: IntPtr(1000)}

	merged := base.Merge(OptionalTerms{PanelFee: IntPtr(0), GuaranteeCount: IntPtr(25)})

	require.NotNil(t, merged.PanelFee)
	assert.Equal(t, 0, *merged.PanelFee)
	assert.Equal(t, 1000, *merged.ChargePerPerson)
	assert.Equal(t, 25, *merged.GuaranteeCount)
	assert.Nil(t, merged.UnderGuaranteePenalty)
	assert.Equal(t, 120000, *base.PanelFee, "merge must not alias the base")
}

func TestOptionalTerms_ValidateAndEmpty(t *testing.T) {
	assert.True(t, OptionalTerms{}.IsEmpty())
	assert.False(t, OptionalTerms{GuaranteeCount: IntPtr(0)}.IsEmpty())
	assert.NoError(t, OptionalTerms{GuaranteeCount: IntPtr(0)}.Validate())

	err := OptionalTerms{UnderGuaranteePenalty: IntPtr(-1)}.Validate()
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "underGuaranteePenalty", validationErr.Field)
}

func TestStore_AdmitsMales(t *testing.T) {
	assert.True(t, Store{}.AdmitsMales())
	assert.False(t, Store{MalePrice: IntPtr(0)}.AdmitsMales())
	assert.True(t, Store{MalePrice: IntPtr(5000)}.AdmitsMales())
}

func TestStore_DisplayName(t *testing.T) {
	assert.Equal(t, "Club A", Store{Name: "Club A"}.DisplayName())
	assert.Equal(t, "Club A 新宿店", Store{Name: "Club A", BranchName: " 新宿店 "}.DisplayName())
}
