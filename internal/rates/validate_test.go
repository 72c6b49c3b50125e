package rates

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forwardline/forwardline/internal/shared"
)

func TestValidateContract(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, ValidateContract(seaContract()))
	})

	t.Run("missing mode", func(t *testing.T) {
		c := seaContract()
		c.Mode = ""
		require.ErrorIs(t, ValidateContract(c), shared.ErrMissingRequiredField)
	})

	t.Run("validity window must not collapse", func(t *testing.T) {
		c := seaContract()
		c.ValidityTo = c.ValidityFrom
		require.Error(t, ValidateContract(c))
	})

	t.Run("no lanes", func(t *testing.T) {
		c := seaContract()
		c.Lanes = nil
		require.Error(t, ValidateContract(c))
	})

	t.Run("sea lane missing ports", func(t *testing.T) {
		c := seaContract()
		c.Lanes[0].POD = ""
		require.ErrorIs(t, ValidateContract(c), shared.ErrMissingRequiredField)
	})

	t.Run("inverted weight break", func(t *testing.T) {
		c := seaContract()
		c.Lanes[0].Bases = []RateBase{{WeightFrom: floatp(500), WeightTo: floatp(100)}}
		require.Error(t, ValidateContract(c))
	})
}

func TestValidatePricingRule(t *testing.T) {
	require.NoError(t, ValidatePricingRule(PricingRule{MarkupType: "Percentage", MarkupValue: 10}))
	require.NoError(t, ValidatePricingRule(PricingRule{DiscountType: "Absolute", DiscountValue: 5}))
	require.Error(t, ValidatePricingRule(PricingRule{MarkupType: "Percentage", DiscountType: "Absolute"}))
	require.Error(t, ValidatePricingRule(PricingRule{}))
	require.Error(t, ValidatePricingRule(PricingRule{MarkupType: "Relative"}))
}
