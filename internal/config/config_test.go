package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShippingRates(t *testing.T) {
	rates, err := ParseShippingRates("standard|Standard|500|5|7; express|Express|1500|1|2")
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, ShippingRate{Code: "standard", DisplayName: "Standard", AmountMinorUnits: 500, MinBusinessDays: 5, MaxBusinessDays: 7}, rates[0])
	assert.Equal(t, "express", rates[1].Code)
	assert.Equal(t, int64(1500), rates[1].AmountMinorUnits)
}

func TestParseShippingRates_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing fields": "standard|Standard|500",
		"bad amount":     "standard|Standard|abc|1|2",
		"negative":       "standard|Standard|-1|1|2",
		"inverted days":  "standard|Standard|500|5|2",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseShippingRates(in)
			require.Error(t, err)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("BASE_URL", "https://shop.example.com/")
	t.Setenv("SHIPPING_COUNTRIES", "US, GB ,")
	t.Setenv("CART_TTL", "nonsense")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://shop.example.com", cfg.BaseURL)
	assert.Equal(t, []string{"US", "GB"}, cfg.ShippingCountries)
	assert.Equal(t, 30*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Len(t, cfg.ShippingRates, 2)
}

func TestValidate_MissingSecrets(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
}
