package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositive(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"whole", "100", "100.00", nil},
		{"rounds half up", "10.005", "10.01", nil},
		{"rounds down", "10.004", "10.00", nil},
		{"zero", "0", "", ErrNonPositive},
		{"negative", "-5", "", ErrNonPositive},
		{"rounds to zero", "0.004", "", ErrNonPositive},
		{"too large", "10000000000000000", "", ErrUnrepresentable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Positive(decimal.RequireFromString(tt.in))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(Scale))
		})
	}
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse("12abc")
	assert.Error(t, err)
}

func TestCurrency(t *testing.T) {
	c, err := Currency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", c)

	_, err = Currency("US")
	assert.ErrorIs(t, err, ErrCurrency)
	_, err = Currency("U5D")
	assert.ErrorIs(t, err, ErrCurrency)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		src, dst string
		amount   string
		rate     string
		fee      string
	}{
		{"same currency", "USD", "usd", "1000", "1", "0"},
		{"cross currency proportional fee", "USD", "EUR", "1000", "0.98", "5"},
		{"cross currency minimum fee", "USD", "EUR", "50", "0.98", "1"},
		{"fee is rounded", "USD", "GBP", "333.33", "0.98", "1.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.src, tt.dst, decimal.RequireFromString(tt.amount))
			assert.True(t, got.Rate.Equal(decimal.RequireFromString(tt.rate)), "rate %s", got.Rate)
			assert.True(t, got.Fee.Equal(decimal.RequireFromString(tt.fee)), "fee %s", got.Fee)
		})
	}
}
