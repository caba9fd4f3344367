package verification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

func TestValidateVATAccepts(t *testing.T) {
	for _, vat := range []string{"GB123456789", "DE123456789", "FR12345678901"} {
		assert.NoError(t, ValidateVAT(vat), vat)
	}
}

func TestValidateVATRejects(t *testing.T) {
	cases := []string{
		"",
		"123456789",
		"GB",
		strings.Repeat("A", 18),
		"DE12345@789",
	}
	for _, vat := range cases {
		err := ValidateVAT(vat)
		require.Error(t, err, "%q should be rejected", vat)
		assert.True(t, errors.IsCode(err, errors.ErrCodeAdapterInvalidInput), vat)
	}
}

func TestValidateLEI(t *testing.T) {
	assert.NoError(t, ValidateLEI("5493001KJTIIGC8Y1R12"))

	for _, lei := range []string{"", "SHORT", strings.Repeat("A", 21), "5493001KJTIIGC8Y1R1-"} {
		err := ValidateLEI(lei)
		require.Error(t, err, lei)
		assert.True(t, errors.IsCode(err, errors.ErrCodeAdapterInvalidInput), lei)
	}
}
