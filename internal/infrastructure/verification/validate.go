package verification

import (
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

// ValidateVAT checks a VAT identifier's structural format before any network
// call: 8-15 characters total, a 2-letter country prefix, alphanumerics
// after it.  It does not verify that the country code is a real country;
// that is the registry's job.
func ValidateVAT(vat string) error {
	if len(vat) < 8 || len(vat) > 15 {
		return errors.Newf(errors.ErrCodeAdapterInvalidInput, "vat number must be 8-15 characters, got %d", len(vat))
	}
	if !isUpperAlpha(vat[0]) || !isUpperAlpha(vat[1]) {
		return errors.New(errors.ErrCodeAdapterInvalidInput, "vat number must start with a 2-letter country prefix")
	}
	for i := 2; i < len(vat); i++ {
		if !isAlphanumeric(vat[i]) {
			return errors.Newf(errors.ErrCodeAdapterInvalidInput, "vat number contains invalid character %q", vat[i])
		}
	}
	return nil
}

// ValidateLEI checks that an LEI is exactly 20 alphanumeric characters.
func ValidateLEI(lei string) error {
	if len(lei) != 20 {
		return errors.Newf(errors.ErrCodeAdapterInvalidInput, "lei must be exactly 20 characters, got %d", len(lei))
	}
	for i := 0; i < len(lei); i++ {
		if !isAlphanumeric(lei[i]) {
			return errors.Newf(errors.ErrCodeAdapterInvalidInput, "lei contains invalid character %q", lei[i])
		}
	}
	return nil
}

func isUpperAlpha(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isAlphanumeric(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
