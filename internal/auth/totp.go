package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
)

// TOTPIssuer names the panel in authenticator apps.
const TOTPIssuer = "gostpanel"

// GenerateTOTPSecret creates a new TOTP key for account and returns its
// base32 secret and otpauth:// URL.
func GenerateTOTPSecret(account string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP reports whether code is valid for secret now
func ValidateTOTP(code, secret string) bool {
	return totp.Validate(code, secret)
}

// TOTPCode returns the current code for secret. Used by seeding and tests.
func TOTPCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCode(secret, at)
}
