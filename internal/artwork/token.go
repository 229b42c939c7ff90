package artwork

import "golang.org/x/text/unicode/norm"

// NormalizeToken returns the canonical form of a producer token.
// Tokens are NFC-normalised; the empty string means "no token".
func NormalizeToken(token string) string {
	if token == "" {
		return ""
	}
	return norm.NFC.String(token)
}
