package codec

import "strings"

const pemLineLength = 64

// Labels for the PKIX public and PKCS#8 private keys kept in settings files.
const (
	LabelPublic  = "PUBLIC"
	LabelPrivate = "PRIVATE"
)

// FormatPEM wraps single-line base64 key material in PEM armour.
//
// Lines are 64 characters; the last line is not padded and there is no
// trailing newline after the footer. The output is fed directly to the
// signature verifier, so it must stay byte-exact.
func FormatPEM(key string, label string) string {
	var b strings.Builder

	b.WriteString("-----BEGIN " + label + " KEY-----")
	for start := 0; start < len(key); start += pemLineLength {
		end := min(start+pemLineLength, len(key))
		b.WriteByte('\n')
		b.WriteString(key[start:end])
	}
	b.WriteString("\n-----END " + label + " KEY-----")

	return b.String()
}
