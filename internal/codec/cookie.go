// Package codec implements the pan-domain cookie wire format and PEM key
// formatting. It performs no I/O.
package codec

import (
	"encoding/base64"
	"strings"
)

// Separator splits the data segment from the signature segment.
const Separator = "."

// ParsedCookie is a cookie split into its decoded payload and its signature.
//
// Data holds the base64-decoded query-string payload. Signature is left as
// base64 text, the form the verifier consumes.
type ParsedCookie struct {
	Data      string
	Signature string
}

// ParseCookie splits a cookie on its single separator and decodes the data
// half. It reports false when there is not exactly one separator or when
// either half is not valid base64.
func ParseCookie(cookie string) (ParsedCookie, bool) {
	if strings.Count(cookie, Separator) != 1 {
		return ParsedCookie{}, false
	}

	data, signature, _ := strings.Cut(cookie, Separator)
	if data == "" || signature == "" {
		return ParsedCookie{}, false
	}

	decoded, err := DecodeBase64(data)
	if err != nil {
		return ParsedCookie{}, false
	}

	if _, err := base64.StdEncoding.Strict().DecodeString(signature); err != nil {
		return ParsedCookie{}, false
	}

	return ParsedCookie{Data: decoded, Signature: signature}, true
}

// EncodeCookie joins the base64-encoded field string and a base64 signature.
func EncodeCookie(fields string, signature string) string {
	return EncodeBase64(fields) + Separator + signature
}

// EncodeBase64 encodes text with the standard padded alphabet.
func EncodeBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// DecodeBase64 decodes standard padded base64 into text.
func DecodeBase64(s string) (string, error) {
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
