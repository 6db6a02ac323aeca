// Package panda verifies pan-domain authentication cookies.
//
// A pan-domain cookie is a signed, self-describing credential shared by
// services that trust one RSA public key. The cookie has the form
//
//	base64(firstName=..&lastName=..&...&multifactor=true).base64(signature)
//
// VerifyUser checks a single cookie against a public key. Authenticator wraps
// it with a cached, periodically refreshed key and cookie header parsing, and
// is what HTTP and gRPC adapters call on each request.
package panda
