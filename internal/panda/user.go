package panda

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wire names of the cookie payload fields.
const (
	fieldFirstName   = "firstName"
	fieldLastName    = "lastName"
	fieldEmail       = "email"
	fieldAvatarURL   = "avatarUrl"
	fieldSystem      = "system"
	fieldAuthedIn    = "authedIn"
	fieldExpires     = "expires"
	fieldMultifactor = "multifactor"
)

var (
	// ErrMissingField is returned by ParseUser when a required field is absent.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidField is returned by ParseUser when a field has the wrong type.
	ErrInvalidField = errors.New("invalid field")
)

// User is the identity carried by a pan-domain cookie.
//
// AvatarURL is optional; the empty string means absent. Expires is in epoch
// milliseconds.
type User struct {
	FirstName            string   `json:"firstName"`
	LastName             string   `json:"lastName"`
	Email                string   `json:"email"`
	AvatarURL            string   `json:"avatarUrl,omitempty"`
	AuthenticatingSystem string   `json:"authenticatingSystem"`
	AuthenticatedIn      []string `json:"authenticatedIn"`
	Expires              int64    `json:"expires"`
	Multifactor          bool     `json:"multifactor"`
}

// ExpiresAt returns Expires as a time.
func (u User) ExpiresAt() time.Time {
	return time.UnixMilli(u.Expires)
}

// Fields returns the canonical payload string that is signed and carried in
// the data segment of the cookie. Field order is fixed.
func (u User) Fields() string {
	params := make([]string, 0, 8)

	params = append(params, fieldFirstName+"="+u.FirstName)
	params = append(params, fieldLastName+"="+u.LastName)
	params = append(params, fieldEmail+"="+u.Email)
	if u.AvatarURL != "" {
		params = append(params, fieldAvatarURL+"="+u.AvatarURL)
	}
	params = append(params, fieldSystem+"="+u.AuthenticatingSystem)
	params = append(params, fieldAuthedIn+"="+strings.Join(u.AuthenticatedIn, ","))
	params = append(params, fieldExpires+"="+strconv.FormatInt(u.Expires, 10))
	params = append(params, fieldMultifactor+"="+strconv.FormatBool(u.Multifactor))

	return strings.Join(params, "&")
}

// ParseUser decodes a cookie payload into a User.
//
// Values are taken raw, without unescaping. When a key repeats the first
// occurrence wins.
func ParseUser(payload string) (User, error) {
	params := parsePayload(payload)

	required := func(name string) (string, error) {
		v, ok := params[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingField, name)
		}
		return v, nil
	}

	var (
		u   User
		err error
	)

	if u.FirstName, err = required(fieldFirstName); err != nil {
		return User{}, err
	}
	if u.LastName, err = required(fieldLastName); err != nil {
		return User{}, err
	}
	if u.Email, err = required(fieldEmail); err != nil {
		return User{}, err
	}
	u.AvatarURL = params[fieldAvatarURL]
	if u.AuthenticatingSystem, err = required(fieldSystem); err != nil {
		return User{}, err
	}

	authedIn, err := required(fieldAuthedIn)
	if err != nil {
		return User{}, err
	}
	u.AuthenticatedIn = strings.Split(authedIn, ",")

	expires, err := required(fieldExpires)
	if err != nil {
		return User{}, err
	}
	if u.Expires, err = strconv.ParseInt(expires, 10, 64); err != nil {
		return User{}, fmt.Errorf("%w: %s: %q", ErrInvalidField, fieldExpires, expires)
	}

	u.Multifactor = params[fieldMultifactor] == "true"

	return u, nil
}

func parsePayload(payload string) map[string]string {
	params := make(map[string]string)
	if payload == "" {
		return params
	}

	for _, pair := range strings.Split(payload, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if _, seen := params[k]; !seen {
			params[k] = v
		}
	}

	return params
}
