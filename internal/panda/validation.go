package panda

import "strings"

// GuardianValidation accepts users with a guardian.co.uk address who signed
// in with multifactor authentication.
func GuardianValidation(u User) bool {
	return strings.Contains(u.Email, "guardian.co.uk") && u.Multifactor
}
