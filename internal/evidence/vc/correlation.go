package vc

import (
	"ipvcore/internal/evidence/models"
)

// AreCorrelated reports whether every credential carrying a name agrees on
// it and every credential carrying a birth date agrees on it. Credentials
// with neither (address, some fraud checks) are ignored.
func AreCorrelated(vcs []models.VerifiableCredential) bool {
	return allEqual(vcs, fullNames) && allEqual(vcs, birthDates)
}

func allEqual(vcs []models.VerifiableCredential, values func(models.VerifiableCredential) []string) bool {
	var want string
	seen := false
	for _, vc := range vcs {
		for _, v := range values(vc) {
			if v == "" {
				continue
			}
			if !seen {
				want, seen = v, true
				continue
			}
			if v != want {
				return false
			}
		}
	}
	return true
}

func fullNames(vc models.VerifiableCredential) []string {
	names := vc.Claims.CredentialSubject.Name
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.FullName())
	}
	return out
}

func birthDates(vc models.VerifiableCredential) []string {
	dates := vc.Claims.CredentialSubject.BirthDate
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Value)
	}
	return out
}
