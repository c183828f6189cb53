package vc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc/vctest"
)

type ValidatorSuite struct {
	suite.Suite
	validator *Validator
	issuer    Issuer
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	s.validator = NewValidator()
}

func (s *ValidatorSuite) passportClaim() models.VcClaim {
	return models.VcClaim{
		Type:              []string{"VerifiableCredential", "IdentityCheckCredential"},
		Evidence:          []models.EvidenceItem{{Txn: "txn-1", StrengthScore: vctest.Score(4), ValidityScore: vctest.Score(2)}},
		CredentialSubject: vctest.Person("Kenneth", "Decerqueira", "1965-07-08"),
	}
}

func (s *ValidatorSuite) TestValidate() {
	key := vctest.NewKey(s.T())
	issuer := Issuer{CriID: "ukPassport", Issuer: "https://passport.example", PublicKey: &key.PublicKey}

	s.Run("accepts a credential signed by the CRI for the session user", func() {
		raw := vctest.Sign(s.T(), key, vctest.Credential{Issuer: issuer.Issuer, Subject: "user-1", Claim: s.passportClaim()})
		got, err := s.validator.Validate(raw, issuer, "user-1")
		s.Require().NoError(err)
		s.Equal(issuer.CriID, got.CriID)
		s.Equal(raw, got.Raw)
		s.Require().Len(got.Claims.Evidence, 1)
		s.Equal(4, got.Claims.Evidence[0].StrengthScore.Value())
	})

	s.Run("rejects a different subject", func() {
		raw := vctest.Sign(s.T(), key, vctest.Credential{Issuer: issuer.Issuer, Subject: "user-2", Claim: s.passportClaim()})
		_, err := s.validator.Validate(raw, issuer, "user-1")
		s.True(errors.Is(err, ErrInvalidCredential))
	})

	s.Run("rejects a different issuer", func() {
		raw := vctest.Sign(s.T(), key, vctest.Credential{Issuer: "https://evil.example", Subject: "user-1", Claim: s.passportClaim()})
		_, err := s.validator.Validate(raw, issuer, "user-1")
		s.True(errors.Is(err, ErrInvalidCredential))
	})

	s.Run("rejects a signature from another key", func() {
		other := vctest.NewKey(s.T())
		raw := vctest.Sign(s.T(), other, vctest.Credential{Issuer: issuer.Issuer, Subject: "user-1", Claim: s.passportClaim()})
		_, err := s.validator.Validate(raw, issuer, "user-1")
		s.True(errors.Is(err, ErrInvalidCredential))
	})

	s.Run("rejects an expired credential", func() {
		raw := vctest.Sign(s.T(), key, vctest.Credential{
			Issuer: issuer.Issuer, Subject: "user-1", Claim: s.passportClaim(),
			IssuedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour),
		})
		_, err := s.validator.Validate(raw, issuer, "user-1")
		s.True(errors.Is(err, ErrInvalidCredential))
	})

	s.Run("rejects when no key is configured", func() {
		_, err := s.validator.Validate("a.b.c", Issuer{CriID: "ukPassport"}, "user-1")
		s.True(errors.Is(err, ErrInvalidCredential))
	})

	s.Run("reads the vot of operational credentials", func() {
		raw := vctest.Sign(s.T(), key, vctest.Credential{Issuer: issuer.Issuer, Subject: "user-1", Vot: "PCL250"})
		got, err := s.validator.Validate(raw, issuer, "user-1")
		s.Require().NoError(err)
		s.True(got.IsOperational())
	})
}

func (s *ValidatorSuite) TestValidateAll() {
	key := vctest.NewKey(s.T())
	issuer := Issuer{CriID: "ukPassport", Issuer: "https://passport.example", PublicKey: &key.PublicKey}
	good := vctest.Sign(s.T(), key, vctest.Credential{Issuer: issuer.Issuer, Subject: "user-1", Claim: s.passportClaim()})
	bad := vctest.Sign(s.T(), key, vctest.Credential{Issuer: issuer.Issuer, Subject: "someone-else", Claim: s.passportClaim()})

	s.Run("one bad credential rejects the set", func() {
		got, err := s.validator.ValidateAll([]string{good, bad}, issuer, "user-1")
		s.Require().Error(err)
		s.Nil(got)
	})

	s.Run("stored credentials decode without a key", func() {
		got, err := Decode(good, "ukPassport", "user-1")
		s.Require().NoError(err)
		s.Equal("https://passport.example", got.Issuer)
		s.Equal("KENNETH DECERQUEIRA", got.Claims.CredentialSubject.Name[0].FullName())
	})
}

func TestAreCorrelated(t *testing.T) {
	person := func(given, family, dob string) models.VerifiableCredential {
		return models.VerifiableCredential{Claims: models.VcClaim{CredentialSubject: vctest.Person(given, family, dob)}}
	}
	address := models.VerifiableCredential{CriID: "address"}

	tests := []struct {
		name string
		vcs  []models.VerifiableCredential
		want bool
	}{
		{"empty set", nil, true},
		{"same person with case differences", []models.VerifiableCredential{person("Kenneth", "Decerqueira", "1965-07-08"), person("KENNETH", "decerqueira", "1965-07-08"), address}, true},
		{"different family name", []models.VerifiableCredential{person("Kenneth", "Decerqueira", "1965-07-08"), person("Kenneth", "Smith", "1965-07-08")}, false},
		{"different birth date", []models.VerifiableCredential{person("Kenneth", "Decerqueira", "1965-07-08"), person("Kenneth", "Decerqueira", "1965-07-09")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AreCorrelated(tt.vcs); got != tt.want {
				t.Errorf("AreCorrelated() = %v, want %v", got, tt.want)
			}
		})
	}
}
