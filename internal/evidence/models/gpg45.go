package models

import "fmt"

// Scores holds, per category, the maximum value seen across a credential set.
type Scores struct {
	Strength     int `json:"strength"`
	Validity     int `json:"validity"`
	Activity     int `json:"activity"`
	Fraud        int `json:"fraud"`
	Verification int `json:"verification"`
}

// Satisfies reports whether every threshold in min is met.
func (s Scores) Satisfies(min Scores) bool {
	return s.Strength >= min.Strength &&
		s.Validity >= min.Validity &&
		s.Activity >= min.Activity &&
		s.Fraud >= min.Fraud &&
		s.Verification >= min.Verification
}

func (s Scores) String() string {
	return fmt.Sprintf("%d%d%d%d%d", s.Strength, s.Validity, s.Activity, s.Fraud, s.Verification)
}

// Profile is a named set of minimum per-category thresholds.
type Profile struct {
	Name       string `json:"name"`
	Thresholds Scores `json:"thresholds"`
}

// GPG45 profiles accepted by this service.
var (
	ProfileM1A = Profile{Name: "M1A", Thresholds: Scores{Strength: 4, Validity: 2, Activity: 0, Fraud: 1, Verification: 2}}
	ProfileM1B = Profile{Name: "M1B", Thresholds: Scores{Strength: 3, Validity: 2, Activity: 1, Fraud: 2, Verification: 2}}
	ProfileM1C = Profile{Name: "M1C", Thresholds: Scores{Strength: 3, Validity: 3, Activity: 1, Fraud: 1, Verification: 3}}
	ProfileM2A = Profile{Name: "M2A", Thresholds: Scores{Strength: 4, Validity: 3, Activity: 0, Fraud: 2, Verification: 1}}
	ProfileL1A = Profile{Name: "L1A", Thresholds: Scores{Strength: 2, Validity: 2, Activity: 0, Fraud: 1, Verification: 1}}
)

// ProfileType separates scored GPG45 trust levels from operational ones, which
// are asserted directly by an issuer through the VC's vot claim.
type ProfileType string

const (
	ProfileTypeGPG45       ProfileType = "GPG45"
	ProfileTypeOperational ProfileType = "OPERATIONAL"
)

// Vot is a vector-of-trust value.
type Vot string

const (
	VotP0     Vot = "P0"
	VotP1     Vot = "P1"
	VotP2     Vot = "P2"
	VotPCL200 Vot = "PCL200"
	VotPCL250 Vot = "PCL250"
)

// SupportedVotsByStrength is the order in which reuse tries trust levels.
var SupportedVotsByStrength = []Vot{VotP2, VotPCL250, VotPCL200, VotP1}

var votProfiles = map[Vot][]Profile{
	VotP2: {ProfileM1A, ProfileM1B, ProfileM1C, ProfileM2A},
	VotP1: {ProfileL1A, ProfileM1A, ProfileM1B},
}

var votTypes = map[Vot]ProfileType{
	VotP1:     ProfileTypeGPG45,
	VotP2:     ProfileTypeGPG45,
	VotPCL200: ProfileTypeOperational,
	VotPCL250: ProfileTypeOperational,
}

// ProfileType returns the type of the vot; unknown vots are GPG45 with no profiles.
func (v Vot) ProfileType() ProfileType {
	if t, ok := votTypes[v]; ok {
		return t
	}
	return ProfileTypeGPG45
}

// Profiles returns the accepted profiles for a GPG45 vot, in priority order.
func (v Vot) Profiles() []Profile {
	return append([]Profile(nil), votProfiles[v]...)
}

// ParseVot validates a vot string.
func ParseVot(s string) (Vot, error) {
	v := Vot(s)
	if v == VotP0 {
		return v, nil
	}
	if _, ok := votTypes[v]; !ok {
		return "", fmt.Errorf("unrecognised vot %q", s)
	}
	return v, nil
}
