package persona

import (
	"errors"
	"fmt"
)

// ErrUnknownPersona is returned for a persona key outside the catalog.
var ErrUnknownPersona = errors.New("unknown persona")

// Persona keys.
const (
	Farmer        = "farmer"
	Student       = "student"
	StreetVendor  = "street_vendor"
	Homemaker     = "homemaker"
	GeneralNoBank = "general_no_bank"
)

// Weight is one criterion's share of a persona score.
type Weight struct {
	Criterion Criterion `json:"criterion"`
	Weight    float64   `json:"weight"`
}

// Profile describes one persona and its ordered criterion weights.
type Profile struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Weights     []Weight `json:"criteria"`
}

var profiles = []Profile{
	{
		Key:         Farmer,
		Label:       "🌾 Farmer",
		Description: "Earns through agriculture: crop sales, dairy, govt subsidies",
		Weights: []Weight{
			{LandAsset, 0.20},
			{CropConsistency, 0.20},
			{SubsidyLinkage, 0.15},
			{MarketEngagement, 0.15},
			{CommunityTrust, 0.10},
			{UtilityDiscipline, 0.10},
			{MobileBehaviour, 0.10},
		},
	},
	{
		Key:         Student,
		Label:       "🎓 Student",
		Description: "Currently studying, scored on potential",
		Weights: []Weight{
			{AcademicPerformance, 0.25},
			{ScholarshipHistory, 0.15},
			{SkillCertifications, 0.15},
			{AttendanceDiscipline, 0.10},
			{PartTimeIncome, 0.10},
			{CommunityTrust, 0.10},
			{MobileBehaviour, 0.10},
			{FuturePotential, 0.05},
		},
	},
	{
		Key:         StreetVendor,
		Label:       "🏪 Street Vendor / Informal Worker",
		Description: "Daily earnings through informal trade, no fixed salary",
		Weights: []Weight{
			{DailyIncomeConsistency, 0.20},
			{RentalDiscipline, 0.15},
			{UtilityDiscipline, 0.15},
			{SavingsHabit, 0.15},
			{CommunityTrust, 0.15},
			{MobileBehaviour, 0.10},
			{YearsInTrade, 0.10},
		},
	},
	{
		Key:         Homemaker,
		Label:       "🏠 Homemaker",
		Description: "Manages household: tracks expenses, savings groups, micro-enterprise",
		Weights: []Weight{
			{HouseholdBudgeting, 0.20},
			{SavingsHabit, 0.20},
			{CommunityTrust, 0.15},
			{UtilityDiscipline, 0.15},
			{MicroEnterprise, 0.10},
			{MobileBehaviour, 0.10},
			{SkillCertifications, 0.10},
		},
	},
	{
		Key:         GeneralNoBank,
		Label:       "👤 General (No Bank Account)",
		Description: "No formal banking, scored on lifestyle signals",
		Weights: []Weight{
			{MobileBehaviour, 0.20},
			{UtilityDiscipline, 0.20},
			{RentalDiscipline, 0.15},
			{CommunityTrust, 0.15},
			{SavingsHabit, 0.15},
			{IDVerification, 0.10},
			{Psychometric, 0.05},
		},
	},
}

// Profiles returns every persona in catalog order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		out[i] = p.clone()
	}
	return out
}

// Keys returns the persona keys in catalog order.
func Keys() []string {
	keys := make([]string, len(profiles))
	for i, p := range profiles {
		keys[i] = p.Key
	}
	return keys
}

// Lookup returns the profile for key.
func Lookup(key string) (Profile, error) {
	for _, p := range profiles {
		if p.Key == key {
			return p.clone(), nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownPersona, key)
}

func (p Profile) clone() Profile {
	p.Weights = append([]Weight(nil), p.Weights...)
	return p
}
