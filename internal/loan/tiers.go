// Package loan maps trust scores and repayment capacity onto loan products:
// tier limits, eligibility, sizing, EMI schedules and improvement paths.
package loan

// TierKey names a score band.
type TierKey string

const (
	TierExcellent TierKey = "excellent"
	TierGood      TierKey = "good"
	TierFair      TierKey = "fair"
	TierPoor      TierKey = "poor"
	TierVeryPoor  TierKey = "very_poor"
)

// Range is an inclusive [low, high] pair, encoded as a two-element array.
type Range [2]float64

func (r Range) Low() float64  { return r[0] }
func (r Range) High() float64 { return r[1] }
func (r Range) Span() float64 { return r[1] - r[0] }

// IntRange is an inclusive whole-number range.
type IntRange [2]int

func (r IntRange) Low() int  { return r[0] }
func (r IntRange) High() int { return r[1] }

// Mid returns the truncated midpoint.
func (r IntRange) Mid() int { return (r[0] + r[1]) / 2 }

// Tier holds the lending limits of one score band.
type Tier struct {
	Key                   TierKey  `json:"tier_key"`
	Range                 IntRange `json:"range"`
	Grade                 string   `json:"grade"`
	MaxSimultaneousLoans  int      `json:"max_simultaneous_loans"`
	MaxExposureMultiplier float64  `json:"max_exposure_multiplier"`
	BaseInterestRange     Range    `json:"base_interest_range"`
	MaxTenureMonths       int      `json:"max_tenure_months"`
	FOIRCap               float64  `json:"foir_cap"`
	CollateralRequired    bool     `json:"collateral_required"`
	ProcessingFeePct      float64  `json:"processing_fee_pct"`
	PreApproval           string   `json:"pre_approval"`
	Color                 string   `json:"color"`
}

// Bands are closed-open on the lower bound: 749.6 is good, 750 is
// excellent. 900 belongs to excellent.
var tiers = []Tier{
	{
		Key: TierExcellent, Range: IntRange{750, 900}, Grade: "Excellent",
		MaxSimultaneousLoans: 3, MaxExposureMultiplier: 6.0, BaseInterestRange: Range{9, 12},
		MaxTenureMonths: 60, FOIRCap: 0.50, ProcessingFeePct: 1.0,
		PreApproval: "Pre-Approved", Color: "#22c55e",
	},
	{
		Key: TierGood, Range: IntRange{650, 749}, Grade: "Good",
		MaxSimultaneousLoans: 2, MaxExposureMultiplier: 4.0, BaseInterestRange: Range{13, 16},
		MaxTenureMonths: 36, FOIRCap: 0.40, ProcessingFeePct: 1.5,
		PreApproval: "Likely Approved", Color: "#84cc16",
	},
	{
		Key: TierFair, Range: IntRange{500, 649}, Grade: "Fair",
		MaxSimultaneousLoans: 1, MaxExposureMultiplier: 2.0, BaseInterestRange: Range{18, 22},
		MaxTenureMonths: 18, FOIRCap: 0.35, ProcessingFeePct: 2.0,
		PreApproval: "Needs Review", Color: "#eab308",
	},
	{
		Key: TierPoor, Range: IntRange{400, 499}, Grade: "Poor",
		MaxSimultaneousLoans: 1, MaxExposureMultiplier: 1.0, BaseInterestRange: Range{24, 30},
		MaxTenureMonths: 12, FOIRCap: 0.30, CollateralRequired: true, ProcessingFeePct: 2.5,
		PreApproval: "High Risk", Color: "#f97316",
	},
	{
		Key: TierVeryPoor, Range: IntRange{300, 399}, Grade: "Very Poor",
		CollateralRequired: true, PreApproval: "Not Eligible", Color: "#ef4444",
	},
}

// TierFor resolves the band of a score. Scores below 300 are very poor and
// scores above 900 excellent.
func TierFor(score float64) Tier {
	for _, t := range tiers {
		if score >= float64(t.Range.Low()) {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// Tiers returns every band, best first.
func Tiers() []Tier {
	return append([]Tier(nil), tiers...)
}

func tierByKey(key TierKey) (Tier, bool) {
	for _, t := range tiers {
		if t.Key == key {
			return t, true
		}
	}
	return Tier{}, false
}
