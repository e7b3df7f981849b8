package loan

import (
	"fmt"
	"slices"

	"github.com/opensource-finance/credivist/internal/persona"
)

// Season is a crop season and when to borrow for it.
type Season struct {
	Name    string   `json:"season"`
	Months  []string `json:"months"`
	ApplyBy string   `json:"apply_by"`
	Crops   string   `json:"crops"`
	LoanKey string   `json:"loan_type"`
}

// SeasonalAdvice is a crop loan prompt for the current month.
type SeasonalAdvice struct {
	Season          string `json:"season"`
	Status          string `json:"status"`
	Crops           string `json:"crops"`
	RecommendedLoan string `json:"recommended_loan"`
	Advice          string `json:"advice"`
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var seasons = []Season{
	{"Kharif", []string{"Jun", "Jul", "Aug", "Sep", "Oct"}, "May", "Rice, Maize, Soybean, Cotton, Groundnut, Jowar", "crop_loan"},
	{"Rabi", []string{"Oct", "Nov", "Dec", "Jan", "Feb"}, "Sep", "Wheat, Mustard, Gram, Barley, Peas", "crop_loan"},
	{"Zaid", []string{"Mar", "Apr", "May", "Jun"}, "Feb", "Watermelon, Muskmelon, Cucumber, Moong", "crop_loan"},
}

// Seasons returns the crop calendar.
func Seasons() []Season {
	out := make([]Season, len(seasons))
	for i, s := range seasons {
		s.Months = slices.Clone(s.Months)
		out[i] = s
	}
	return out
}

// Seasonal returns the crop loan advice for a three-letter month. Only
// farmers get seasonal advice.
func Seasonal(personaKey, month string) []SeasonalAdvice {
	out := []SeasonalAdvice{}
	if personaKey != persona.Farmer {
		return out
	}

	for _, s := range seasons {
		active := slices.Contains(s.Months, month)
		if !active && month != s.ApplyBy {
			continue
		}
		status, phase := "Apply Now", "starts soon"
		if active {
			status, phase = "Active", "is active"
		}
		out = append(out, SeasonalAdvice{
			Season:          s.Name,
			Status:          status,
			Crops:           s.Crops,
			RecommendedLoan: s.LoanKey,
			Advice:          fmt.Sprintf("%s season %s. Apply for crop loan by %s for best rates.", s.Name, phase, s.ApplyBy),
		})
	}
	if len(out) > 0 {
		return out
	}

	current := max(slices.Index(monthNames, month), 0)
	for _, s := range seasons {
		if slices.Index(monthNames, s.ApplyBy) > current {
			return append(out, SeasonalAdvice{
				Season:          s.Name,
				Status:          "Upcoming: Apply by " + s.ApplyBy,
				Crops:           s.Crops,
				RecommendedLoan: s.LoanKey,
				Advice: fmt.Sprintf("Plan ahead: %s crop loan applications open in %s. Prepare land records and sowing certificate.",
					s.Name, s.ApplyBy),
			})
		}
	}
	return out
}
