package loan

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	monthsPerYearPct = decimal.NewFromInt(1200)
	one              = decimal.NewFromInt(1)
)

func monthlyRate(annualRate float64) decimal.Decimal {
	return decimal.NewFromFloat(annualRate).Div(monthsPerYearPct)
}

// growth is (1+r)^n. The power is taken in float64: the factor is a ratio,
// and every money amount derived from it is rounded in decimal.
func growth(r decimal.Decimal, months int) decimal.Decimal {
	return decimal.NewFromFloat(math.Pow(1+r.InexactFloat64(), float64(months)))
}

func emiDecimal(principal decimal.Decimal, annualRate float64, months int) decimal.Decimal {
	if !principal.IsPositive() || months <= 0 {
		return decimal.Zero
	}
	if annualRate <= 0 {
		return principal.Div(decimal.NewFromInt(int64(months))).Round(2)
	}
	r := monthlyRate(annualRate)
	g := growth(r, months)
	return principal.Mul(r).Mul(g).Div(g.Sub(one)).Round(2)
}

// EMI returns the monthly installment of an amortizing loan, rounded to
// paise.
func EMI(principal, annualRate float64, months int) float64 {
	return emiDecimal(decimal.NewFromFloat(principal), annualRate, months).InexactFloat64()
}

// TotalInterest is EMI × months − principal.
func TotalInterest(principal, annualRate float64, months int) float64 {
	if principal <= 0 || months <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(principal)
	paid := emiDecimal(p, annualRate, months).Mul(decimal.NewFromInt(int64(months)))
	return paid.Sub(p).Round(2).InexactFloat64()
}

// MaxLoanFromEMI is the principal an installment can service.
func MaxLoanFromEMI(emi, annualRate float64, months int) float64 {
	if emi <= 0 || months <= 0 {
		return 0
	}
	e := decimal.NewFromFloat(emi)
	if annualRate <= 0 {
		return e.Mul(decimal.NewFromInt(int64(months))).Round(2).InexactFloat64()
	}
	r := monthlyRate(annualRate)
	g := growth(r, months)
	return e.Mul(g.Sub(one)).Div(r.Mul(g)).Round(2).InexactFloat64()
}

// Installment is one row of a repayment schedule.
type Installment struct {
	Month     string  `json:"month"`
	EMI       float64 `json:"emi"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// MaxTenureMonths is the longest tenure any catalog product offers and the
// longest schedule Schedule will build.
const MaxTenureMonths = 360

// Schedule amortizes a loan month by month starting at start. The last
// installment settles whatever the rounded EMI left, so the final balance
// is zero.
func Schedule(principal, annualRate float64, months int, start time.Time) []Installment {
	if principal <= 0 || months <= 0 || months > MaxTenureMonths {
		return nil
	}
	p := decimal.NewFromFloat(principal)
	emi := emiDecimal(p, annualRate, months)
	r := decimal.Zero
	if annualRate > 0 {
		r = monthlyRate(annualRate)
	}

	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	balance := p
	out := make([]Installment, 0, months)
	for i := range months {
		interest := balance.Mul(r).Round(2)
		installment := emi
		principalPart := emi.Sub(interest)
		if i == months-1 || principalPart.GreaterThan(balance) {
			principalPart = balance
			installment = balance.Add(interest)
		}
		balance = balance.Sub(principalPart)

		out = append(out, Installment{
			Month:     first.AddDate(0, i, 0).Format("Jan 2006"),
			EMI:       installment.Round(2).InexactFloat64(),
			Principal: principalPart.Round(2).InexactFloat64(),
			Interest:  interest.InexactFloat64(),
			Balance:   balance.Round(2).InexactFloat64(),
		})
		if balance.IsZero() {
			break
		}
	}
	return out
}

// DefaultScheduleStart is the first month of a schedule when none is given.
var DefaultScheduleStart = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseMonth reads "2026-01" or "Jan 2026", falling back to
// DefaultScheduleStart.
func ParseMonth(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01", "Jan 2006", "January 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return DefaultScheduleStart
}
