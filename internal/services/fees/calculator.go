package fees

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/paylater-service/internal/domain/ports"
)

// Rates holds the configured fee and interest rates
type Rates struct {
	MonthlyLateFeeRate decimal.Decimal // Late fee rate per 30 days overdue
	LateFeeCapRate     decimal.Decimal // Late fee ceiling as a fraction of the original amount
	CardFeeRate        decimal.Decimal // Processing fee rate for card-like methods
	CardFeeFixed       decimal.Decimal // Fixed part added to card processing fees
	BankFeeRate        decimal.Decimal // Processing fee rate for bank transfers / ACH
	MinProcessingFee   decimal.Decimal
	MaxProcessingFee   decimal.Decimal
	AnnualInterestRate decimal.Decimal
}

// DefaultRates returns the current fee policy: 5% monthly late fee capped at
// 50%, 2.9% + $0.30 card fee clamped to [$0.30, $10.00], 1% bank fee, 12%
// annual interest.
func DefaultRates() Rates {
	return Rates{
		MonthlyLateFeeRate: decimal.NewFromFloat(0.05),
		LateFeeCapRate:     decimal.NewFromFloat(0.50),
		CardFeeRate:        decimal.NewFromFloat(0.029),
		CardFeeFixed:       decimal.NewFromFloat(0.30),
		BankFeeRate:        decimal.NewFromFloat(0.01),
		MinProcessingFee:   decimal.NewFromFloat(0.30),
		MaxProcessingFee:   decimal.NewFromFloat(10.00),
		AnnualInterestRate: decimal.NewFromFloat(0.12),
	}
}

// Calculator computes late fees, processing fees, interest and totals. All
// arithmetic is on decimals; results are rounded half-up to 2 decimal places.
type Calculator struct {
	rates Rates
	clock ports.Clock
}

// NewCalculator creates a fee calculator with the given rates and clock
func NewCalculator(rates Rates, clock ports.Clock) *Calculator {
	return &Calculator{rates: rates, clock: clock}
}

var (
	daysPerMonth = decimal.NewFromInt(30)
	daysPerYear  = decimal.NewFromInt(365)
)

// LateFee returns the late fee for an amount overdue by the given number of
// days: amount * monthlyRate * days/30, capped at the configured fraction of
// the original amount. Zero when not overdue.
func (c *Calculator) LateFee(originalAmount decimal.Decimal, daysOverdue int) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero.Round(2)
	}

	// Pro-rated monthly rate, held at 4 decimal places before applying
	rate := c.rates.MonthlyLateFeeRate.
		Mul(decimal.NewFromInt(int64(daysOverdue))).
		DivRound(daysPerMonth, 4)

	fee := originalAmount.Mul(rate)

	cap := originalAmount.Mul(c.rates.LateFeeCapRate)
	if fee.GreaterThan(cap) {
		fee = cap
	}

	return fee.Round(2)
}

// ProcessingFee returns the gateway processing fee for the given payment
// method kind, clamped to the configured [min, max] range. Unknown methods
// fall back to the card rate.
func (c *Calculator) ProcessingFee(amount decimal.Decimal, paymentMethod string) decimal.Decimal {
	var fee decimal.Decimal

	switch strings.ToLower(paymentMethod) {
	case "bank_transfer", "ach":
		fee = amount.Mul(c.rates.BankFeeRate)
	case "credit_card", "debit_card", "paypal":
		fee = amount.Mul(c.rates.CardFeeRate).Add(c.rates.CardFeeFixed)
	default:
		fee = amount.Mul(c.rates.CardFeeRate).Add(c.rates.CardFeeFixed)
	}

	if fee.LessThan(c.rates.MinProcessingFee) {
		fee = c.rates.MinProcessingFee
	} else if fee.GreaterThan(c.rates.MaxProcessingFee) {
		fee = c.rates.MaxProcessingFee
	}

	return fee.Round(2)
}

// Interest returns simple interest on a principal over the given number of
// days. The daily rate keeps 6 decimal places so repeated calls do not
// compound rounding error.
func (c *Calculator) Interest(principal, annualRate decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero.Round(2)
	}

	dailyRate := annualRate.DivRound(daysPerYear, 6)
	interest := principal.Mul(dailyRate).Mul(decimal.NewFromInt(int64(days)))

	return interest.Round(2)
}

// TotalAmount sums an original amount with its fees and interest
func (c *Calculator) TotalAmount(original, lateFee, processingFee, interest decimal.Decimal) decimal.Decimal {
	return original.Add(lateFee).Add(processingFee).Add(interest).Round(2)
}

// IsOverdue returns true if the due date is strictly before the current time
func (c *Calculator) IsOverdue(dueDate time.Time) bool {
	return dueDate.Before(c.clock.Now())
}

// DaysOverdue returns the number of whole days elapsed since the due date, or
// zero if the payment is not overdue
func (c *Calculator) DaysOverdue(dueDate time.Time) int {
	now := c.clock.Now()
	if !dueDate.Before(now) {
		return 0
	}
	days := int(now.Sub(dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
