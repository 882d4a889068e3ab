// Package sepa holds the direct-debit conventions the contract service relies
// on: money formatting, IBAN/BIC checks, payment frequencies and cycle days.
package sepa

import (
	"math/big"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Payment instrument names CiviSEPA registers for direct debits.
var PaymentInstruments = []string{"RCUR", "OOFF", "FRST"}

// Mandate statuses.
const (
	MandateFirst     = "FRST"
	MandateRecurring = "RCUR"
	MandateOnHold    = "ONHOLD"
	MandateComplete  = "COMPLETE"
)

// Frequencies maps installments per year to their display name.
var Frequencies = map[int64]string{
	1:  "annually",
	2:  "semi-annually",
	4:  "quarterly",
	12: "monthly",
}

// IsFrequency reports whether f installments per year is supported.
func IsFrequency(f int64) bool {
	_, ok := Frequencies[f]
	return ok
}

// FrequencyKeys returns the supported frequencies in ascending order.
func FrequencyKeys() []int64 {
	keys := make([]int64, 0, len(Frequencies))
	for k := range Frequencies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// IntervalFor returns the month interval between installments for a yearly
// frequency, e.g. 4 → 3 months.
func IntervalFor(frequency int64) int64 {
	if frequency <= 0 || 12%frequency != 0 {
		return 0
	}
	return 12 / frequency
}

// FormatMoney renders an amount with two decimals, '.' separator and no
// thousands grouping.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ParseMoney parses a host amount; empty input is zero.
func ParseMoney(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
}

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

// NormalizeIBAN strips spaces and upper-cases.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

// ValidateIBAN performs the ISO 13616 mod-97 check.
func ValidateIBAN(iban string) bool {
	iban = NormalizeIBAN(iban)
	if !ibanPattern.MatchString(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		default:
			digits.WriteString(big.NewInt(int64(r-'A') + 10).String())
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// RegisterValidations adds the "iban" tag to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("iban", func(fl validator.FieldLevel) bool {
		return ValidateIBAN(fl.Field().String())
	})
}

// CycleDays are the collection days offered for new mandates.
func CycleDays() []int64 {
	days := make([]int64, 28)
	for i := range days {
		days[i] = int64(i + 1)
	}
	return days
}

// NextCycleDay returns the first cycle day at least noticeDays after now.
func NextCycleDay(now time.Time, noticeDays int) int64 {
	earliest := now.AddDate(0, 0, noticeDays)
	day := int64(earliest.Day())
	if day > 28 {
		return 1
	}
	return day
}
