// Package payment renders recurring contributions for display and decides
// which of them may be attached to a contract.
package payment

import (
	"fmt"
	"strconv"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/sepa"
)

// MandateTable is the entity_table of mandates attached to recurring
// contributions.
const MandateTable = "civicrm_contribution_recur"

// Fields is the structured part of a rendered payment.
type Fields struct {
	DisplayName       string `json:"display_name"`
	PaymentInstrument string `json:"payment_instrument"`
	Frequency         string `json:"frequency"`
	Amount            string `json:"amount"`
	AnnualAmount      string `json:"annual_amount"`
	NextDebit         string `json:"next_debit"`
	IBAN              string `json:"iban,omitempty"`
	OrgIBAN           string `json:"org_iban,omitempty"`
	CreditorName      string `json:"creditor_name,omitempty"`
}

// Rendered is a display-ready recurring contribution.
type Rendered struct {
	ID            int64  `json:"id"`
	Label         string `json:"label"`
	ContractLabel string `json:"contract_label"`
	TextSummary   string `json:"text_summary"`
	Fields        Fields `json:"fields"`
}

// Instruments holds the payment instrument labels by value and the values
// that denote SEPA direct debits.
type Instruments struct {
	Labels map[string]string
	SEPA   map[string]bool
}

// IsSEPA reports whether the instrument value is a direct debit.
func (i Instruments) IsSEPA(value string) bool {
	return i.SEPA[value]
}

var frequencyShorthands = map[string]string{
	"Every 12 months": "annually",
	"Every year":      "annually",
	"Every month":     "monthly",
}

// FrequencyPhrase describes an installment schedule, e.g. "Every 3 months".
func FrequencyPhrase(interval int64, unit string) string {
	var phrase string
	if interval == 1 {
		phrase = "Every " + unit
	} else {
		phrase = fmt.Sprintf("Every %d %ss", interval, unit)
	}
	if short, ok := frequencyShorthands[phrase]; ok {
		return short
	}
	return phrase
}

// AnnualAmount extrapolates one installment to a year. Only month and year
// units are understood.
func AnnualAmount(amount decimal.Decimal, unit string, interval int64) (decimal.Decimal, error) {
	var multiplier int64
	switch unit {
	case "month":
		multiplier = 12
	case "year":
		multiplier = 1
	default:
		return decimal.Zero, apperror.Unsupported("frequency unit", unit)
	}
	if interval <= 0 {
		return decimal.Zero, apperror.Unsupported("frequency interval", strconv.FormatInt(interval, 10))
	}
	return amount.Mul(decimal.NewFromInt(multiplier)).Div(decimal.NewFromInt(interval)), nil
}

// AnnualAmountOf reads amount, unit and interval from a ContributionRecur.
func AnnualAmountOf(payment entity.Record) (decimal.Decimal, error) {
	amount, err := sepa.ParseMoney(payment.String("amount"))
	if err != nil {
		return decimal.Zero, apperror.Validation("amount", "Invalid amount '%s'.", payment.String("amount"))
	}
	return AnnualAmount(amount, payment.String("frequency_unit"), payment.Int64("frequency_interval"))
}

// Render formats payment for contact. mandates and creditors are the
// candidate SEPA records; the matching ones are picked by id.
func Render(payment, contact entity.Record, mandates, creditors []entity.Record, instruments Instruments) (Rendered, error) {
	amount, err := sepa.ParseMoney(payment.String("amount"))
	if err != nil {
		return Rendered{}, apperror.Validation("amount", "Invalid amount '%s' on recurring contribution [%d].", payment.String("amount"), payment.ID())
	}
	annual, err := AnnualAmountOf(payment)
	if err != nil {
		return Rendered{}, err
	}

	instrument := payment.String("payment_instrument_id")
	f := Fields{
		DisplayName:       contact.String("display_name"),
		PaymentInstrument: instruments.Labels[instrument],
		Frequency:         FrequencyPhrase(payment.Int64("frequency_interval"), payment.String("frequency_unit")),
		Amount:            sepa.FormatMoney(amount),
		AnnualAmount:      sepa.FormatMoney(annual),
		NextDebit:         "?",
	}
	currency := payment.String("currency")
	out := Rendered{ID: payment.ID()}

	var mandate entity.Record
	if instruments.IsSEPA(instrument) {
		mandate = mandateFor(payment.ID(), mandates)
		if mandate == nil {
			fiberlog.Warnf("[Payment] No mandate found for SEPA recurring contribution [%d]", payment.ID())
		}
	}

	var lines []string
	if mandate != nil {
		creditor := byID(creditors, mandate.Int64("creditor_id"))
		f.PaymentInstrument = "SEPA Direct Debit"
		f.IBAN = mandate.String("iban")
		f.OrgIBAN = creditor.String("iban")
		f.CreditorName = creditor.String("name")
		if next := payment.String("next_sched_contribution_date"); next != "" {
			f.NextDebit = truncate(next, 10)
		}
		out.Label = fmt.Sprintf("SEPA, %s %s (%s)", f.Amount, f.Frequency, mandate.String("reference"))
		lines = []string{
			"Debitor name: " + f.DisplayName,
			"Debitor account: " + f.IBAN,
			"Creditor name: " + f.CreditorName,
			"Creditor account: " + f.OrgIBAN,
			"Payment method: " + f.PaymentInstrument,
			"Frequency: " + f.Frequency,
			"Annual amount: " + f.AnnualAmount + " " + currency,
			"Installment amount: " + f.Amount + " " + currency,
			"Next debit: " + f.NextDebit,
		}
	} else {
		out.Label = fmt.Sprintf("%s, %s %s", f.PaymentInstrument, f.Amount, f.Frequency)
		lines = []string{
			"Debitor name: " + f.DisplayName,
			"Payment method: " + f.PaymentInstrument,
			"Frequency: " + f.Frequency,
			"Annual amount: " + f.AnnualAmount + " " + currency,
			"Installment amount: " + f.Amount + " " + currency,
		}
	}
	out.Fields = f
	out.ContractLabel = ContractLabel(payment, mandate, instruments)
	out.TextSummary = strings.Join(lines, "\n")
	return out, nil
}

// ContractLabel is the compact label stored with a contract, e.g.
// "SEPA: REF-1 (10.00 every 1 month)". mandate may be nil for non-SEPA
// payments.
func ContractLabel(payment, mandate entity.Record, instruments Instruments) string {
	interval := payment.Int64("frequency_interval")
	unit := payment.String("frequency_unit")
	amount := payment.String("amount")
	if parsed, err := sepa.ParseMoney(amount); err == nil {
		amount = sepa.FormatMoney(parsed)
	}
	instrument := payment.String("payment_instrument_id")
	if instruments.IsSEPA(instrument) && mandate != nil {
		plural := ""
		if interval > 1 {
			plural = "s"
		}
		return fmt.Sprintf("SEPA: %s (%s every %d %s%s)", mandate.String("reference"), amount, interval, unit, plural)
	}
	return fmt.Sprintf("%s: (%s every %d %s)", instruments.Labels[instrument], amount, interval, unit)
}

func mandateFor(paymentID int64, mandates []entity.Record) entity.Record {
	for _, m := range mandates {
		if m.Int64("entity_id") == paymentID && m.String("entity_table") == MandateTable {
			return m
		}
	}
	return nil
}

func byID(recs []entity.Record, id int64) entity.Record {
	for _, r := range recs {
		if r.ID() == id {
			return r
		}
	}
	return entity.Record{}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
