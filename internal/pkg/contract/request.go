package contract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/sepa"
)

// Payment options of update and revive requests.
const (
	PaymentNoChange = "nochange"
	PaymentSelect   = "select"
	PaymentModify   = "modify"
)

// ModifyRequest asks for one change of a contract.
type ModifyRequest struct {
	ContractID int64  `json:"-" validate:"required,gt=0"`
	Action     string `json:"action" validate:"required,oneof=update cancel pause resume revive"`
	// Date is when the change takes effect, "2006-01-02 15:04:05" or
	// "2006-01-02". Empty means now for cancellations and tomorrow otherwise.
	Date     string `json:"date"`
	MediumID string `json:"medium_id"`
	Note     string `json:"note"`

	CancelReason string `json:"cancel_reason" validate:"required_if=Action cancel"`
	ResumeDate   string `json:"resume_date" validate:"required_if=Action pause"`

	MembershipTypeID      int64  `json:"membership_type_id"`
	CampaignID            int64  `json:"campaign_id"`
	PaymentOption         string `json:"payment_option" validate:"omitempty,oneof=nochange select modify"`
	RecurringContribution int64  `json:"recurring_contribution" validate:"required_if=PaymentOption select"`
	PaymentAmount         string `json:"payment_amount" validate:"omitempty,numeric"`
	PaymentFrequency      int64  `json:"payment_frequency" validate:"omitempty,oneof=1 2 4 12"`
	CycleDay              int64  `json:"cycle_day" validate:"omitempty,min=1,max=28"`
	IBAN                  string `json:"iban" validate:"omitempty,iban"`
	BIC                   string `json:"bic" validate:"omitempty,bic"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return "id"
		}
		return name
	})
	if err := sepa.RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the field rules of the request. Rules depending on the
// contract or settings are checked by the service.
func (r ModifyRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fromValidator(err)
	}
	if (r.Action == "update" || r.Action == "revive") && r.MembershipTypeID == 0 {
		return apperror.Validation("membership_type_id", "membership_type_id is a required field.")
	}
	if r.PaymentOption == PaymentModify && strings.TrimSpace(r.IBAN) == "" {
		return apperror.Validation("iban", "IBAN is a required field.")
	}
	return nil
}

func fromValidator(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	return apperror.Validation(fe.Field(), "%s", fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is a required field.", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s].", fe.Field(), fe.Param())
	case "iban":
		return "Please enter a valid IBAN"
	case "bic":
		return "Please enter a valid BIC"
	case "numeric":
		return fmt.Sprintf("%s must be a number.", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}
