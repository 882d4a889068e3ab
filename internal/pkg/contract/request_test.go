package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
)

func TestModifyRequestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   ModifyRequest
		field string
	}{
		{"valid cancel", ModifyRequest{ContractID: 1, Action: "cancel", CancelReason: "Unknown"}, ""},
		{"missing contract", ModifyRequest{Action: "cancel", CancelReason: "Unknown"}, "id"},
		{"unknown action", ModifyRequest{ContractID: 1, Action: "sign"}, "action"},
		{"cancel without reason", ModifyRequest{ContractID: 1, Action: "cancel"}, "cancel_reason"},
		{"pause without resume date", ModifyRequest{ContractID: 1, Action: "pause"}, "resume_date"},
		{"resume", ModifyRequest{ContractID: 1, Action: "resume"}, ""},
		{"update without type", ModifyRequest{ContractID: 1, Action: "update"}, "membership_type_id"},
		{"revive without type", ModifyRequest{ContractID: 1, Action: "revive", PaymentOption: PaymentSelect, RecurringContribution: 3}, "membership_type_id"},
		{"select without payment", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentOption: PaymentSelect}, "recurring_contribution"},
		{"unknown payment option", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentOption: "other"}, "payment_option"},
		{"modify without iban", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentOption: PaymentModify, PaymentAmount: "10", PaymentFrequency: 12}, "iban"},
		{"invalid iban", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentOption: PaymentModify, IBAN: "DE00123"}, "iban"},
		{"invalid bic", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentOption: PaymentModify, IBAN: testIBAN, BIC: "x"}, "bic"},
		{"amount not numeric", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentAmount: "ten"}, "payment_amount"},
		{"frequency not allowed", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentFrequency: 3}, "payment_frequency"},
		{"cycle day out of range", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, CycleDay: 31}, "cycle_day"},
		{"valid modify", ModifyRequest{ContractID: 1, Action: "update", MembershipTypeID: 1, PaymentOption: PaymentModify, PaymentAmount: "12.50", PaymentFrequency: 12, IBAN: testIBAN, BIC: "COBADEFFXXX"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *apperror.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
