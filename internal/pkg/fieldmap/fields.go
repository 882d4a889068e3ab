package fieldmap

// Contract (membership) fields.
const (
	MembershipRecurringContribution = "membership_payment.membership_recurring_contribution"
	MembershipAnnual                = "membership_payment.membership_annual"
	MembershipFrequency             = "membership_payment.membership_frequency"
	MembershipCycleDay              = "membership_payment.cycle_day"
	MembershipFromBA                = "membership_payment.from_ba"
	MembershipToBA                  = "membership_payment.to_ba"
	MembershipCancelReason          = "membership_cancellation.membership_cancel_reason"
	MembershipCancelDate            = "membership_cancellation.membership_cancel_date"
)

// Change (activity) fields.
const (
	ChangeCancelReason          = "contract_cancellation.contact_history_cancel_reason"
	ChangeRecurringContribution = "contract_updates.ch_recurring_contribution"
	ChangeAnnual                = "contract_updates.ch_annual"
	ChangeAnnualDiff            = "contract_updates.ch_annual_diff"
	ChangeFrequency             = "contract_updates.ch_frequency"
	ChangeCycleDay              = "contract_updates.ch_cycle_day"
	ChangeFromBA                = "contract_updates.ch_from_ba"
	ChangeToBA                  = "contract_updates.ch_to_ba"
	ChangeMembershipType        = "contract_updates.ch_membership_type"
	ChangeResumeDate            = "contract_pause.resume_date"
)

// Definition describes one custom field of the contract extension.
type Definition struct {
	Group    string
	Name     string
	Label    string
	DataType string
}

// Definitions lists every custom field the contract service expects the
// host to provide. Used to provision the self-hosted store.
var Definitions = []Definition{
	{GroupMembershipPayment, "membership_recurring_contribution", "Recurring Contribution", "Int"},
	{GroupMembershipPayment, "membership_annual", "Annual Amount", "Money"},
	{GroupMembershipPayment, "membership_frequency", "Payment Frequency", "Int"},
	{GroupMembershipPayment, "cycle_day", "Cycle Day", "Int"},
	{GroupMembershipPayment, "from_ba", "Debitor Account", "String"},
	{GroupMembershipPayment, "to_ba", "Creditor Account", "String"},
	{GroupMembershipCancellation, "membership_cancel_reason", "Cancel Reason", "String"},
	{GroupMembershipCancellation, "membership_cancel_date", "Cancel Date", "Date"},
	{GroupContractCancellation, "contact_history_cancel_reason", "Cancellation Reason", "String"},
	{GroupContractUpdates, "ch_recurring_contribution", "Recurring Contribution", "Int"},
	{GroupContractUpdates, "ch_annual", "Annual Amount", "Money"},
	{GroupContractUpdates, "ch_annual_diff", "Annual Amount Difference", "Money"},
	{GroupContractUpdates, "ch_frequency", "Payment Frequency", "Int"},
	{GroupContractUpdates, "ch_cycle_day", "Cycle Day", "Int"},
	{GroupContractUpdates, "ch_from_ba", "Debitor Account", "String"},
	{GroupContractUpdates, "ch_to_ba", "Creditor Account", "String"},
	{GroupContractUpdates, "ch_membership_type", "Membership Type", "Int"},
	{GroupContractPause, "resume_date", "Resume Date", "Date"},
}

// SemanticName returns "group.name".
func (d Definition) SemanticName() string {
	return d.Group + "." + d.Name
}
