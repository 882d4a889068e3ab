package options

// Default is an option value the contract service relies on.
type Default struct {
	Group string
	Name  string
	Value string
	Label string
}

// Defaults are the option values of a CRM running the contract extension,
// used to provision the self-hosted store.
var Defaults = []Default{
	{GroupActivityStatus, "Scheduled", "1", "Scheduled"},
	{GroupActivityStatus, "Completed", "2", "Completed"},
	{GroupActivityStatus, "Cancelled", "3", "Cancelled"},
	{GroupActivityStatus, "Needs Review", "10", "Needs Review"},

	{GroupActivityType, "Contract_Updated", "51", "Contract Updated"},
	{GroupActivityType, "Contract_Cancelled", "52", "Contract Cancelled"},
	{GroupActivityType, "Contract_Paused", "53", "Contract Paused"},
	{GroupActivityType, "Contract_Resumed", "54", "Contract Resumed"},
	{GroupActivityType, "Contract_Revived", "55", "Contract Revived"},
	{GroupActivityType, "Contract_Signed", "56", "Contract Signed"},

	{GroupContributionStatus, "Completed", "1", "Completed"},
	{GroupContributionStatus, "Pending", "2", "Pending"},
	{GroupContributionStatus, "Cancelled", "3", "Cancelled"},
	{GroupContributionStatus, "In Progress", "5", "In Progress"},

	{GroupPaymentInstrument, "Credit Card", "1", "Credit Card"},
	{GroupPaymentInstrument, "Cash", "3", "Cash"},
	{GroupPaymentInstrument, "FRST", "6", "SEPA First"},
	{GroupPaymentInstrument, "OOFF", "7", "SEPA One-off"},
	{GroupPaymentInstrument, "RCUR", "8", "SEPA Recurring"},

	{GroupEncounterMedium, "in_person", "1", "In Person"},
	{GroupEncounterMedium, "phone", "2", "Phone"},
	{GroupEncounterMedium, "email", "3", "Email"},

	{GroupCancelReason, "Unknown", "1", "Unknown"},
	{GroupCancelReason, "Financial", "2", "Financial reasons"},
}

// DefaultStatuses are the membership statuses by id.
var DefaultStatuses = []Status{
	{1, "New"},
	{2, "Current"},
	{3, "Grace"},
	{4, "Expired"},
	{5, "Pending"},
	{6, "Cancelled"},
	{7, "Deceased"},
	{8, "Paused"},
}
