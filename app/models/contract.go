package models

import (
	"time"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
)

// Date columns hold the host's wire formats ("2006-01-02" and
// "2006-01-02 15:04:05") so that records read back exactly as written.

// Membership is a contract.
type Membership struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	ContactID        int64     `gorm:"index;not null" json:"contact_id"`
	MembershipTypeID int64     `gorm:"not null" json:"membership_type_id"`
	StatusID         int64     `gorm:"index;not null" json:"status_id"`
	JoinDate         string    `gorm:"type:varchar(19)" json:"join_date"`
	StartDate        string    `gorm:"type:varchar(19)" json:"start_date"`
	EndDate          string    `gorm:"type:varchar(19)" json:"end_date"`
	IsOverride       int64     `gorm:"default:0" json:"is_override"`
	CampaignID       int64     `gorm:"default:0" json:"campaign_id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Membership) TableName() string { return "civicrm_membership" }

// Activity is a change record of a contract.
type Activity struct {
	ID               int64  `gorm:"primaryKey" json:"id"`
	ActivityTypeID   int64  `gorm:"index;not null" json:"activity_type_id"`
	StatusID         int64  `gorm:"index;not null" json:"status_id"`
	SourceRecordID   int64  `gorm:"index" json:"source_record_id"`
	TargetContactID  int64  `json:"target_contact_id"`
	ActivityDateTime string `gorm:"type:varchar(19);index" json:"activity_date_time"`
	Subject          string `gorm:"type:varchar(255)" json:"subject"`
	Details          string `gorm:"type:text" json:"details"`
	MediumID         int64  `json:"medium_id"`
	CampaignID       int64  `json:"campaign_id"`
	// BIC of the debtor account of new payment terms.
	BIC       string    `gorm:"column:bic;type:varchar(11)" json:"bic"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Activity) TableName() string { return "civicrm_activity" }

type ContributionRecur struct {
	ID                        int64     `gorm:"primaryKey" json:"id"`
	ContactID                 int64     `gorm:"index;not null" json:"contact_id"`
	Amount                    string    `gorm:"type:varchar(20);not null" json:"amount"`
	Currency                  string    `gorm:"type:varchar(3);default:'EUR'" json:"currency"`
	FrequencyUnit             string    `gorm:"type:varchar(8);default:'month'" json:"frequency_unit"`
	FrequencyInterval         int64     `gorm:"default:1" json:"frequency_interval"`
	CycleDay                  int64     `gorm:"default:1" json:"cycle_day"`
	StartDate                 string    `gorm:"type:varchar(19)" json:"start_date"`
	CreateDate                string    `gorm:"type:varchar(19)" json:"create_date"`
	EndDate                   string    `gorm:"type:varchar(19)" json:"end_date"`
	CancelDate                string    `gorm:"type:varchar(19)" json:"cancel_date"`
	CancelReason              string    `gorm:"type:text" json:"cancel_reason"`
	NextSchedContributionDate string    `gorm:"type:varchar(19)" json:"next_sched_contribution_date"`
	PaymentInstrumentID       int64     `json:"payment_instrument_id"`
	ContributionStatusID      int64     `gorm:"index" json:"contribution_status_id"`
	CampaignID                int64     `json:"campaign_id"`
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (ContributionRecur) TableName() string { return "civicrm_contribution_recur" }

type SepaMandate struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Reference      string    `gorm:"type:varchar(35);uniqueIndex;not null" json:"reference"`
	ContactID      int64     `gorm:"index" json:"contact_id"`
	Type           string    `gorm:"type:varchar(4)" json:"type"`
	Status         string    `gorm:"type:varchar(8);index" json:"status"`
	EntityTable    string    `gorm:"type:varchar(64);index:idx_mandate_entity" json:"entity_table"`
	EntityID       int64     `gorm:"index:idx_mandate_entity" json:"entity_id"`
	IBAN           string    `gorm:"column:iban;type:varchar(34)" json:"iban"`
	BIC            string    `gorm:"column:bic;type:varchar(11)" json:"bic"`
	CreditorID     int64     `json:"creditor_id"`
	Date           string    `gorm:"type:varchar(19)" json:"date"`
	ValidationDate string    `gorm:"type:varchar(19)" json:"validation_date"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (SepaMandate) TableName() string { return "civicrm_sdd_mandate" }

// SepaCreditor is an account of the organisation collecting the debits.
type SepaCreditor struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(255)" json:"name"`
	IBAN     string `gorm:"column:iban;type:varchar(34)" json:"iban"`
	BIC      string `gorm:"column:bic;type:varchar(11)" json:"bic"`
	Currency string `gorm:"type:varchar(3);default:'EUR'" json:"currency"`
}

func (SepaCreditor) TableName() string { return "civicrm_sdd_creditor" }

type Contact struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"type:varchar(128)" json:"display_name"`
	ContactType string    `gorm:"type:varchar(64);default:'Individual'" json:"contact_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
}

func (Contact) TableName() string { return "civicrm_contact" }

// OptionValue is one entry of an option group. OptionGroupID holds the
// group name.
type OptionValue struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	OptionGroupID string `gorm:"type:varchar(64);index;not null" json:"option_group_id"`
	Name          string `gorm:"type:varchar(64);not null" json:"name"`
	Value         string `gorm:"type:varchar(64);not null" json:"value"`
	Label         string `gorm:"type:varchar(255)" json:"label"`
	Weight        int64  `gorm:"default:0" json:"weight"`
}

func (OptionValue) TableName() string { return "civicrm_option_value" }

// CustomField is a field of a custom group. CustomGroupID holds the group
// name.
type CustomField struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	CustomGroupID string `gorm:"type:varchar(64);index;not null" json:"custom_group_id"`
	Name          string `gorm:"type:varchar(64);not null" json:"name"`
	Label         string `gorm:"type:varchar(255)" json:"label"`
	DataType      string `gorm:"type:varchar(16)" json:"data_type"`
}

func (CustomField) TableName() string { return "civicrm_custom_field" }

type MembershipStatus struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
}

func (MembershipStatus) TableName() string { return "civicrm_membership_status" }

// CustomValue stores one custom field value of one record.
type CustomValue struct {
	ID            int64     `gorm:"primaryKey"`
	EntityTable   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_custom_value"`
	EntityID      int64     `gorm:"not null;uniqueIndex:idx_custom_value"`
	CustomFieldID int64     `gorm:"not null;uniqueIndex:idx_custom_value"`
	Value         string    `gorm:"type:text"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (CustomValue) TableName() string { return "civicrm_custom_value" }

// ForType returns a new, empty model of the entity type.
func ForType(typ entity.Type) (any, bool) {
	switch typ {
	case entity.Membership:
		return &Membership{}, true
	case entity.Activity:
		return &Activity{}, true
	case entity.ContributionRecur:
		return &ContributionRecur{}, true
	case entity.SepaMandate:
		return &SepaMandate{}, true
	case entity.SepaCreditor:
		return &SepaCreditor{}, true
	case entity.Contact:
		return &Contact{}, true
	case entity.OptionValue:
		return &OptionValue{}, true
	case entity.CustomField:
		return &CustomField{}, true
	case entity.MembershipStatus:
		return &MembershipStatus{}, true
	}
	return nil, false
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Membership{}, &Activity{}, &ContributionRecur{}, &SepaMandate{},
		&SepaCreditor{}, &Contact{}, &OptionValue{}, &CustomField{},
		&MembershipStatus{}, &CustomValue{}, &Setting{},
	}
}
