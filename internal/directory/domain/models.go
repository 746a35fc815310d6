// Package domain contains the subscriber directory read models. The
// reconciliation engine treats both as read-only.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriberAccount is the billing account behind a phone number.
type SubscriberAccount struct {
	AccountID      snowflake.ID `json:"account_id" gorm:"primaryKey;column:account_id"`
	BillingOwnerID snowflake.ID `json:"billing_owner_id" gorm:"not null;index"`
	Phone          string       `json:"phone" gorm:"type:text;not null;uniqueIndex"`
	Email          string       `json:"email" gorm:"type:text;not null"`
	// Internal marks the operator's own line; it is priced for display but
	// never posted to the ledger.
	Internal  bool      `json:"internal" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SubscriberAccount) TableName() string { return "subscriber_accounts" }

// ServicePlan holds the allowances negotiated for a billing owner.
type ServicePlan struct {
	ID      snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID snowflake.ID `json:"owner_id" gorm:"not null;uniqueIndex"`
	// FreeMinutes and FreeSMS are the per-subscriber out-of-network
	// allowances carved out before overage pricing.
	FreeMinutes   int       `json:"free_minutes" gorm:"not null;default:0"`
	FreeSMS       int       `json:"free_sms" gorm:"not null;default:0"`
	UnlimitedData bool      `json:"unlimited_data" gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ServicePlan) TableName() string { return "service_plans" }
