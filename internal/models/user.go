package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription tiers
const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email             string    `gorm:"uniqueIndex;not null"`
	PasswordHash      string    `gorm:"not null"`
	Token             string    `gorm:"not null"`
	Verify            bool      `gorm:"not null"`
	VerificationToken *string   `gorm:"uniqueIndex"`
	AvatarURL         string    `gorm:"column:avatar_url"`
	Subscription      string    `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BeforeCreate assigns the id on the application side so inserts never
// depend on a database default.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Subscription == "" {
		u.Subscription = SubscriptionStarter
	}
	return nil
}

// IsValidSubscription reports whether tier is a known subscription.
func IsValidSubscription(tier string) bool {
	switch tier {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}
