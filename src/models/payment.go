package models

import "carpool/src/types"

type Payment struct {
	ID               uint                      `gorm:"primarykey" json:"id"`
	BookingID        *uint                     `json:"booking_id,omitempty"`
	PaymentIntentId  string                    `gorm:"uniqueIndex" json:"payment_intent_id,omitempty"`
	AmountCents      int64                     `json:"amount_cents,omitempty"`
	PlatformFeeCents int64                     `json:"platform_fee_cents,omitempty"`
	Currency         string                    `json:"currency,omitempty"`
	Status           types.PaymentRecordStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Metadata         *types.JSONB              `gorm:"type:jsonb" json:"metadata,omitempty"`

	Booking *Booking `json:"booking,omitempty"`

	types.Timestamps
}
