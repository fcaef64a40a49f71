package model

import "gorm.io/gorm"

// PaymentStatus is the payment lifecycle state.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// ValidPaymentStatus reports whether the given string names a known payment status.
func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// Payment is a bank-initiated disbursement against an approved claim.
type Payment struct {
	gorm.Model
	ClaimID       uint          `json:"claim_id" gorm:"not null;index"`
	Amount        float64       `json:"amount" gorm:"not null" example:"225.00"`
	Status        PaymentStatus `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	PaymentMethod string        `json:"payment_method" example:"Direct Deposit"`
	TransactionID string        `json:"transaction_id" gorm:"size:64" example:"TXN-001"`
	Notes         string        `json:"notes" gorm:"type:text"`
	ProcessedBy   uint          `json:"processed_by" gorm:"not null"`
}
