package model

import (
	"time"

	"gorm.io/gorm"
)

// ClaimStatus is the claim lifecycle state.
type ClaimStatus string

const (
	ClaimDraft       ClaimStatus = "DRAFT"
	ClaimSubmitted   ClaimStatus = "SUBMITTED"
	ClaimUnderReview ClaimStatus = "UNDER_REVIEW"
	ClaimApproved    ClaimStatus = "APPROVED"
	ClaimRejected    ClaimStatus = "REJECTED"
	ClaimPaid        ClaimStatus = "PAID"
)

// ValidClaimStatus reports whether the given string names a known claim status.
func ValidClaimStatus(s string) bool {
	switch ClaimStatus(s) {
	case ClaimDraft, ClaimSubmitted, ClaimUnderReview, ClaimApproved, ClaimRejected, ClaimPaid:
		return true
	}
	return false
}

// Claim is a patient's request for reimbursement of a medical expense.
// ApprovedAmount is set only while the claim is APPROVED or PAID.
type Claim struct {
	gorm.Model
	ClaimNumber    string      `json:"claim_number" gorm:"uniqueIndex;size:32;not null" example:"CLM-20240115-0001"`
	PatientID      uint        `json:"patient_id" gorm:"not null;index"`
	DoctorID       *uint       `json:"doctor_id" gorm:"index"`
	Diagnosis      string      `json:"diagnosis" gorm:"not null" example:"Annual Health Checkup"`
	TreatmentDate  time.Time   `json:"treatment_date" gorm:"not null"`
	ClaimAmount    float64     `json:"claim_amount" gorm:"not null" example:"250.00"`
	Description    string      `json:"description" gorm:"type:text"`
	Status         ClaimStatus `json:"status" gorm:"type:varchar(16);not null;default:'DRAFT';index"`
	ApprovedAmount *float64    `json:"approved_amount" example:"225.00"`
	SubmittedAt    *time.Time  `json:"submitted_at"`
	ApprovedAt     *time.Time  `json:"approved_at"`
}
