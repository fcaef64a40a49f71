package model

import (
	"time"

	"gorm.io/gorm"
)

// PatientReport is a consultation report written by a doctor once the
// underlying appointment has reached CONSULTED.
type PatientReport struct {
	gorm.Model
	PatientID       uint       `json:"patient_id" gorm:"not null;index"`
	AppointmentID   uint       `json:"appointment_id" gorm:"not null;index"`
	ReportType      string     `json:"report_type" gorm:"size:64;not null" example:"CONSULTATION"`
	Title           string     `json:"title" gorm:"not null"`
	Description     string     `json:"description" gorm:"type:text"`
	Diagnosis       string     `json:"diagnosis" gorm:"type:text"`
	Treatment       string     `json:"treatment" gorm:"type:text"`
	Medications     string     `json:"medications" gorm:"type:text"`
	Recommendations string     `json:"recommendations" gorm:"type:text"`
	DocumentURL     string     `json:"document_url"`
	FollowUpDate    *time.Time `json:"follow_up_date"`
}
