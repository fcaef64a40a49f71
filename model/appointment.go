package model

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus is the appointment lifecycle state.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentAccepted  AppointmentStatus = "ACCEPTED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentConsulted AppointmentStatus = "CONSULTED"
)

// ValidAppointmentStatus reports whether the given string names a known appointment status.
func ValidAppointmentStatus(s string) bool {
	switch AppointmentStatus(s) {
	case AppointmentPending, AppointmentAccepted, AppointmentCancelled, AppointmentCompleted, AppointmentConsulted:
		return true
	}
	return false
}

// Appointment is a scheduled patient-doctor encounter. Created by the
// patient (PENDING) and only ever advanced by the assigned doctor; never
// deleted.
type Appointment struct {
	gorm.Model
	PatientID   uint              `json:"patient_id" gorm:"not null;index"`
	DoctorID    uint              `json:"doctor_id" gorm:"not null;index"`
	ScheduledAt time.Time         `json:"scheduled_at" gorm:"not null"`
	Status      AppointmentStatus `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	Notes       string            `json:"notes" gorm:"type:text"`
}
