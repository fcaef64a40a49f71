package model

import "gorm.io/gorm"

// DocumentType classifies an uploaded medical report file.
type DocumentType string

const (
	DocumentMedicalReport DocumentType = "MEDICAL_REPORT"
	DocumentLabResult     DocumentType = "LAB_RESULT"
	DocumentPrescription  DocumentType = "PRESCRIPTION"
	DocumentXRay          DocumentType = "XRAY"
	DocumentOther         DocumentType = "OTHER"
)

// ValidDocumentType reports whether the given string names a known document type.
func ValidDocumentType(s string) bool {
	switch DocumentType(s) {
	case DocumentMedicalReport, DocumentLabResult, DocumentPrescription, DocumentXRay, DocumentOther:
		return true
	}
	return false
}

// Document is a file uploaded by a doctor for an accepted appointment.
// Documents are immutable after creation; there is no update path.
type Document struct {
	gorm.Model
	AppointmentID uint         `json:"appointment_id" gorm:"not null;index"`
	Type          DocumentType `json:"type" gorm:"type:varchar(32);not null"`
	Filename      string       `json:"filename" gorm:"not null" example:"9f2c1d7e.pdf"`
	OriginalName  string       `json:"original_name" gorm:"not null" example:"lab-results.pdf"`
	URL           string       `json:"url" gorm:"not null"`
	Size          int64        `json:"size" gorm:"not null"`
	MimeType      string       `json:"mime_type" gorm:"size:128;not null" example:"application/pdf"`
	UploadedByID  uint         `json:"uploaded_by_id" gorm:"not null;index"`
}
