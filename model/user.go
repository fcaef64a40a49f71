package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Role determines which lifecycle transitions and views a user may invoke.
type Role string

const (
	RolePatient   Role = "PATIENT"
	RoleDoctor    Role = "DOCTOR"
	RoleInsurance Role = "INSURANCE"
	RoleBank      Role = "BANK"
)

// ValidRole reports whether the given string names a known role.
func ValidRole(r string) bool {
	switch Role(r) {
	case RolePatient, RoleDoctor, RoleInsurance, RoleBank:
		return true
	}
	return false
}

// User represents an account in any of the four roles.
// Password and PasswordSalt are empty for accounts created through an
// external identity provider.
type User struct {
	gorm.Model
	Email          string `json:"email" gorm:"uniqueIndex;size:191;not null" example:"patient@demo.com"`
	Password       string `json:"-" gorm:"column:password"`
	PasswordSalt   string `json:"-" gorm:"column:password_salt"`
	Name           string `json:"name" gorm:"not null" example:"John Patient"`
	Role           Role   `json:"role" gorm:"type:varchar(16);not null;default:'PATIENT';index" example:"PATIENT"`
	Phone          string `json:"phone" example:"+1-555-0101"`
	Address        string `json:"address" example:"123 Main St"`
	FailedAttempts int    `json:"-" gorm:"default:0"`
	LockedUntil    *int64 `json:"-"`
}

// ProfileComplete reports whether the user has finished the one-time
// profile completion step (phone and address filled in).
func (u *User) ProfileComplete() bool {
	return u.Phone != "" && u.Address != ""
}

// SeedUsers creates one demo account per role if none exists yet.
// The password hash must be produced by the caller so this package does not
// depend on the hashing utilities.
func SeedUsers(db *gorm.DB, passwordHash, passwordSalt string) error {
	demo := []User{
		{Email: "patient@demo.com", Name: "John Patient", Role: RolePatient, Phone: "+1-555-0101", Address: "123 Main St"},
		{Email: "doctor@demo.com", Name: "Dr. Sarah Wilson", Role: RoleDoctor, Phone: "+1-555-0102", Address: "456 Medical Center Dr"},
		{Email: "insurance@demo.com", Name: "Insurance Agent", Role: RoleInsurance, Phone: "+1-555-0103", Address: "789 Insurance Plaza"},
		{Email: "bank@demo.com", Name: "Bank Representative", Role: RoleBank, Phone: "+1-555-0104", Address: "321 Banking Ave"},
	}

	for _, u := range demo {
		var existing User
		err := db.Where("email = ?", u.Email).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		u.Password = passwordHash
		u.PasswordSalt = passwordSalt
		if err := db.Create(&u).Error; err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
	}
	return nil
}
