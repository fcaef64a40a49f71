package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ClaimNumber tracks the last sequence number handed out per day so claim
// numbers stay human-readable and unique.
type ClaimNumber struct {
	gorm.Model
	DateKey string `json:"date_key" gorm:"size:8;index"`
	Number  int    `json:"number"`
	Code    string `json:"code" gorm:"uniqueIndex;size:32"`
}

// NextClaimNumber allocates the next claim number for the given day, in the
// form CLM-YYYYMMDD-NNNN. Run it inside the transaction that creates the
// claim so an aborted creation does not burn a number.
func NextClaimNumber(tx *gorm.DB, now time.Time) (string, error) {
	dateKey := now.Format("20060102")

	var counter ClaimNumber
	err := tx.Order("id DESC").Where("date_key = ?", dateKey).First(&counter).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return "", err
	}

	newNumber := counter.Number + 1
	code := fmt.Sprintf("CLM-%s-%04d", dateKey, newNumber)

	if err == gorm.ErrRecordNotFound {
		if err := tx.Create(&ClaimNumber{DateKey: dateKey, Number: newNumber, Code: code}).Error; err != nil {
			return "", err
		}
		return code, nil
	}

	if err := tx.Model(&counter).Updates(&ClaimNumber{
		DateKey: dateKey,
		Number:  newNumber,
		Code:    code,
	}).Error; err != nil {
		return "", err
	}

	return code, nil
}
