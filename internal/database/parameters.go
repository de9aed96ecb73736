package database

import (
	"errors"
	"fmt"
	"strings"

	"ozon-monitor/internal/models"

	"gorm.io/gorm"
)

// Set-valued parameters (company ids, scheduled times) are append-only
// with dedup by exact value; single-valued parameters (cookies, report
// path) are replace-on-write. Insertion order is preserved via
// parameter_id so lists come back in the order they were configured.

func AddCompanyIDs(db *gorm.DB, companyIDs []string) error {
	return appendUnique(db, models.ParamCompanyID, companyIDs)
}

func GetCompanyIDs(db *gorm.DB) ([]string, error) {
	return listValues(db, models.ParamCompanyID)
}

func DeleteCompanyID(db *gorm.DB, companyID string) error {
	return deleteValue(db, models.ParamCompanyID, companyID)
}

func AddScheduledTimes(db *gorm.DB, times []string) error {
	return appendUnique(db, models.ParamScheduledTime, times)
}

func GetScheduledTimes(db *gorm.DB) ([]string, error) {
	return listValues(db, models.ParamScheduledTime)
}

func DeleteScheduledTime(db *gorm.DB, scheduledTime string) error {
	return deleteValue(db, models.ParamScheduledTime, scheduledTime)
}

func UpsertCookies(db *gorm.DB, cookies string) error {
	return setValue(db, models.ParamCookies, cookies)
}

func GetCookies(db *gorm.DB) (string, error) {
	return getValue(db, models.ParamCookies)
}

func SaveReportPath(db *gorm.DB, reportPath string) error {
	return setValue(db, models.ParamReportPath, reportPath)
}

func GetReportPath(db *gorm.DB) (string, error) {
	return getValue(db, models.ParamReportPath)
}

func appendUnique(db *gorm.DB, name string, values []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, value := range values {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			var count int64
			err := tx.Model(&models.Parameter{}).
				Where("name = ? AND value = ?", name, value).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to check parameter %s=%s: %w", name, value, err)
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&models.Parameter{Name: name, Value: value}).Error; err != nil {
				return fmt.Errorf("failed to add parameter %s=%s: %w", name, value, err)
			}
		}
		return nil
	})
}

func listValues(db *gorm.DB, name string) ([]string, error) {
	var params []models.Parameter
	err := db.Where("name = ?", name).Order("parameter_id").Find(&params).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list parameter %s: %w", name, err)
	}
	values := make([]string, 0, len(params))
	for _, p := range params {
		values = append(values, p.Value)
	}
	return values, nil
}

func deleteValue(db *gorm.DB, name, value string) error {
	err := db.Where("name = ? AND value = ?", name, value).
		Delete(&models.Parameter{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete parameter %s=%s: %w", name, value, err)
	}
	return nil
}

func setValue(db *gorm.DB, name, value string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var param models.Parameter
		err := tx.Where("name = ?", name).First(&param).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.Parameter{Name: name, Value: value}).Error
		case err != nil:
			return fmt.Errorf("failed to load parameter %s: %w", name, err)
		default:
			param.Value = value
			return tx.Save(&param).Error
		}
	})
}

func getValue(db *gorm.DB, name string) (string, error) {
	var param models.Parameter
	err := db.Where("name = ?", name).First(&param).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load parameter %s: %w", name, err)
	}
	return param.Value, nil
}
