package database

import (
	"fmt"

	"ozon-monitor/internal/models"

	"gorm.io/gorm"
)

// SaveTask inserts the task on first save and updates it in place
// afterwards. UpdatedAt moves on every status change.
func SaveTask(db *gorm.DB, task *models.Task) error {
	if err := db.Save(task).Error; err != nil {
		return fmt.Errorf("failed to save task %q: %w", task.Name, err)
	}
	return nil
}

// ListTasks returns run attempts newest first.
func ListTasks(db *gorm.DB, limit, offset int) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Order("created_at DESC, task_id DESC").
		Limit(limit).Offset(offset).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func CountTasks(db *gorm.DB) (int64, error) {
	var total int64
	if err := db.Model(&models.Task{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return total, nil
}
