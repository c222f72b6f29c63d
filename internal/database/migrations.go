package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.Course{},
		&models.Enrollment{},
		&models.LectureBatch{},
		&models.ExamBatch{},
		&models.AttendanceRecord{},
		&models.ExamAttendanceRecord{},
		&models.Notification{},
	)
}

// AutoMigrateAndSeed convenience helper used during application start-up.
func AutoMigrateAndSeed(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := SeedData(db); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}

	return nil
}

// SeedData populates the demo course used by fresh installs.
func SeedData(db *gorm.DB) error {
	course := models.Course{
		BaseModel: models.BaseModel{ID: "course-orientation"},
		Code:      "ORI-101",
		Name:      "Orientation",
	}

	return db.Where(models.Course{Code: course.Code}).
		Attrs(course).
		FirstOrCreate(&models.Course{}).Error
}
