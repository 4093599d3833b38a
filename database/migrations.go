package database

import (
	"log"

	"gorm.io/gorm"

	"github.com/akivalo0017-dot/travelsite/models"
)

// Migrate runs AutoMigrate for every table the application owns. Intended for
// development; production schema changes are reviewed SQL.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.UserProgress{},
		&models.RefreshToken{},
	)
}

// SeedTasks inserts a starter task catalogue when the tasks table is empty.
// Tasks are ordered by (set_number, task_number); position mirrors that order
// for list endpoints.
func SeedTasks(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Task{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tasks := []models.Task{
		{Title: "Review a destination", Description: "Write a short review of a listed destination.", TaskType: "regular", SetNumber: 1, TaskNumber: 1, Position: 1, RequiredCompletion: 1, RewardAmount: 5.00, IsActive: true},
		{Title: "Rate three hotels", Description: "Rate any three hotels from the catalogue.", TaskType: "regular", SetNumber: 1, TaskNumber: 2, Position: 2, RequiredCompletion: 3, RewardAmount: 8.00, IsActive: true},
		{Title: "Share a travel tip", Description: "Publish one travel tip for other members.", TaskType: "regular", SetNumber: 1, TaskNumber: 3, Position: 3, RequiredCompletion: 1, RewardAmount: 6.50, IsActive: true},
		{Title: "Plan an itinerary", Description: "Build a day-by-day itinerary for a featured trip.", TaskType: "regular", SetNumber: 2, TaskNumber: 1, Position: 4, RequiredCompletion: 1, RewardAmount: 12.00, IsActive: true},
		{Title: "Compare flight offers", Description: "Compare and bookmark five flight offers.", TaskType: "regular", SetNumber: 2, TaskNumber: 2, Position: 5, RequiredCompletion: 5, RewardAmount: 15.00, IsActive: true},
	}
	if err := db.Create(&tasks).Error; err != nil {
		return err
	}
	log.Printf("[database] seeded %d starter tasks", len(tasks))
	return nil
}
