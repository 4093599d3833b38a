package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.UserProgress{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTestUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		Username:       "wanderer",
		PhoneNumber:    "81234567890",
		Password:       "irrelevant",
		FullName:       "Test Wanderer",
		InvitationCode: "INV123",
		Role:           "user",
		IsApproved:     true,
		CurrentSet:     1,
		CurrentTask:    1,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func authedRequest(method, target string, uid uint) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), utils.UserIDKey, uid)
	return req.WithContext(ctx)
}

func TestTasks_OrderedByPosition(t *testing.T) {
	db := newTestDB(t)
	user := seedTestUser(t, db)

	// position deliberately disagrees with (set, task) order
	seed := []models.Task{
		{Title: "third", TaskType: "regular", SetNumber: 1, TaskNumber: 1, Position: 3, RequiredCompletion: 1, RewardAmount: 5.00, IsActive: true},
		{Title: "second", TaskType: "regular", SetNumber: 1, TaskNumber: 2, Position: 2, RequiredCompletion: 1, RewardAmount: 5.00, IsActive: true},
		{Title: "first", TaskType: "regular", SetNumber: 2, TaskNumber: 1, Position: 1, RequiredCompletion: 1, RewardAmount: 5.00, IsActive: true},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed task %d: %v", i, err)
		}
	}

	controller := NewUserController(db)
	rec := httptest.NewRecorder()
	controller.Tasks(rec, authedRequest(http.MethodGet, "/v1/users/tasks", user.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Tasks []struct {
				Title    string `json:"title"`
				Position int    `json:"position"`
			} `json:"tasks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(resp.Data.Tasks))
	}
	for i, want := range []string{"first", "second", "third"} {
		if resp.Data.Tasks[i].Title != want {
			t.Fatalf("task %d: expected %q, got %q", i, want, resp.Data.Tasks[i].Title)
		}
	}
}

func TestTasks_ExcludesInactive(t *testing.T) {
	db := newTestDB(t)
	user := seedTestUser(t, db)

	active := models.Task{Title: "visible", TaskType: "regular", SetNumber: 1, TaskNumber: 1, Position: 1, RequiredCompletion: 1, RewardAmount: 5.00, IsActive: true}
	inactive := models.Task{Title: "hidden", TaskType: "regular", SetNumber: 1, TaskNumber: 2, Position: 2, RequiredCompletion: 1, RewardAmount: 5.00, IsActive: false}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("seed active task: %v", err)
	}
	if err := db.Create(&inactive).Error; err != nil {
		t.Fatalf("seed inactive task: %v", err)
	}

	controller := NewUserController(db)
	rec := httptest.NewRecorder()
	controller.Tasks(rec, authedRequest(http.MethodGet, "/v1/users/tasks", user.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Tasks []struct {
				Title string `json:"title"`
			} `json:"tasks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data.Tasks) != 1 || resp.Data.Tasks[0].Title != "visible" {
		t.Fatalf("expected only the active task, got %+v", resp.Data.Tasks)
	}
}
