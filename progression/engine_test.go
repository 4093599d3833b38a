package progression

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akivalo0017-dot/travelsite/models"
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
	// one connection keeps the in-memory database alive and serializes
	// transactions the way a real server's row locks would
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.UserProgress{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
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

func seedTask(t *testing.T, db *gorm.DB, set, num, required int, reward float64, active bool) models.Task {
	t.Helper()
	task := models.Task{
		Title:              "task",
		TaskType:           "regular",
		SetNumber:          set,
		TaskNumber:         num,
		RequiredCompletion: required,
		RewardAmount:       reward,
		IsActive:           active,
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task (%d,%d): %v", set, num, err)
	}
	return task
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user
}

func loadProgress(t *testing.T, db *gorm.DB, userID, taskID uint) models.UserProgress {
	t.Helper()
	var row models.UserProgress
	if err := db.Where("user_id = ? AND task_id = ?", userID, taskID).Take(&row).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	return row
}

func TestCompleteTaskAttempt_FirstCompletionPaysReward(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 7.50, true)
	engine := NewEngine(db)

	res, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Completed {
		t.Fatalf("expected completed result")
	}
	if res.Reward != 7.50 {
		t.Fatalf("expected reward 7.50, got %v", res.Reward)
	}
	if res.Progress.Current != 1 || res.Progress.Required != 1 || res.Progress.Percentage != 100 {
		t.Fatalf("unexpected progress: %+v", res.Progress)
	}

	if got := reloadUser(t, db, user.ID).WalletBalance; got != 7.50 {
		t.Fatalf("expected wallet 7.50, got %v", got)
	}
	row := loadProgress(t, db, user.ID, task.ID)
	if row.CompletionCount != 1 || !row.IsCompleted || row.CompletedAt == nil {
		t.Fatalf("unexpected progress row: %+v", row)
	}
	if row.SetNumber != 1 || row.TaskNumber != 1 {
		t.Fatalf("expected denormalized set/task numbers, got %+v", row)
	}
}

func TestCompleteTaskAttempt_RepeatDoesNotDoublePay(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 10.00, true)
	engine := NewEngine(db)

	if _, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	_, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID)
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	if got := reloadUser(t, db, user.ID).WalletBalance; got != 10.00 {
		t.Fatalf("expected wallet credited exactly once (10.00), got %v", got)
	}
	if row := loadProgress(t, db, user.ID, task.ID); row.CompletionCount != 1 {
		t.Fatalf("expected completion_count 1, got %d", row.CompletionCount)
	}
}

func TestCompleteTaskAttempt_MultiStepCompletion(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 3, 9.00, true)
	engine := NewEngine(db)
	ctx := context.Background()

	wantPercent := []int{33, 67, 100}
	for i := 0; i < 3; i++ {
		res, err := engine.CompleteTaskAttempt(ctx, user.ID, task.ID)
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if res.Progress.Current != i+1 || res.Progress.Required != 3 {
			t.Fatalf("attempt %d: unexpected progress %+v", i+1, res.Progress)
		}
		if res.Progress.Percentage != wantPercent[i] {
			t.Fatalf("attempt %d: expected %d%%, got %d%%", i+1, wantPercent[i], res.Progress.Percentage)
		}
		wantCompleted := i == 2
		if res.Completed != wantCompleted {
			t.Fatalf("attempt %d: completed=%v", i+1, res.Completed)
		}
		wantReward := 0.0
		if wantCompleted {
			wantReward = 9.00
		}
		if res.Reward != wantReward {
			t.Fatalf("attempt %d: reward %v", i+1, res.Reward)
		}

		row := loadProgress(t, db, user.ID, task.ID)
		if wantCompleted {
			if !row.IsCompleted || row.CompletedAt == nil {
				t.Fatalf("attempt %d: expected completed row, got %+v", i+1, row)
			}
		} else if row.IsCompleted || row.CompletedAt != nil {
			t.Fatalf("attempt %d: row completed too early: %+v", i+1, row)
		}
	}

	if got := reloadUser(t, db, user.ID).WalletBalance; got != 9.00 {
		t.Fatalf("expected single credit of 9.00, got %v", got)
	}
}

func TestCompleteTaskAttempt_AdvancesWithinSet(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 5.00, true)
	seedTask(t, db, 1, 2, 1, 5.00, true)
	engine := NewEngine(db)

	if _, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated := reloadUser(t, db, user.ID)
	if updated.CurrentSet != 1 || updated.CurrentTask != 2 {
		t.Fatalf("expected pointer (1,2), got (%d,%d)", updated.CurrentSet, updated.CurrentTask)
	}
}

func TestCompleteTaskAttempt_SkipsInactiveTasksWithinSet(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 5.00, true)
	seedTask(t, db, 1, 2, 1, 5.00, false)
	seedTask(t, db, 1, 3, 1, 5.00, true)
	engine := NewEngine(db)

	if _, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated := reloadUser(t, db, user.ID)
	if updated.CurrentSet != 1 || updated.CurrentTask != 3 {
		t.Fatalf("expected pointer (1,3), got (%d,%d)", updated.CurrentSet, updated.CurrentTask)
	}
}

func TestCompleteTaskAttempt_AdvancesAcrossSets(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 5.00, true)
	seedTask(t, db, 3, 1, 1, 5.00, true)
	engine := NewEngine(db)

	if _, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated := reloadUser(t, db, user.ID)
	if updated.CurrentSet != 3 || updated.CurrentTask != 1 {
		t.Fatalf("expected pointer (3,1), got (%d,%d)", updated.CurrentSet, updated.CurrentTask)
	}
}

func TestCompleteTaskAttempt_TerminalStateLeavesPointer(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 5.00, true)
	engine := NewEngine(db)

	res, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID)
	if err != nil {
		t.Fatalf("completing the last task must not fail: %v", err)
	}
	if !res.Completed {
		t.Fatalf("expected completion")
	}
	updated := reloadUser(t, db, user.ID)
	if updated.CurrentSet != 1 || updated.CurrentTask != 1 {
		t.Fatalf("expected pointer unchanged at (1,1), got (%d,%d)", updated.CurrentSet, updated.CurrentTask)
	}
}

func TestCompleteTaskAttempt_UnknownTask(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	engine := NewEngine(db)

	_, err := engine.CompleteTaskAttempt(context.Background(), user.ID, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteTaskAttempt_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	task := seedTask(t, db, 1, 1, 1, 5.00, true)
	engine := NewEngine(db)

	_, err := engine.CompleteTaskAttempt(context.Background(), 999, task.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteTaskAttempt_ZeroIDs(t *testing.T) {
	engine := NewEngine(newTestDB(t))

	if _, err := engine.CompleteTaskAttempt(context.Background(), 0, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero user id, got %v", err)
	}
	if _, err := engine.CompleteTaskAttempt(context.Background(), 1, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero task id, got %v", err)
	}
}

func TestCompleteTaskAttempt_ConcurrentSameTask(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 4.00, true)
	engine := NewEngine(db)

	type outcome struct {
		res *CompletionResult
		err error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.CompleteTaskAttempt(context.Background(), user.ID, task.ID)
			results <- outcome{res, err}
		}()
	}
	wg.Wait()
	close(results)

	var completed, already int
	for out := range results {
		switch {
		case out.err == nil && out.res.Completed:
			completed++
		case errors.Is(out.err, ErrAlreadyCompleted):
			already++
		default:
			t.Fatalf("unexpected outcome: res=%+v err=%v", out.res, out.err)
		}
	}
	if completed != 1 || already != 1 {
		t.Fatalf("expected exactly one completion and one AlreadyCompleted, got %d/%d", completed, already)
	}

	if got := reloadUser(t, db, user.ID).WalletBalance; got != 4.00 {
		t.Fatalf("expected a single credit of 4.00, got %v", got)
	}
	if row := loadProgress(t, db, user.ID, task.ID); row.CompletionCount != 1 {
		t.Fatalf("expected completion_count 1 after race, got %d", row.CompletionCount)
	}
}

func TestCompleteTaskAttempt_DifferentTasksBothCredit(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	first := seedTask(t, db, 1, 1, 1, 3.00, true)
	second := seedTask(t, db, 1, 2, 1, 5.00, true)
	engine := NewEngine(db)
	ctx := context.Background()

	if _, err := engine.CompleteTaskAttempt(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("first task: %v", err)
	}
	if _, err := engine.CompleteTaskAttempt(ctx, user.ID, second.ID); err != nil {
		t.Fatalf("second task: %v", err)
	}
	if got := reloadUser(t, db, user.ID).WalletBalance; got != 8.00 {
		t.Fatalf("expected both rewards credited (8.00), got %v", got)
	}
}

func TestSeededInactiveTaskStaysInactive(t *testing.T) {
	db := newTestDB(t)
	task := seedTask(t, db, 1, 1, 1, 5.00, false)

	var got models.Task
	if err := db.First(&got, task.ID).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if got.IsActive {
		t.Fatalf("task created with IsActive=false was stored as active")
	}
}
