package progression

import (
	"context"
	"errors"
	"testing"
)

func TestGetUserSnapshot_UnknownUser(t *testing.T) {
	reader := NewReader(newTestDB(t))

	_, err := reader.GetUserSnapshot(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserSnapshot_FreshUser(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 5.00, true)
	reader := NewReader(db)

	snap, err := reader.GetUserSnapshot(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.User.ID != user.ID || snap.User.FullName != user.FullName {
		t.Fatalf("unexpected profile: %+v", snap.User)
	}
	if snap.User.CurrentSet != 1 || snap.User.CurrentTask != 1 {
		t.Fatalf("expected fresh pointer (1,1), got (%d,%d)", snap.User.CurrentSet, snap.User.CurrentTask)
	}
	if len(snap.Progress) != 0 {
		t.Fatalf("expected empty progress list, got %d entries", len(snap.Progress))
	}
	if len(snap.AvailableTasks) != 1 || snap.AvailableTasks[0].ID != task.ID {
		t.Fatalf("expected the pointer task to be available, got %+v", snap.AvailableTasks)
	}
	if snap.Stats.TotalTasks != 0 || snap.Stats.CompletionRate != 0 || snap.Stats.TotalEarned != 0 {
		t.Fatalf("expected zero stats, got %+v", snap.Stats)
	}
}

func TestGetUserSnapshot_ReflectsCompletion(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	first := seedTask(t, db, 1, 1, 1, 7.00, true)
	next := seedTask(t, db, 1, 2, 1, 4.00, true)
	engine := NewEngine(db)
	reader := NewReader(db)
	ctx := context.Background()

	if _, err := engine.CompleteTaskAttempt(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	snap, err := reader.GetUserSnapshot(ctx, user.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// wallet, progress row and pointer must all be from the post-commit state
	if snap.User.WalletBalance != 7.00 {
		t.Fatalf("expected wallet 7.00, got %v", snap.User.WalletBalance)
	}
	if snap.User.CurrentSet != 1 || snap.User.CurrentTask != 2 {
		t.Fatalf("expected pointer (1,2), got (%d,%d)", snap.User.CurrentSet, snap.User.CurrentTask)
	}
	if len(snap.Progress) != 1 {
		t.Fatalf("expected one progress entry, got %d", len(snap.Progress))
	}
	entry := snap.Progress[0]
	if entry.TaskID != first.ID || !entry.IsCompleted || entry.CompletionCount != 1 {
		t.Fatalf("unexpected progress entry: %+v", entry)
	}
	if entry.Title != first.Title || entry.RewardAmount != 7.00 || entry.RequiredCompletion != 1 {
		t.Fatalf("expected task metadata on entry, got %+v", entry)
	}
	if entry.CompletedAt == nil {
		t.Fatalf("expected completed_at on completed entry")
	}
	if len(snap.AvailableTasks) != 1 || snap.AvailableTasks[0].ID != next.ID {
		t.Fatalf("expected next task available, got %+v", snap.AvailableTasks)
	}
	if snap.Stats.TotalTasks != 1 || snap.Stats.CompletedTasks != 1 || snap.Stats.CompletionRate != 100 {
		t.Fatalf("unexpected stats: %+v", snap.Stats)
	}
	if snap.Stats.TotalEarned != 7.00 {
		t.Fatalf("expected total earned 7.00, got %v", snap.Stats.TotalEarned)
	}
}

func TestGetUserSnapshot_PartialProgressCountsWithoutEarnings(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 3, 9.00, true)
	engine := NewEngine(db)
	reader := NewReader(db)
	ctx := context.Background()

	if _, err := engine.CompleteTaskAttempt(ctx, user.ID, task.ID); err != nil {
		t.Fatalf("attempt: %v", err)
	}

	snap, err := reader.GetUserSnapshot(ctx, user.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Stats.TotalTasks != 1 || snap.Stats.CompletedTasks != 0 || snap.Stats.CompletionRate != 0 {
		t.Fatalf("unexpected stats: %+v", snap.Stats)
	}
	if snap.Stats.TotalEarned != 0 {
		t.Fatalf("partial progress must not earn, got %v", snap.Stats.TotalEarned)
	}
	// the attempted-but-incomplete task stays available at the pointer
	if len(snap.AvailableTasks) != 1 || snap.AvailableTasks[0].ID != task.ID {
		t.Fatalf("expected task still available, got %+v", snap.AvailableTasks)
	}
}

func TestGetUserSnapshot_OrdersProgressBySetThenTask(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	late := seedTask(t, db, 2, 1, 1, 5.00, true)
	early := seedTask(t, db, 1, 1, 1, 5.00, true)
	engine := NewEngine(db)
	reader := NewReader(db)
	ctx := context.Background()

	// complete out of order; the listing must still sort by (set, task)
	if _, err := engine.CompleteTaskAttempt(ctx, user.ID, late.ID); err != nil {
		t.Fatalf("complete late: %v", err)
	}
	if _, err := engine.CompleteTaskAttempt(ctx, user.ID, early.ID); err != nil {
		t.Fatalf("complete early: %v", err)
	}

	snap, err := reader.GetUserSnapshot(ctx, user.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Progress) != 2 {
		t.Fatalf("expected two entries, got %d", len(snap.Progress))
	}
	if snap.Progress[0].SetNumber != 1 || snap.Progress[1].SetNumber != 2 {
		t.Fatalf("entries out of order: %+v", snap.Progress)
	}
}

func TestGetUserSnapshot_TerminalUserHasNoAvailableTasks(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	task := seedTask(t, db, 1, 1, 1, 5.00, true)
	engine := NewEngine(db)
	reader := NewReader(db)
	ctx := context.Background()

	if _, err := engine.CompleteTaskAttempt(ctx, user.ID, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	snap, err := reader.GetUserSnapshot(ctx, user.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// pointer still at (1,1) but that task is completed, so nothing is available
	if len(snap.AvailableTasks) != 0 {
		t.Fatalf("expected no available tasks, got %+v", snap.AvailableTasks)
	}
}

func TestGetUserSnapshot_InactivePointerTaskNotAvailable(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedTask(t, db, 1, 1, 1, 5.00, false)
	reader := NewReader(db)

	snap, err := reader.GetUserSnapshot(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.AvailableTasks) != 0 {
		t.Fatalf("inactive task must not be available, got %+v", snap.AvailableTasks)
	}
}
