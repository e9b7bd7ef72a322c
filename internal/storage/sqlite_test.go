package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"remindbot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "reminders.db")}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndListByOwner(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, 42, "5 минут", "Buy milk")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if r.CreatedAt.IsZero() {
		t.Fatal("expected created_at timestamp")
	}

	got, err := s.ListByOwner(ctx, 42)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d reminders, want 1", len(got))
	}
	if got[0].IntervalLabel != "5 минут" || got[0].MessageText != "Buy milk" {
		t.Fatalf("unexpected record: %+v", got[0])
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, 1, "3 минуты", "text"); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("err = %v, want ErrInvalidInterval", err)
	}
	if _, err := s.Create(ctx, 1, "5 минут", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("err = %v, want ErrInvalidMessage", err)
	}
	if got, _ := s.ListByOwner(ctx, 1); len(got) != 0 {
		t.Fatalf("invalid creates must not persist, got %d", len(got))
	}
}

func TestIDsMonotonic(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		r, err := s.Create(ctx, 7, "1 минута", "tick")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if r.ID <= prev {
			t.Fatalf("id %d not greater than previous %d", r.ID, prev)
		}
		prev = r.ID
	}
}

func TestDeleteOwnershipCheck(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, 42, "1 час", "stretch")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Another owner must not be able to delete it.
	if err := s.DeleteByOwnerAndID(ctx, 99, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner delete err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetByID(ctx, r.ID); err != nil {
		t.Fatalf("record should be intact after failed delete: %v", err)
	}

	if err := s.DeleteByOwnerAndID(ctx, 42, r.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := s.GetByID(ctx, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID after delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteByOwnerAndID(ctx, 42, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestListAll(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, 1, "1 минута", "one"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, 2, "2 дня", "two"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d reminders, want 2", len(all))
	}
	if all[0].ID >= all[1].ID {
		t.Fatal("ListAll must be ordered by id ascending")
	}
}

func TestReopenSeesCommittedState(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reminders.db")
	ctx := context.Background()

	s1, err := Open(Config{Path: path, BusyTimeout: time.Second}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s1.Create(ctx, 5, "12 часов", "hydrate"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(Config{Path: path}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	all, err := s2.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 || all[0].MessageText != "hydrate" {
		t.Fatalf("unexpected recovered state: %+v", all)
	}
}
