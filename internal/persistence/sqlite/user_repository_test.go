package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/room-booking/internal/persistence"
)

func TestUserRepositoryCreateAndGet(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user := persistence.User{
		ID:           "user-1",
		Email:        "Alice@Example.com",
		DisplayName:  "Alice",
		PasswordHash: "argon2id$hash",
		IsAdmin:      true,
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	stored, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored.Email != "alice@example.com" {
		t.Fatalf("email not lowercased: %q", stored.Email)
	}
	if !stored.IsAdmin {
		t.Fatal("admin flag lost")
	}
	if stored.PasswordHash != "argon2id$hash" {
		t.Fatalf("hash not preserved: %q", stored.PasswordHash)
	}
}

func TestUserRepositoryGetByEmailIsCaseInsensitive(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	seedTestUser(t, pool, "user-1")

	stored, err := repo.GetUserByEmail(ctx, "  USER-1@example.com ")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if stored.ID != "user-1" {
		t.Fatalf("unexpected user: %q", stored.ID)
	}

	if _, err := repo.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserRepositoryRejectsDuplicateEmail(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	seedTestUser(t, pool, "user-1")

	dup := persistence.User{
		ID:           "user-2",
		Email:        "USER-1@example.com",
		DisplayName:  "Impostor",
		PasswordHash: "hash",
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestUserRepositoryUpdateUser(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	seedTestUser(t, pool, "user-1")

	stored, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}

	stored.DisplayName = "Renamed"
	stored.IsAdmin = true
	if err := repo.UpdateUser(ctx, stored); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	updated, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if updated.DisplayName != "Renamed" || !updated.IsAdmin {
		t.Fatalf("update not applied: %+v", updated)
	}

	missing := updated
	missing.ID = "missing"
	missing.Email = "other@example.com"
	if err := repo.UpdateUser(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserRepositoryListOrdering(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	for _, user := range []persistence.User{
		{ID: "u-2", Email: "zoe@example.com", DisplayName: "Zoe", PasswordHash: "h", CreatedAt: testTime, UpdatedAt: testTime},
		{ID: "u-1", Email: "amy@example.com", DisplayName: "Amy", PasswordHash: "h", CreatedAt: testTime, UpdatedAt: testTime},
	} {
		if err := repo.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser %s failed: %v", user.ID, err)
		}
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].DisplayName != "Amy" || users[1].DisplayName != "Zoe" {
		t.Fatalf("unexpected ordering: %+v", users)
	}
}
