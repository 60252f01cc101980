package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUserCreate(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ctx := context.Background()

	u, err := us.Create(ctx, "  Alice@Example.com ", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.PasswordHash == "" || u.PasswordHash == "hunter22" {
		t.Errorf("password hash = %q, want bcrypt hash", u.PasswordHash)
	}

	bal, err := NewLedgerStore(db).Balance(ctx, u.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Balance != 0 {
		t.Errorf("balance = %d, want 0", bal.Balance)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := us.Create(ctx, "alice@example.com", "Alice", "pw123456"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := us.Create(ctx, "ALICE@example.com", "Alice2", "pw123456")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUserAuthenticate(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	created, _ := us.Create(ctx, "alice@example.com", "Alice", "hunter22")

	u, err := us.Authenticate(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Fatalf("user = %+v, want id %d", u, created.ID)
	}

	u, err = us.Authenticate(ctx, "alice@example.com", "wrong")
	if err != nil {
		t.Fatalf("authenticate wrong password: %v", err)
	}
	if u != nil {
		t.Error("expected nil for wrong password")
	}

	u, err = us.Authenticate(ctx, "nobody@example.com", "hunter22")
	if err != nil {
		t.Fatalf("authenticate unknown: %v", err)
	}
	if u != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserUpdateProfile(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	created, _ := us.Create(ctx, "alice@example.com", "Alice", "hunter22")
	dob := time.Date(1990, 4, 22, 0, 0, 0, 0, time.UTC)

	u, err := us.UpdateProfile(ctx, created.ID, ProfileUpdate{Name: "Alice B", ProfilePicture: "https://img/a.png", DateOfBirth: &dob})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.Name != "Alice B" {
		t.Errorf("name = %q, want %q", u.Name, "Alice B")
	}
	if u.DateOfBirth == nil || !u.DateOfBirth.Equal(dob) {
		t.Errorf("date_of_birth = %v, want %v", u.DateOfBirth, dob)
	}

	if _, err := us.UpdateProfile(ctx, 999, ProfileUpdate{Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUserChangePassword(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	created, _ := us.Create(ctx, "alice@example.com", "Alice", "hunter22")

	ok, err := us.ChangePassword(ctx, created.ID, "wrong", "newpass99")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if ok {
		t.Fatal("expected change to be refused with wrong current password")
	}

	ok, err = us.ChangePassword(ctx, created.ID, "hunter22", "newpass99")
	if err != nil || !ok {
		t.Fatalf("change password = %v, %v; want true, nil", ok, err)
	}
	if u, _ := us.Authenticate(ctx, "alice@example.com", "newpass99"); u == nil {
		t.Error("expected new password to authenticate")
	}
}
