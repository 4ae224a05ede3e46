package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/utils"
)

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)

	if _, err := UpsertUser(ctx, db, NewUser{Username: "auditora", Name: "Ana", Password: "s3cret"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	info, err := Login(ctx, db, tokens, " auditora ", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if info.TokenType != "Bearer" || info.Nome != "Ana" || info.AccessToken == "" {
		t.Fatalf("unexpected login info: %+v", info)
	}
	claims, err := tokens.JwtValidate(info.AccessToken)
	if err != nil || claims.Username != "auditora" {
		t.Fatalf("expected valid token for auditora, got %+v (%v)", claims, err)
	}

	for _, tc := range []struct{ user, pass string }{
		{"auditora", "errada"},
		{"ninguem", "s3cret"},
	} {
		if _, err := Login(ctx, db, tokens, tc.user, tc.pass); !errors.Is(err, utils.ErrorUnauthorized) {
			t.Fatalf("login %s: expected unauthorized, got %v", tc.user, err)
		}
	}
	if _, err := Login(ctx, db, tokens, "", ""); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("expected validation error for empty credentials, got %v", err)
	}
}

func TestUpsertUser_UpdatesExisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)

	if _, err := UpsertUser(ctx, db, NewUser{Username: "admin", Password: "old"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	inactive := false
	u, err := UpsertUser(ctx, db, NewUser{Username: "admin", Name: "Admin", Password: "new", IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if n := countRows(t, db, &User{}); n != 1 {
		t.Fatalf("expected a single user row, got %d", n)
	}
	if u.Name != "Admin" || u.IsActive == nil || *u.IsActive {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := Login(ctx, db, tokens, "admin", "new"); !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("expected inactive user to be rejected, got %v", err)
	}
}
