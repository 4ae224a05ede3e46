package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPercentComplete(t *testing.T) {
	cases := []struct {
		done, total int64
		want        float64
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{4, 4, 100},
	}
	for _, tc := range cases {
		if got := PercentComplete(tc.done, tc.total); got != tc.want {
			t.Fatalf("PercentComplete(%d, %d) expected %v, got %v", tc.done, tc.total, tc.want, got)
		}
	}
}

func TestUniqueSlice_KeepsFirstOccurrenceOrder(t *testing.T) {
	got := UniqueSlice([]string{"Fiscal", "Contábil", "Fiscal", "Pessoal"})
	want := []string{"Fiscal", "Contábil", "Pessoal"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMessageError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("confirm: %w", NewValidationError("Status inválido."))
	if !errors.Is(err, ErrorValidation) {
		t.Fatalf("expected errors.Is(err, ErrorValidation)")
	}
	if errors.Is(err, ErrorRecordNotFound) {
		t.Fatalf("validation error must not match not-found")
	}
	if got := UserMessage(err, "fallback"); got != "Status inválido." {
		t.Fatalf("unexpected user message %q", got)
	}
	if got := UserMessage(errors.New("boom"), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestObtainLock_NilLockerIsNoop(t *testing.T) {
	release, err := ObtainLock(context.Background(), nil, "lock:test", 0)
	if err != nil {
		t.Fatalf("expected no error without redis, got %v", err)
	}
	release()
}

func TestStorageProvider_Normalize(t *testing.T) {
	if NormalizeStorageProvider(" GCS ") != StorageProviderGCS {
		t.Fatalf("expected gcs")
	}
	if NormalizeStorageProvider("") != StorageProviderFile || NormalizeStorageProvider("s3") != StorageProviderFile {
		t.Fatalf("expected file fallback")
	}
}

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(string(hashed), "s3cret"); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}
	if err := ComparePassword(string(hashed), "other"); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
