package domain

import (
	"errors"
	"testing"
)

func TestPasswordMatches(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	tests := []struct {
		name     string
		stored   string
		password string
		want     bool
	}{
		{"bcrypt match", hash, "s3cret", true},
		{"bcrypt mismatch", hash, "wrong", false},
		{"plain match", "1234", "1234", true},
		{"plain mismatch", "1234", "4321", false},
		{"plain empty", "", "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PasswordMatches(tt.stored, tt.password)
			if err != nil {
				t.Fatalf("PasswordMatches() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PasswordMatches(%q, %q) = %v, want %v", tt.stored, tt.password, got, tt.want)
			}
		})
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("HashPassword(\"\") = %v, want ErrInvalidInput", err)
	}
}
