package mailer

import (
	"context"
	"errors"
	"testing"
)

func TestNew_WithoutCredentialsDisabled(t *testing.T) {
	s, err := New("smtp.example.com", 465, "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Enabled() {
		t.Error("expected transport disabled without credentials")
	}
	if err := s.Send(context.Background(), "a@b.c", "hi", "body"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNew_WithCredentialsEnabled(t *testing.T) {
	s, err := New("smtp.example.com", 465, "gym@example.com", "app-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.Enabled() {
		t.Error("expected transport enabled with credentials")
	}
}
