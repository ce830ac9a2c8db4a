package auth

import (
	"testing"
	"time"

	"github.com/pdamit/events-api/internal/models"
)

func TestParticipantTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("unit-secret", 12*time.Hour)

	token, err := m.IssueParticipant(42, "2203109", time.Hour)
	if err != nil {
		t.Fatalf("IssueParticipant: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserType != UserTypeParticipant {
		t.Errorf("user_type = %q, want %q", claims.UserType, UserTypeParticipant)
	}
	if claims.Regno != "2203109" {
		t.Errorf("regno = %q, want 2203109", claims.Regno)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("UserID() = %d, %v, want 42", id, err)
	}
	if claims.QR != "" {
		t.Errorf("session token must not carry a qr claim, got %q", claims.QR)
	}
}

func TestAdminToken(t *testing.T) {
	m := NewTokenManager("unit-secret", 12*time.Hour)

	token, err := m.IssueAdmin(7, "2101001", true, time.Hour)
	if err != nil {
		t.Fatalf("IssueAdmin: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserType != UserTypeAdmin {
		t.Errorf("user_type = %q, want %q", claims.UserType, UserTypeAdmin)
	}
	if !claims.IsSuper {
		t.Error("is_super should survive the round trip")
	}
}

func TestQRTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("unit-secret", 12*time.Hour)

	token, exp, err := m.IssueQR(42, "ind-1", models.UserEntity(42))
	if err != nil {
		t.Fatalf("IssueQR: %v", err)
	}
	if until := time.Until(exp); until < 11*time.Hour || until > 12*time.Hour {
		t.Errorf("expiry %v not within the 12h window", until)
	}

	claims, err := m.ParseQR(token)
	if err != nil {
		t.Fatalf("ParseQR: %v", err)
	}
	if claims.EventSlug != "ind-1" {
		t.Errorf("event_slug = %q, want ind-1", claims.EventSlug)
	}
	if claims.EntityType != string(models.EntityUser) || claims.EntityID != 42 {
		t.Errorf("entity = %s:%d, want USER:42", claims.EntityType, claims.EntityID)
	}
}

func TestParseQRRejectsSessionToken(t *testing.T) {
	m := NewTokenManager("unit-secret", 12*time.Hour)

	token, err := m.IssueParticipant(42, "2203109", time.Hour)
	if err != nil {
		t.Fatalf("IssueParticipant: %v", err)
	}
	if _, err := m.ParseQR(token); err != ErrNotQRToken {
		t.Errorf("ParseQR(session token) err = %v, want ErrNotQRToken", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 12*time.Hour)
	verifier := NewTokenManager("secret-b", 12*time.Hour)

	token, err := issuer.IssueParticipant(1, "r", time.Hour)
	if err != nil {
		t.Fatalf("IssueParticipant: %v", err)
	}
	if _, err := verifier.Parse(token); err != ErrInvalidToken {
		t.Errorf("Parse with wrong secret err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager("unit-secret", 12*time.Hour)

	token, err := m.IssueParticipant(1, "r", -time.Minute)
	if err != nil {
		t.Fatalf("IssueParticipant: %v", err)
	}
	if _, err := m.Parse(token); err != ErrInvalidToken {
		t.Errorf("Parse(expired) err = %v, want ErrInvalidToken", err)
	}
}
