package storage

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestSubmissionKey(t *testing.T) {
	key := SubmissionKey("ind-1", 12, "Pitch Deck.PDF")

	if !strings.HasPrefix(key, "submissions/pda_events/ind-1/rounds/12/") {
		t.Errorf("key %q missing expected prefix", key)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key %q should end with lowercased extension .pdf", key)
	}

	// The body is a UUID, so two calls never collide.
	if other := SubmissionKey("ind-1", 12, "Pitch Deck.PDF"); other == key {
		t.Error("two keys for the same input should differ")
	}
}

func TestSubmissionKeyNoExtension(t *testing.T) {
	key := SubmissionKey("ind-1", 3, "archive")
	if !strings.HasSuffix(key, ".bin") {
		t.Errorf("extensionless files should get .bin, got %q", key)
	}
}

func TestAuditKey(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	key := AuditKey("hack-the-valley", "EVT101", 2, AuditFreeze, at, "2101001")

	want := "pda-events/hack-the-valley/audits/freeze/round-2/EVT101_round-2_freeze_20260314-092653_by-2101001.csv"
	if key != want {
		t.Errorf("AuditKey = %q, want %q", key, want)
	}
}

func TestAuditKeyShortlisting(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	key := AuditKey("hack-the-valley", "EVT101", 1, AuditShortlist, at, "2101001")

	if !strings.Contains(key, "/audits/shortlisting/round-1/") {
		t.Errorf("key %q missing shortlisting path segment", key)
	}
	matched, err := regexp.MatchString(`_shortlisting_\d{8}-\d{6}_by-2101001\.csv$`, key)
	if err != nil || !matched {
		t.Errorf("key %q does not match the audit file pattern", key)
	}
}

func TestLocalStorePublicURL(t *testing.T) {
	l := NewLocal(t.TempDir())
	if got := l.PublicURL("a/b.csv"); got != "/uploads/a/b.csv" {
		t.Errorf("PublicURL = %q, want /uploads/a/b.csv", got)
	}
}

func TestLocalStoreUpload(t *testing.T) {
	l := NewLocal(t.TempDir())
	url, err := l.Upload(context.Background(), "pda-events/x/audits/freeze/round-1/f.csv", []byte("a,b\n"), "text/csv")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/uploads/pda-events/x/audits/freeze/round-1/f.csv" {
		t.Errorf("url = %q", url)
	}
}
