package logic

import (
	"testing"
	"time"

	"github.com/pdamit/events-api/internal/models"
)

func TestSubmissionLockReason(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		round models.Round
		want  string
	}{
		{"open", models.Round{State: models.RoundActive, SubmissionDeadline: &future}, ""},
		{"no deadline", models.Round{State: models.RoundPublished}, ""},
		{"admin lock", models.Round{State: models.RoundActive, SubmissionsLocked: true}, LockAdmin},
		{"past deadline", models.Round{State: models.RoundActive, SubmissionDeadline: &past}, LockDeadline},
		{"deadline at this instant", models.Round{State: models.RoundActive, SubmissionDeadline: &now}, LockDeadline},
		{"frozen", models.Round{State: models.RoundActive, IsFrozen: true}, LockFrozen},
		{"completed", models.Round{State: models.RoundCompleted}, LockFinalized},
		{"reveal", models.Round{State: models.RoundReveal}, LockFinalized},
		{
			"deadline beats admin lock",
			models.Round{State: models.RoundActive, SubmissionDeadline: &past, SubmissionsLocked: true},
			LockDeadline,
		},
		{
			"frozen beats deadline",
			models.Round{State: models.RoundActive, IsFrozen: true, SubmissionDeadline: &past, SubmissionsLocked: true},
			LockFrozen,
		},
		{
			"finalized beats everything",
			models.Round{State: models.RoundCompleted, IsFrozen: true, SubmissionDeadline: &past, SubmissionsLocked: true},
			LockFinalized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubmissionLockReason(&tt.round, now); got != tt.want {
				t.Errorf("SubmissionLockReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLockMessage(t *testing.T) {
	for _, reason := range []string{LockFinalized, LockFrozen, LockDeadline, LockAdmin, "other"} {
		if lockMessage(reason) == "" {
			t.Errorf("lockMessage(%q) is empty", reason)
		}
	}
}

func TestValidateVariant(t *testing.T) {
	round := &models.Round{
		RoundNo:          2,
		SubmissionMode:   models.SubmitFileOrLink,
		AllowedMimeTypes: []string{"application/pdf"},
		MaxFileSizeMB:    25,
	}

	t.Run("file keeps file fields, blanks link", func(t *testing.T) {
		got, err := validateVariant(round, &models.UpsertSubmissionRequest{
			SubmissionType: models.SubmissionFile,
			FileURL:        "https://cdn.example/x.pdf",
			FileName:       "x.pdf",
			FileSizeBytes:  1024,
			MimeType:       "application/pdf",
			LinkURL:        "https://drive.example/leftover",
		}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.LinkURL != "" {
			t.Errorf("LinkURL = %q, want blank", got.LinkURL)
		}
		if got.FileURL == "" {
			t.Error("FileURL was blanked")
		}
	})

	t.Run("link blanks file fields", func(t *testing.T) {
		got, err := validateVariant(round, &models.UpsertSubmissionRequest{
			SubmissionType: models.SubmissionLink,
			LinkURL:        "https://drive.example/deck",
			FileURL:        "https://cdn.example/stale.pdf",
			FileName:       "stale.pdf",
			FileSizeBytes:  99,
			MimeType:       "application/pdf",
		}, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.FileURL != "" || got.FileName != "" || got.MimeType != "" || got.FileSizeBytes != 0 {
			t.Errorf("file fields survived: %+v", got)
		}
		if got.LinkURL == "" {
			t.Error("LinkURL was blanked")
		}
	})

	tests := []struct {
		name     string
		mode     models.SubmissionMode
		req      models.UpsertSubmissionRequest
		enforce  bool
		wantKind Kind
	}{
		{
			"file into link-only round",
			models.SubmitLink,
			models.UpsertSubmissionRequest{SubmissionType: models.SubmissionFile, FileURL: "https://x/a.pdf", FileSizeBytes: 1, MimeType: "application/pdf"},
			true, KindBadInput,
		},
		{
			"link into file-only round",
			models.SubmitFile,
			models.UpsertSubmissionRequest{SubmissionType: models.SubmissionLink, LinkURL: "https://x"},
			true, KindBadInput,
		},
		{
			"file missing url",
			models.SubmitFileOrLink,
			models.UpsertSubmissionRequest{SubmissionType: models.SubmissionFile, FileSizeBytes: 1, MimeType: "application/pdf"},
			true, KindBadInput,
		},
		{
			"link missing url",
			models.SubmitFileOrLink,
			models.UpsertSubmissionRequest{SubmissionType: models.SubmissionLink},
			true, KindBadInput,
		},
		{
			"disallowed mime",
			models.SubmitFileOrLink,
			models.UpsertSubmissionRequest{SubmissionType: models.SubmissionFile, FileURL: "https://x/a.exe", FileSizeBytes: 1, MimeType: "application/octet-stream"},
			true, KindBadFile,
		},
		{
			"oversize file",
			models.SubmitFileOrLink,
			models.UpsertSubmissionRequest{SubmissionType: models.SubmissionFile, FileURL: "https://x/a.pdf", FileSizeBytes: 26 << 20, MimeType: "application/pdf"},
			true, KindBadFile,
		},
		{
			"unknown variant",
			models.SubmitFileOrLink,
			models.UpsertSubmissionRequest{SubmissionType: "carrier-pigeon"},
			true, KindBadInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := *round
			r.SubmissionMode = tt.mode
			_, err := validateVariant(&r, &tt.req, tt.enforce)
			if KindOf(err) != tt.wantKind {
				t.Errorf("kind = %q, want %q (err: %v)", KindOf(err), tt.wantKind, err)
			}
		})
	}

	t.Run("mode ignored when not enforced", func(t *testing.T) {
		r := *round
		r.SubmissionMode = models.SubmitLink
		_, err := validateVariant(&r, &models.UpsertSubmissionRequest{
			SubmissionType: models.SubmissionFile,
			FileURL:        "https://x/a.pdf",
			FileSizeBytes:  1,
			MimeType:       "application/pdf",
		}, false)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
