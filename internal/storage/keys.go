package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Audit snapshot types used in object keys.
const (
	AuditFreeze      = "freeze"
	AuditShortlist   = "shortlisting"
	auditTimeLayout  = "20060102-150405"
	defaultExtension = "bin"
)

// SubmissionKey builds the object key for a participant upload. The original
// file name survives only as its extension; the body of the key is a UUID so
// re-uploads never collide.
func SubmissionKey(eventSlug string, roundID int64, fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" {
		ext = defaultExtension
	}
	return fmt.Sprintf("submissions/pda_events/%s/rounds/%d/%s.%s", eventSlug, roundID, uuid.NewString(), ext)
}

// AuditKey builds the object key for a freeze or shortlisting CSV snapshot.
func AuditKey(eventSlug, eventCode string, roundNo int, auditType string, at time.Time, adminRegno string) string {
	return fmt.Sprintf("pda-events/%s/audits/%s/round-%d/%s_round-%d_%s_%s_by-%s.csv",
		eventSlug, auditType, roundNo,
		eventCode, roundNo, auditType, at.UTC().Format(auditTimeLayout), adminRegno)
}
