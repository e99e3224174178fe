// Package ledger renders the feedback log as a CSV artifact.
//
// Every text column is wrapped in double quotes with embedded quotes
// doubled, and Score is written as a bare integer. encoding/csv only quotes
// fields that need it, so rows are assembled here instead.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"message-triage/internal/models"
)

// Header is the first line of every export
const Header = "Timestamp,Message,Predicted,UserLabel,Language,Score"

// ContentType of the exported artifact
const ContentType = "text/csv;charset=utf-8"

// ErrEmpty is returned when there is nothing to export
var ErrEmpty = errors.New("feedback ledger is empty")

// Artifact is a downloadable CSV export
type Artifact struct {
	FileName string
	Data     []byte
}

// Export renders entries in the given order. Callers pass the ledger in
// display order (most recent first).
func Export(entries []models.FeedbackEntry, now time.Time) (Artifact, error) {
	if len(entries) == 0 {
		return Artifact{}, ErrEmpty
	}
	return Artifact{
		FileName: FileName(now),
		Data:     Encode(entries),
	}, nil
}

// Encode renders the header and one row per entry, separated by "\n" with
// no trailing newline.
func Encode(entries []models.FeedbackEntry) []byte {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, Header)
	for _, e := range entries {
		lines = append(lines, Row(e))
	}
	return []byte(strings.Join(lines, "\n"))
}

// Row renders a single ledger entry
func Row(e models.FeedbackEntry) string {
	return strings.Join([]string{
		Quote(e.Timestamp),
		Quote(e.Message),
		Quote(string(e.PredictedLabel)),
		Quote(string(e.UserLabel)),
		Quote(e.Language),
		strconv.Itoa(e.Score),
	}, ",")
}

// Quote wraps a field in double quotes, doubling embedded quotes
func Quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// FileName derives the suggested download name from the export time
func FileName(t time.Time) string {
	return fmt.Sprintf("scam-feedback-log-%d.csv", t.UnixMilli())
}
