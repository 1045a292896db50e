package jobs

import (
	"strings"

	"github.com/tarikbs/repairdesk/i18n"
	"github.com/tarikbs/repairdesk/internal/models"
)

// statusCode maps each canonical status to its translation key.
var statusCode = map[models.JobStatus]string{
	models.JobStatusInProgress:      "status.in_progress",
	models.JobStatusCompleted:       "status.completed",
	models.JobStatusWaitingForParts: "status.waiting_for_parts",
}

// statusMeta carries the presentation attributes of a status.
type statusMeta struct {
	color string
	icon  string
}

var statusPresentation = map[models.JobStatus]statusMeta{
	models.JobStatusInProgress:      {color: "badge-info", icon: "wrench"},
	models.JobStatusCompleted:       {color: "badge-success", icon: "check-circle"},
	models.JobStatusWaitingForParts: {color: "badge-warning", icon: "package"},
}

// Neutral presentation for values outside the known set. Unknown statuses
// still render; they just carry no lifecycle styling.
const (
	neutralColor = "badge-neutral"
	neutralIcon  = "help-circle"
)

// synonyms maps tolerated legacy or localized spellings to canonical
// statuses. Lookup is case-insensitive; "Finished" survives from older
// records and is treated as Completed.
var statusSynonyms = map[string]models.JobStatus{
	"finished": models.JobStatusCompleted,
	"done":     models.JobStatusCompleted,
}

// Canonicalize resolves user-supplied status text, in any supported
// language, to a canonical status. Unrecognized input falls back to
// In Progress so a job never ends up with an unknown lifecycle state.
func Canonicalize(s string) models.JobStatus {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return models.JobStatusInProgress
	}
	lower := strings.ToLower(trimmed)
	for status := range statusCode {
		if strings.ToLower(string(status)) == lower {
			return status
		}
	}
	if status, ok := statusSynonyms[lower]; ok {
		return status
	}
	// Localized display strings are accepted on the way in as well.
	for status, code := range statusCode {
		for _, lang := range i18n.Languages() {
			if strings.ToLower(i18n.T(lang, code)) == lower {
				return status
			}
		}
	}
	return models.JobStatusInProgress
}

// KnownStatus reports whether s resolves to a status without falling back.
func KnownStatus(s string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return false
	}
	for status, code := range statusCode {
		if strings.ToLower(string(status)) == trimmed {
			return true
		}
		for _, lang := range i18n.Languages() {
			if strings.ToLower(i18n.T(lang, code)) == trimmed {
				return true
			}
		}
	}
	_, ok := statusSynonyms[trimmed]
	return ok
}

// StatusLabel returns the localized display string for a status.
func StatusLabel(status models.JobStatus, lang string) string {
	if code, ok := statusCode[status]; ok {
		return i18n.T(lang, code)
	}
	return string(status)
}

// StatusColor returns the badge class for a status, neutral when unknown.
func StatusColor(status models.JobStatus) string {
	if meta, ok := statusPresentation[status]; ok {
		return meta.color
	}
	return neutralColor
}

// StatusIcon returns the icon name for a status, neutral when unknown.
func StatusIcon(status models.JobStatus) string {
	if meta, ok := statusPresentation[status]; ok {
		return meta.icon
	}
	return neutralIcon
}
