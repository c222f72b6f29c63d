// Package schedule derives lecture and exam batch statuses from their
// scheduled window. Both admin and student views call through here so the
// derivation cannot drift between screens.
package schedule

import (
	"time"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
)

// BatchStatus is the presentation status of a lecture or exam batch.
type BatchStatus string

const (
	StatusUpcoming  BatchStatus = "upcoming"
	StatusOngoing   BatchStatus = "ongoing"
	StatusCompleted BatchStatus = "completed"
	StatusCancelled BatchStatus = "cancelled"
	StatusPostponed BatchStatus = "postponed"
)

// StatusAt derives the status of a scheduled window at the given instant.
// A manual override short-circuits the time-based derivation entirely.
func StatusAt(now, start, end time.Time, override string) BatchStatus {
	switch override {
	case models.BatchOverrideCancelled:
		return StatusCancelled
	case models.BatchOverridePostponed:
		return StatusPostponed
	}

	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.Before(end):
		return StatusOngoing
	default:
		return StatusCompleted
	}
}

// LectureStatus derives the status of a lecture batch.
func LectureStatus(batch models.LectureBatch, now time.Time) BatchStatus {
	return StatusAt(now, batch.ScheduledStart, batch.ScheduledEnd, batch.StatusOverride)
}

// ExamStatus derives the status of an exam batch.
func ExamStatus(batch models.ExamBatch, now time.Time) BatchStatus {
	return StatusAt(now, batch.ScheduledStart, batch.ScheduledEnd, batch.StatusOverride)
}
