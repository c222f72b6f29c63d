package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
	"github.com/kamrulhasan12345/brainstormers-server/internal/schedule"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/response"
)

// ScheduleHandler serves lecture and exam batch listings with their derived
// status, so every client screen shows the same answer for "is this ongoing".
type ScheduleHandler struct {
	db  *gorm.DB
	now func() time.Time
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(db *gorm.DB) (*ScheduleHandler, error) {
	if db == nil {
		return nil, errors.New("schedule handler: db is required")
	}
	return &ScheduleHandler{db: db, now: time.Now}, nil
}

type batchView struct {
	ID             string               `json:"id"`
	CourseID       string               `json:"course_id"`
	Name           string               `json:"name"`
	ScheduledStart time.Time            `json:"scheduled_start"`
	ScheduledEnd   time.Time            `json:"scheduled_end"`
	Status         schedule.BatchStatus `json:"status"`
}

// Lectures lists lecture batches, optionally filtered by course.
func (h *ScheduleHandler) Lectures(c *gin.Context) {
	query := h.db.WithContext(requestContext(c)).Order("scheduled_start ASC")
	if courseID := strings.TrimSpace(c.Query("course_id")); courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}

	var batches []models.LectureBatch
	if err := query.Find(&batches).Error; err != nil {
		response.Error(c, err)
		return
	}

	now := h.now().UTC()
	views := make([]batchView, 0, len(batches))
	for _, batch := range batches {
		views = append(views, batchView{
			ID:             batch.ID,
			CourseID:       batch.CourseID,
			Name:           batch.Name,
			ScheduledStart: batch.ScheduledStart,
			ScheduledEnd:   batch.ScheduledEnd,
			Status:         schedule.LectureStatus(batch, now),
		})
	}

	response.Success(c, http.StatusOK, views)
}

// Exams lists exam batches, optionally filtered by course.
func (h *ScheduleHandler) Exams(c *gin.Context) {
	query := h.db.WithContext(requestContext(c)).Order("scheduled_start ASC")
	if courseID := strings.TrimSpace(c.Query("course_id")); courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}

	var batches []models.ExamBatch
	if err := query.Find(&batches).Error; err != nil {
		response.Error(c, err)
		return
	}

	now := h.now().UTC()
	views := make([]batchView, 0, len(batches))
	for _, batch := range batches {
		views = append(views, batchView{
			ID:             batch.ID,
			CourseID:       batch.CourseID,
			Name:           batch.Name,
			ScheduledStart: batch.ScheduledStart,
			ScheduledEnd:   batch.ScheduledEnd,
			Status:         schedule.ExamStatus(batch, now),
		})
	}

	response.Success(c, http.StatusOK, views)
}
