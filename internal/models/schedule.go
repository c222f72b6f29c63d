package models

import "time"

// Attendance statuses recorded per student per batch.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// Manual batch status overrides. When set they short-circuit the time-based
// status derivation in the schedule package.
const (
	BatchOverrideCancelled = "cancelled"
	BatchOverridePostponed = "postponed"
)

// LectureBatch is a scheduled lecture occurrence for a course.
type LectureBatch struct {
	BaseModel

	CourseID       string    `gorm:"type:uuid;index;not null" json:"course_id"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	ScheduledStart time.Time `gorm:"index;not null" json:"scheduled_start"`
	ScheduledEnd   time.Time `gorm:"not null" json:"scheduled_end"`
	StatusOverride string    `gorm:"type:varchar(32)" json:"status_override"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// ExamBatch is a scheduled exam occurrence for a course.
type ExamBatch struct {
	BaseModel

	CourseID       string    `gorm:"type:uuid;index;not null" json:"course_id"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	ScheduledStart time.Time `gorm:"index;not null" json:"scheduled_start"`
	ScheduledEnd   time.Time `gorm:"not null" json:"scheduled_end"`
	StatusOverride string    `gorm:"type:varchar(32)" json:"status_override"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// AttendanceRecord captures one student's attendance for a lecture batch.
type AttendanceRecord struct {
	BaseModel

	LectureBatchID string `gorm:"type:uuid;index;not null" json:"lecture_batch_id"`
	StudentID      string `gorm:"type:uuid;index;not null" json:"student_id"`
	Status         string `gorm:"type:varchar(32);not null" json:"status"`

	LectureBatch *LectureBatch `gorm:"foreignKey:LectureBatchID" json:"lecture_batch,omitempty"`
	Student      *Student      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// ExamAttendanceRecord captures one student's attendance for an exam batch.
type ExamAttendanceRecord struct {
	BaseModel

	ExamBatchID string `gorm:"type:uuid;index;not null" json:"exam_batch_id"`
	StudentID   string `gorm:"type:uuid;index;not null" json:"student_id"`
	Status      string `gorm:"type:varchar(32);not null" json:"status"`

	ExamBatch *ExamBatch `gorm:"foreignKey:ExamBatchID" json:"exam_batch,omitempty"`
	Student   *Student   `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
