package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/database/testutil"
	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
)

func seedRoster(t *testing.T, db *gorm.DB) {
	t.Helper()

	students := []string{"student-a", "student-b", "student-c"}
	for _, id := range students {
		require.NoError(t, db.Create(newStudent(id, "Student "+id)).Error)
	}

	require.NoError(t, db.Create(&models.Course{
		BaseModel: models.BaseModel{ID: "course-1"},
		Code:      "PHY-201",
		Name:      "Physics II",
	}).Error)

	// student-a active, student-b dropped, student-c never enrolled.
	require.NoError(t, db.Create(&models.Enrollment{
		StudentID: "student-a", CourseID: "course-1", Active: true,
	}).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		StudentID: "student-b", CourseID: "course-1", Active: false,
	}).Error)

	start := time.Now().UTC().Add(-2 * time.Hour)
	end := start.Add(time.Hour)
	require.NoError(t, db.Create(&models.LectureBatch{
		BaseModel: models.BaseModel{ID: "lecture-1"},
		CourseID:  "course-1", Name: "Week 4",
		ScheduledStart: start, ScheduledEnd: end,
	}).Error)
	require.NoError(t, db.Create(&models.ExamBatch{
		BaseModel: models.BaseModel{ID: "exam-1"},
		CourseID:  "course-1", Name: "Midterm",
		ScheduledStart: start, ScheduledEnd: end,
	}).Error)

	attendance := map[string]string{
		"student-a": models.AttendanceAbsent,
		"student-b": models.AttendancePresent,
		"student-c": models.AttendanceAbsent,
	}
	for studentID, status := range attendance {
		require.NoError(t, db.Create(&models.AttendanceRecord{
			LectureBatchID: "lecture-1", StudentID: studentID, Status: status,
		}).Error)
	}

	require.NoError(t, db.Create(&models.ExamAttendanceRecord{
		ExamBatchID: "exam-1", StudentID: "student-b", Status: models.AttendanceAbsent,
	}).Error)
	require.NoError(t, db.Create(&models.ExamAttendanceRecord{
		ExamBatchID: "exam-1", StudentID: "student-a", Status: models.AttendanceLate,
	}).Error)
}

func TestResolveAllStudents(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedRoster(t, db)

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	ids, err := svc.Resolve(context.Background(), TargetAllStudents, TargetParams{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"student-a", "student-b", "student-c"}, ids)
}

func TestResolveCourseStudentsExcludesDropped(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedRoster(t, db)

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	ids, err := svc.Resolve(context.Background(), TargetCourseStudents, TargetParams{CourseID: "course-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"student-a"}, ids)
}

func TestResolveCourseStudentsRequiresCourseID(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), TargetCourseStudents, TargetParams{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "course_id is required")
}

func TestResolveLectureAbsentees(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedRoster(t, db)

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	ids, err := svc.Resolve(context.Background(), TargetLectureAbsentees, TargetParams{LectureBatchID: "lecture-1"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"student-a", "student-c"}, ids)
}

func TestResolveExamAbsenteesExcludesLate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedRoster(t, db)

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	ids, err := svc.Resolve(context.Background(), TargetExamAbsentees, TargetParams{ExamBatchID: "exam-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"student-b"}, ids)
}

func TestResolveSpecificStudent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	ids, err := svc.Resolve(context.Background(), TargetSpecificStudent, TargetParams{StudentID: "student-a"})
	require.NoError(t, err)
	require.Equal(t, []string{"student-a"}, ids)

	// Unset student resolves to the empty set; rejecting it is the caller's job.
	ids, err = svc.Resolve(context.Background(), TargetSpecificStudent, TargetParams{})
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestResolveUnknownRule(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), TargetRule("everyone_ever"), TargetParams{})
	require.Error(t, err)
}

func TestPreviewReportsMemberCount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	seedRoster(t, db)

	svc, err := NewRecipientService(db)
	require.NoError(t, err)

	group, err := svc.Preview(context.Background(), TargetLectureAbsentees, TargetParams{LectureBatchID: "lecture-1"})
	require.NoError(t, err)
	require.Equal(t, TargetLectureAbsentees, group.Rule)
	require.Equal(t, 2, group.MemberCount)
}
