package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/kamrulhasan12345/brainstormers-server/internal/models"
	apperrors "github.com/kamrulhasan12345/brainstormers-server/pkg/errors"
)

// TargetRule names a recipient targeting rule used when composing a send.
type TargetRule string

const (
	TargetAllStudents      TargetRule = "all_students"
	TargetCourseStudents   TargetRule = "course_students"
	TargetLectureAbsentees TargetRule = "lecture_absentees"
	TargetExamAbsentees    TargetRule = "exam_absentees"
	TargetSpecificStudent  TargetRule = "specific_student"
)

// TargetParams carries the parameters a targeting rule may require.
type TargetParams struct {
	CourseID       string `json:"course_id,omitempty"`
	LectureBatchID string `json:"lecture_batch_id,omitempty"`
	ExamBatchID    string `json:"exam_batch_id,omitempty"`
	StudentID      string `json:"student_id,omitempty"`
}

// RecipientGroup is the ephemeral composition-time view of a targeting rule:
// the rule plus its member count at the moment it was computed. It is never
// persisted or cached; membership can change between preview and send.
type RecipientGroup struct {
	Rule        TargetRule `json:"rule"`
	MemberCount int        `json:"member_count"`
}

// RecipientService resolves targeting rules into concrete student IDs.
// Resolution happens once, immediately before sending; the resolved set is
// not re-validated at delivery time.
type RecipientService struct {
	db *gorm.DB
}

// NewRecipientService constructs a RecipientService.
func NewRecipientService(db *gorm.DB) (*RecipientService, error) {
	if db == nil {
		return nil, errors.New("recipient service: db is required")
	}
	return &RecipientService{db: db}, nil
}

// Resolve turns a targeting rule into a deduplicated list of student IDs.
// A missing required parameter or a failed membership query surfaces as a
// resolution error; an empty result is returned as-is and left for the
// caller to reject (zero recipients must block the send, visibly).
func (s *RecipientService) Resolve(ctx context.Context, rule TargetRule, params TargetParams) ([]string, error) {
	ctx = ensureContext(ctx)

	var (
		ids []string
		err error
	)

	switch rule {
	case TargetAllStudents:
		ids, err = s.allStudents(ctx)
	case TargetCourseStudents:
		courseID := strings.TrimSpace(params.CourseID)
		if courseID == "" {
			return nil, missingParamError(rule, "course_id")
		}
		ids, err = s.activeCourseStudents(ctx, courseID)
	case TargetLectureAbsentees:
		batchID := strings.TrimSpace(params.LectureBatchID)
		if batchID == "" {
			return nil, missingParamError(rule, "lecture_batch_id")
		}
		ids, err = s.lectureAbsentees(ctx, batchID)
	case TargetExamAbsentees:
		batchID := strings.TrimSpace(params.ExamBatchID)
		if batchID == "" {
			return nil, missingParamError(rule, "exam_batch_id")
		}
		ids, err = s.examAbsentees(ctx, batchID)
	case TargetSpecificStudent:
		// An unset student resolves to the empty set, not an error; the
		// dispatcher rejects empty sends with an actionable message.
		if id := strings.TrimSpace(params.StudentID); id != "" {
			ids = []string{id}
		}
	default:
		return nil, apperrors.New(
			apperrors.ErrResolutionFailed.Code,
			fmt.Sprintf("unknown targeting rule %q", rule),
			http.StatusUnprocessableEntity,
		)
	}

	if err != nil {
		return nil, apperrors.ErrResolutionFailed.WithInternal(fmt.Errorf("recipient service: %s: %w", rule, err))
	}

	return normaliseIDs(ids), nil
}

// Preview computes the member count for a rule without exposing the IDs,
// used by composition screens to show "will reach N students".
func (s *RecipientService) Preview(ctx context.Context, rule TargetRule, params TargetParams) (*RecipientGroup, error) {
	ids, err := s.Resolve(ctx, rule, params)
	if err != nil {
		return nil, err
	}
	return &RecipientGroup{Rule: rule, MemberCount: len(ids)}, nil
}

func (s *RecipientService) allStudents(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Student{}).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *RecipientService) activeCourseStudents(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND active = ?", courseID, true).
		Pluck("student_id", &ids).Error
	return ids, err
}

func (s *RecipientService) lectureAbsentees(ctx context.Context, batchID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("lecture_batch_id = ? AND status = ?", batchID, models.AttendanceAbsent).
		Pluck("student_id", &ids).Error
	return ids, err
}

func (s *RecipientService) examAbsentees(ctx context.Context, batchID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ExamAttendanceRecord{}).
		Where("exam_batch_id = ? AND status = ?", batchID, models.AttendanceAbsent).
		Pluck("student_id", &ids).Error
	return ids, err
}

func missingParamError(rule TargetRule, param string) error {
	return apperrors.New(
		apperrors.ErrResolutionFailed.Code,
		fmt.Sprintf("%s is required for the %s target", param, rule),
		http.StatusUnprocessableEntity,
	)
}
