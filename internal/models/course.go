package models

// Course groups students through enrollments.
type Course struct {
	BaseModel

	Code string `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

// Enrollment links a student to a course. Dropped students keep their row
// with Active=false and are excluded from course-targeted sends.
type Enrollment struct {
	BaseModel

	StudentID string `gorm:"type:uuid;index;not null" json:"student_id"`
	CourseID  string `gorm:"type:uuid;index;not null" json:"course_id"`
	Active    bool   `gorm:"default:true;index" json:"active"`

	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Course  *Course  `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
