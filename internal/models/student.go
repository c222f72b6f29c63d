package models

// Student is a member of the roster that can receive notifications.
type Student struct {
	BaseModel

	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	RollNo   string `gorm:"type:varchar(64);index" json:"roll_no"`
}
