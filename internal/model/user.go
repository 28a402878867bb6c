package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// IsInstructor reports whether the role may manage courses and review answers.
func (r UserRole) IsInstructor() bool {
	return r == Teacher || r == Admin
}

// swagger:model User
type User struct {
	BaseModel
	Username string   `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email    string   `gorm:"size:100" json:"email"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
}

func (User) TableName() string {
	return "users"
}
