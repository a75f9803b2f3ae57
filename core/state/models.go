package state

import (
	"time"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
)

// Roles
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
	RoleTrainee Role = "trainee"
)

// SessionStatus values
type SessionStatus string

const (
	StatusScheduled  SessionStatus = "scheduled"
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

// User represents any platform member; the authenticated one is the
// store's Identity.
type User struct {
	ID                  int       `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	Name                string    `json:"name"`
	Role                Role      `json:"role"`
	IsTemporaryPassword bool      `json:"is_temporary_password"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTrainer() bool { return u.Role == RoleTrainer }
func (u *User) IsTrainee() bool { return u.Role == RoleTrainee }

// Session is a training session. Trainees holds trainee ids in server
// order; the REST transport flattens the wire's nested trainee objects.
type Session struct {
	ID              int            `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	TrainerID       int            `json:"trainer_id"`
	Trainees        []int          `json:"trainees"`
	ScheduledAt     time.Time      `json:"scheduled_date"`
	DurationMinutes int            `json:"duration_minutes"`
	Status          SessionStatus  `json:"status"`
	Attendance      map[int]string `json:"attendance,omitempty"`
	ClassLink       string         `json:"class_link,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (s *Session) HasTrainee(id int) bool {
	for _, t := range s.Trainees {
		if t == id {
			return true
		}
	}
	return false
}

// Assignment pairs a trainee with a trainer; (StudentID, TeacherID) is the
// composite key and appears at most once in the collection.
type Assignment struct {
	ID           int       `json:"id"`
	StudentID    int       `json:"student_id"`
	TeacherID    int       `json:"teacher_id"`
	AssignedDate time.Time `json:"assigned_date"`
}

// TraineeStatus is one row of a trainer's roster (GET /trainers/{id}/trainees).
type TraineeStatus struct {
	Trainee       User      `json:"trainee"`
	Sessions      []Session `json:"sessions"`
	SessionsCount int       `json:"sessions_count"`
	Status        string    `json:"status"`
	LastActive    time.Time `json:"last_active"`
}

// Credentials is the durable client state: the serialized Identity and the
// bearer token, exactly what the browser kept in local storage.
type Credentials struct {
	Identity User   `json:"user"`
	Token    string `json:"token"`
}

// LoginResult is the server's answer to a successful login.
type LoginResult struct {
	Token               string `json:"access_token"`
	User                User   `json:"user"`
	ForcePasswordChange bool   `json:"force_password_change"`
}

// CreatedUser wraps the creation response; the server generates the
// temporary password and returns it once for secure sharing by the admin.
type CreatedUser struct {
	User              User   `json:"user"`
	TemporaryPassword string `json:"temporary_password,omitempty"`
	Message           string `json:"message,omitempty"`
}

// NewUser contains information needed to create a new User.
// The server generates a temporary password; none is sent.
type NewUser struct {
	Username  string `json:"username" validate:"required,min=3,alphanum_"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      Role   `json:"role" validate:"required,oneof=admin trainer trainee"`
}

func (nu *NewUser) Validate() error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	return validateStruct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Username            string `json:"username,omitempty" validate:"omitempty,min=3,alphanum_"`
	Email               string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName           string `json:"first_name,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	Role                Role   `json:"role,omitempty" validate:"omitempty,oneof=admin trainer trainee"`
	Password            string `json:"password,omitempty"`
	IsTemporaryPassword *bool  `json:"is_temporary_password,omitempty"`
}

func (uu *UpdateUser) Validate() error {
	uu.Username = core.CleanString(uu.Username, true /* lower */)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	uu.FirstName = core.CleanString(uu.FirstName)
	uu.LastName = core.CleanString(uu.LastName)
	return validateStruct(uu)
}

// NewSession contains information needed to schedule a session. One or many
// trainees go through the same slice; the multi-trainee shape is canonical.
type NewSession struct {
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description,omitempty"`
	TrainerID       int       `json:"trainer_id" validate:"required,gt=0"`
	Trainees        []int     `json:"trainees" validate:"omitempty,dive,gt=0"`
	ScheduledAt     time.Time `json:"scheduled_date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1"`
	ClassLink       string    `json:"class_link,omitempty" validate:"omitempty,url"`
}

func (ns *NewSession) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	return validateStruct(ns)
}

// UpdateSession defines what information may be provided to modify a session.
// Nil/zero fields are left untouched by the server.
type UpdateSession struct {
	Title           string         `json:"title,omitempty"`
	Description     string         `json:"description,omitempty"`
	TrainerID       int            `json:"trainer_id,omitempty" validate:"omitempty,gt=0"`
	Trainees        []int          `json:"trainees,omitempty" validate:"omitempty,dive,gt=0"`
	ScheduledAt     *time.Time     `json:"scheduled_date,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty" validate:"omitempty,min=1"`
	Status          SessionStatus  `json:"status,omitempty" validate:"omitempty,oneof=scheduled in-progress completed cancelled"`
	Attendance      map[int]string `json:"attendance,omitempty"`
	ClassLink       string         `json:"class_link,omitempty" validate:"omitempty,url"`
}

func (us *UpdateSession) Validate() error {
	us.Title = core.CleanString(us.Title)
	return validateStruct(us)
}

func validateStruct(v interface{}) error {
	if err := core.Validate.Struct(v); err != nil {
		if flds := core.TranslateValidationErrors(err); flds != nil {
			return core.NewValidationError(err, flds...)
		}
		return err
	}
	return nil
}
