package state

import (
	"context"
	"sync"
)

// BackendMock implements Backend with overridable function fields; nil
// fields return zero values. Meant for tests.
type BackendMock struct {
	LoginFn           func(ctx context.Context, username, password string) (LoginResult, error)
	HealthFn          func(ctx context.Context, token string) error
	ChangePasswordFn  func(ctx context.Context, token, newPwd, currentPwd string) error
	ResetPasswordFn   func(ctx context.Context, token string, userID int, newPwd string) (string, error)
	ListUsersFn       func(ctx context.Context, token string) ([]User, error)
	CreateUserFn      func(ctx context.Context, token string, nu NewUser) (CreatedUser, error)
	UpdateUserFn      func(ctx context.Context, token string, id int, uu UpdateUser) (User, error)
	DeleteUserFn      func(ctx context.Context, token string, id int) error
	ListSessionsFn    func(ctx context.Context, token string) ([]Session, error)
	CreateSessionFn   func(ctx context.Context, token string, ns NewSession) (Session, error)
	UpdateSessionFn   func(ctx context.Context, token string, id int, us UpdateSession) (Session, error)
	DeleteSessionFn   func(ctx context.Context, token string, id int) error
	ListAssignmentsFn func(ctx context.Context, token string) ([]Assignment, error)
	AssignStudentFn   func(ctx context.Context, token string, studentID, teacherID int) (Assignment, error)
	UnassignStudentFn func(ctx context.Context, token string, studentID, teacherID int) error
	TrainerRosterFn   func(ctx context.Context, token string, trainerID int) ([]TraineeStatus, error)
}

var _ Backend = (*BackendMock)(nil)

func (m *BackendMock) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if m.LoginFn == nil {
		return LoginResult{}, nil
	}
	return m.LoginFn(ctx, username, password)
}

func (m *BackendMock) Health(ctx context.Context, token string) error {
	if m.HealthFn == nil {
		return nil
	}
	return m.HealthFn(ctx, token)
}

func (m *BackendMock) ChangePassword(ctx context.Context, token, newPwd, currentPwd string) error {
	if m.ChangePasswordFn == nil {
		return nil
	}
	return m.ChangePasswordFn(ctx, token, newPwd, currentPwd)
}

func (m *BackendMock) ResetPassword(ctx context.Context, token string, userID int, newPwd string) (string, error) {
	if m.ResetPasswordFn == nil {
		return "", nil
	}
	return m.ResetPasswordFn(ctx, token, userID, newPwd)
}

func (m *BackendMock) ListUsers(ctx context.Context, token string) ([]User, error) {
	if m.ListUsersFn == nil {
		return nil, nil
	}
	return m.ListUsersFn(ctx, token)
}

func (m *BackendMock) CreateUser(ctx context.Context, token string, nu NewUser) (CreatedUser, error) {
	if m.CreateUserFn == nil {
		return CreatedUser{}, nil
	}
	return m.CreateUserFn(ctx, token, nu)
}

func (m *BackendMock) UpdateUser(ctx context.Context, token string, id int, uu UpdateUser) (User, error) {
	if m.UpdateUserFn == nil {
		return User{}, nil
	}
	return m.UpdateUserFn(ctx, token, id, uu)
}

func (m *BackendMock) DeleteUser(ctx context.Context, token string, id int) error {
	if m.DeleteUserFn == nil {
		return nil
	}
	return m.DeleteUserFn(ctx, token, id)
}

func (m *BackendMock) ListSessions(ctx context.Context, token string) ([]Session, error) {
	if m.ListSessionsFn == nil {
		return nil, nil
	}
	return m.ListSessionsFn(ctx, token)
}

func (m *BackendMock) CreateSession(ctx context.Context, token string, ns NewSession) (Session, error) {
	if m.CreateSessionFn == nil {
		return Session{}, nil
	}
	return m.CreateSessionFn(ctx, token, ns)
}

func (m *BackendMock) UpdateSession(ctx context.Context, token string, id int, us UpdateSession) (Session, error) {
	if m.UpdateSessionFn == nil {
		return Session{}, nil
	}
	return m.UpdateSessionFn(ctx, token, id, us)
}

func (m *BackendMock) DeleteSession(ctx context.Context, token string, id int) error {
	if m.DeleteSessionFn == nil {
		return nil
	}
	return m.DeleteSessionFn(ctx, token, id)
}

func (m *BackendMock) ListAssignments(ctx context.Context, token string) ([]Assignment, error) {
	if m.ListAssignmentsFn == nil {
		return nil, nil
	}
	return m.ListAssignmentsFn(ctx, token)
}

func (m *BackendMock) AssignStudent(ctx context.Context, token string, studentID, teacherID int) (Assignment, error) {
	if m.AssignStudentFn == nil {
		return Assignment{}, nil
	}
	return m.AssignStudentFn(ctx, token, studentID, teacherID)
}

func (m *BackendMock) UnassignStudent(ctx context.Context, token string, studentID, teacherID int) error {
	if m.UnassignStudentFn == nil {
		return nil
	}
	return m.UnassignStudentFn(ctx, token, studentID, teacherID)
}

func (m *BackendMock) TrainerRoster(ctx context.Context, token string, trainerID int) ([]TraineeStatus, error) {
	if m.TrainerRosterFn == nil {
		return nil, nil
	}
	return m.TrainerRosterFn(ctx, token, trainerID)
}

// MemCredentials is an in-memory CredentialStore.
type MemCredentials struct {
	mu    sync.Mutex
	creds *Credentials
}

var _ CredentialStore = (*MemCredentials)(nil)

func (m *MemCredentials) Load() (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil, nil
	}
	cp := *m.creds
	return &cp, nil
}

func (m *MemCredentials) Save(creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &creds
	return nil
}

func (m *MemCredentials) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}
