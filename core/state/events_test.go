package state

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T, backend Backend) (*Store, *MemCredentials) {
	t.Helper()
	creds := &MemCredentials{}
	s := New(&Options{
		Backend:        backend,
		Credentials:    creds,
		FetchTimeout:   time.Second,
		RequestTimeout: time.Second,
	})
	usr := User{ID: 1, Username: "admin", Email: "admin@test.cd", Name: "Admin", Role: RoleAdmin}
	s.identity = &usr
	s.token = "tok"
	s.phase = AuthenticatedReady
	if err := creds.Save(Credentials{Identity: usr, Token: "tok"}); err != nil {
		t.Fatalf("seeding credentials failed: %v", err)
	}
	return s, creds
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func ev(t *testing.T, typ string, data interface{}) Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshalling event data failed: %v", err)
	}
	return Event{Type: typ, Data: raw}
}

func TestApply_userEvents(t *testing.T) {
	s, _ := newTestStore(t, &BackendMock{})
	bob := User{ID: 2, Username: "bob", Name: "Bob T", Role: RoleTrainer}

	s.Apply(ev(t, EvUserCreated, map[string]interface{}{"user_id": 2, "user": bob}))
	assert.Len(t, s.Users(), 1)

	// replay of the same event converges, not duplicates
	s.Apply(ev(t, EvUserCreated, map[string]interface{}{"user_id": 2, "user": bob}))
	assert.Len(t, s.Users(), 1)

	renamed := bob
	renamed.Name = "Robert T"
	s.Apply(ev(t, EvUserUpdated, map[string]interface{}{"user_id": 2, "user": renamed}))
	assert.Equal(t, "Robert T", s.Users()[0].Name)

	// update for an unknown id is a no-op
	s.Apply(ev(t, EvUserUpdated, map[string]interface{}{"user_id": 99, "user": User{ID: 99}}))
	assert.Len(t, s.Users(), 1)

	s.Apply(ev(t, EvUserDeleted, map[string]interface{}{"user_id": 2}))
	assert.Empty(t, s.Users())
	// deleting someone else leaves the session alone
	assert.NotNil(t, s.Identity())
}

func TestApply_userUpdatedReplacesIdentity(t *testing.T) {
	s, _ := newTestStore(t, &BackendMock{})
	self := *s.Identity()
	s.Apply(ev(t, EvUserCreated, map[string]interface{}{"user_id": self.ID, "user": self}))

	self.Name = "Renamed Admin"
	s.Apply(ev(t, EvUserUpdated, map[string]interface{}{"user_id": self.ID, "user": self}))
	assert.Equal(t, "Renamed Admin", s.Identity().Name)
}

func TestApply_selfDeletionForcesLogout(t *testing.T) {
	s, creds := newTestStore(t, &BackendMock{})
	s.Apply(ev(t, EvUserDeleted, map[string]interface{}{"user_id": s.Identity().ID}))

	assert.Nil(t, s.Identity())
	assert.Empty(t, s.Token())
	assert.Equal(t, Unauthenticated, s.Phase())
	cached, err := creds.Load()
	assert.NoError(t, err)
	assert.Nil(t, cached)
}

func TestApply_optimisticCreateConvergesWithEvent(t *testing.T) {
	eve := User{ID: 3, Username: "eve", Name: "Eve T", Role: RoleTrainee}
	backend := &BackendMock{
		CreateUserFn: func(ctx context.Context, token string, nu NewUser) (CreatedUser, error) {
			return CreatedUser{User: eve, TemporaryPassword: "temp123"}, nil
		},
	}
	s, _ := newTestStore(t, backend)

	// event first, HTTP response second
	s.Apply(ev(t, EvUserCreated, map[string]interface{}{"user_id": 3, "user": eve}))
	_, err := s.CreateUser(context.Background(), NewUser{
		Username: "eve", Email: "eve@test.cd", FirstName: "Eve", LastName: "T", Role: RoleTrainee,
	})
	assert.NoError(t, err)
	assert.Len(t, s.Users(), 1)

	// and the reverse order on a fresh store
	s2, _ := newTestStore(t, backend)
	_, err = s2.CreateUser(context.Background(), NewUser{
		Username: "eve", Email: "eve@test.cd", FirstName: "Eve", LastName: "T", Role: RoleTrainee,
	})
	assert.NoError(t, err)
	s2.Apply(ev(t, EvUserCreated, map[string]interface{}{"user_id": 3, "user": eve}))
	assert.Len(t, s2.Users(), 1)
}

func TestApply_sessionEvents(t *testing.T) {
	s, _ := newTestStore(t, &BackendMock{})
	start := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

	s.Apply(ev(t, EvSessionCreated, map[string]interface{}{
		"id": 7, "title": "Intro to Go", "trainer": 2, "trainees": []int{3, 4},
		"startTime": start.Format(time.RFC3339), "duration_minutes": 90, "status": "scheduled",
	}))
	sessions := s.Sessions()
	if assert.Len(t, sessions, 1) {
		assert.Equal(t, 2, sessions[0].TrainerID)
		assert.Equal(t, []int{3, 4}, sessions[0].Trainees)
		assert.True(t, sessions[0].ScheduledAt.Equal(start))
	}

	// partial merge: only the named fields change
	s.Apply(ev(t, EvSessionUpdated, map[string]interface{}{
		"session_id": 7, "status": "completed",
	}))
	sessions = s.Sessions()
	assert.Equal(t, StatusCompleted, sessions[0].Status)
	assert.Equal(t, "Intro to Go", sessions[0].Title)
	assert.Equal(t, []int{3, 4}, sessions[0].Trainees)

	s.Apply(ev(t, EvTraineeAdded, map[string]interface{}{"session_id": 7, "trainee_id": 5}))
	assert.Equal(t, []int{3, 4, 5}, s.Sessions()[0].Trainees)
	// adding an existing trainee is a no-op
	s.Apply(ev(t, EvTraineeAdded, map[string]interface{}{"session_id": 7, "trainee_id": 5}))
	assert.Equal(t, []int{3, 4, 5}, s.Sessions()[0].Trainees)

	s.Apply(ev(t, EvTraineeRemoved, map[string]interface{}{"session_id": 7, "trainee_id": 4}))
	assert.Equal(t, []int{3, 5}, s.Sessions()[0].Trainees)

	s.Apply(ev(t, EvSessionDeleted, map[string]interface{}{"session_id": 7}))
	assert.Empty(t, s.Sessions())
}

func TestApply_assignmentEventsTriggerRefetch(t *testing.T) {
	var (
		mu         sync.Mutex
		serverSide = []Assignment{{ID: 1, StudentID: 3, TeacherID: 2}}
	)
	backend := &BackendMock{
		ListAssignmentsFn: func(ctx context.Context, token string) ([]Assignment, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]Assignment(nil), serverSide...), nil
		},
	}
	s, _ := newTestStore(t, backend)

	// the refetch runs off the reducer goroutine
	s.Apply(ev(t, EvStudentAssigned, map[string]interface{}{"student_id": 3, "teacher_id": 2}))
	eventually(t, func() bool { return len(s.Assignments()) == 1 }, "assignment refetch")

	// server side emptied; the unassign event refetches, not merges
	mu.Lock()
	serverSide = nil
	mu.Unlock()
	s.Apply(ev(t, EvStudentUnassigned, map[string]interface{}{"student_id": 3, "teacher_id": 2}))
	eventually(t, func() bool { return len(s.Assignments()) == 0 }, "assignment refetch after unassign")
}

func TestObserve(t *testing.T) {
	s, _ := newTestStore(t, &BackendMock{})
	var (
		mu   sync.Mutex
		seen []string
	)
	s.Observe(func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	})

	s.Apply(ev(t, EvUserCreated, map[string]interface{}{"user_id": 2, "user": User{ID: 2}}))
	s.Apply(ev(t, EvSessionDeleted, map[string]interface{}{"session_id": 7}))
	// malformed payloads are dropped before observers run
	s.Apply(Event{Type: EvUserCreated, Data: json.RawMessage(`{"user":`)})

	mu.Lock()
	assert.Equal(t, []string{EvUserCreated, EvSessionDeleted}, seen)
	mu.Unlock()

	s.Observe(nil)
	s.Apply(ev(t, EvUserDeleted, map[string]interface{}{"user_id": 2}))
	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}

func TestApply_tolerance(t *testing.T) {
	s, _ := newTestStore(t, &BackendMock{})
	s.Apply(ev(t, EvUserCreated, map[string]interface{}{"user_id": 2, "user": User{ID: 2}}))

	// unknown types are ignored
	s.Apply(ev(t, "password_changed", map[string]interface{}{"user_id": 1}))
	// malformed payloads never crash the reducer
	s.Apply(Event{Type: EvUserCreated, Data: json.RawMessage(`{"user":`)})
	s.Apply(Event{Type: EvSessionUpdated, Data: json.RawMessage(`[1,2]`)})

	assert.Len(t, s.Users(), 1)
	assert.NotNil(t, s.Identity())
}
