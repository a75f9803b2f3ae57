package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
)

// Friendly messages surfaced in place of raw server details.
const (
	msgAdminOnlyUsers    = "Only administrators can create users. Please contact an admin."
	msgAdminOnlySessions = "Only administrators can delete sessions. Please contact an admin."
	msgNoToken           = "No authentication token found. Please login as admin."
	msgBackendDown       = "Failed to connect to backend. Please ensure the backend server is running."
)

type (
	// Backend is the REST surface the store consumes. Implementations carry
	// the bearer token passed per call; the store owns the token lifecycle.
	Backend interface {
		Login(ctx context.Context, username, password string) (LoginResult, error)
		Health(ctx context.Context, token string) error
		ChangePassword(ctx context.Context, token, newPwd, currentPwd string) error
		ResetPassword(ctx context.Context, token string, userID int, newPwd string) (string, error)

		ListUsers(ctx context.Context, token string) ([]User, error)
		CreateUser(ctx context.Context, token string, nu NewUser) (CreatedUser, error)
		UpdateUser(ctx context.Context, token string, id int, uu UpdateUser) (User, error)
		DeleteUser(ctx context.Context, token string, id int) error

		ListSessions(ctx context.Context, token string) ([]Session, error)
		CreateSession(ctx context.Context, token string, ns NewSession) (Session, error)
		UpdateSession(ctx context.Context, token string, id int, us UpdateSession) (Session, error)
		DeleteSession(ctx context.Context, token string, id int) error

		ListAssignments(ctx context.Context, token string) ([]Assignment, error)
		AssignStudent(ctx context.Context, token string, studentID, teacherID int) (Assignment, error)
		UnassignStudent(ctx context.Context, token string, studentID, teacherID int) error

		TrainerRoster(ctx context.Context, token string, trainerID int) ([]TraineeStatus, error)
	}

	// CredentialStore persists the Identity and token across restarts.
	// Load returns (nil, nil) when nothing is cached.
	CredentialStore interface {
		Load() (*Credentials, error)
		Save(creds Credentials) error
		Clear() error
	}

	// PushChannel keeps a live event-stream connection while its context
	// lasts; Run blocks until cancelled.
	PushChannel interface {
		Run(ctx context.Context)
	}

	// PushFactory builds a channel bound to the store. token is re-read on
	// every (re)connect so a rotated token is picked up; apply dispatches
	// each inbound event into the store's reducer.
	PushFactory func(token func() string, apply func(Event)) PushChannel
)

// Phase is the store's connectivity state.
type Phase int

const (
	Unauthenticated Phase = iota
	Authenticating
	AuthenticatedLoading
	AuthenticatedReady
)

func (p Phase) String() string {
	switch p {
	case Authenticating:
		return "authenticating"
	case AuthenticatedLoading:
		return "authenticated (loading)"
	case AuthenticatedReady:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Store is the single authoritative client cache: Identity, users,
// sessions, assignments. All mutation goes through its operations and the
// push-event reducer; view code only reads.
type Store struct {
	backend Backend
	creds   CredentialStore
	logger  core.Logger
	newPush PushFactory

	fetchTimeout time.Duration
	reqTimeout   time.Duration

	mu          sync.RWMutex
	phase       Phase
	identity    *User
	token       string
	users       []User
	sessions    []Session
	assignments []Assignment
	dataLoading bool
	// fetchEpoch invalidates in-flight fetches; results from a stale epoch
	// are discarded instead of overwriting fresher state.
	fetchEpoch uint64
	pushCancel context.CancelFunc
	observer   func(Event)
}

type Options struct {
	Backend     Backend
	Credentials CredentialStore
	Logger      core.Logger
	Push        PushFactory // optional; nil disables the push channel

	FetchTimeout   time.Duration // defaults to core.Conf.FetchTimeout
	RequestTimeout time.Duration // defaults to core.Conf.RequestTimeout
}

func New(opts *Options) *Store {
	s := &Store{
		backend:      opts.Backend,
		creds:        opts.Credentials,
		logger:       opts.Logger,
		newPush:      opts.Push,
		fetchTimeout: opts.FetchTimeout,
		reqTimeout:   opts.RequestTimeout,
	}
	if s.logger == nil {
		s.logger = core.NopLogger{}
	}
	if s.fetchTimeout == 0 {
		s.fetchTimeout = core.Conf.FetchTimeout
	}
	if s.reqTimeout == 0 {
		s.reqTimeout = core.Conf.RequestTimeout
	}
	return s
}

// Read accessors; all return copies.

func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Store) Identity() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) DataLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataLoading
}

func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]User(nil), s.users...)
}

func (s *Store) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Session(nil), s.sessions...)
}

func (s *Store) Assignments() []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Assignment(nil), s.assignments...)
}

// Observe registers a callback invoked after every reduced push event;
// nil unregisters. Meant for live views following the stream.
func (s *Store) Observe(fn func(Event)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Login authenticates, persists credentials, opens the push channel and
// runs the initial data fetch. The fetch may fail without failing the
// login; only a rejected credential pair is an error.
func (s *Store) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	s.mu.Lock()
	s.phase = Authenticating
	s.mu.Unlock()

	res, err := s.backend.Login(ctx, core.CleanString(username, true /* lower */), password)
	if err != nil {
		s.mu.Lock()
		s.phase = Unauthenticated
		s.mu.Unlock()
		return nil, errors.Wrap(err, "login failed")
	}

	s.mu.Lock()
	id := res.User
	s.identity = &id
	s.token = res.Token
	s.phase = AuthenticatedLoading
	s.mu.Unlock()

	if s.creds != nil {
		if err := s.creds.Save(Credentials{Identity: res.User, Token: res.Token}); err != nil {
			s.logger.Warn("saving credentials", err)
		}
	}
	s.startPush()
	if err := s.FetchInitialData(ctx); err != nil {
		s.logger.Error("initial data fetch", err)
	}
	return &res, nil
}

// Restore re-enters the authenticated state from cached credentials
// without re-hitting the login endpoint. The cached token is trusted until
// the first authenticated call fails with a 401. Returns false when
// nothing usable is cached.
func (s *Store) Restore(ctx context.Context) bool {
	if s.creds == nil {
		return false
	}
	creds, err := s.creds.Load()
	if err != nil {
		// a corrupt cache is cleared, not fatal
		s.logger.Warn("loading cached credentials", err)
		if err := s.creds.Clear(); err != nil {
			s.logger.Warn("clearing credential cache", err)
		}
		return false
	}
	if creds == nil || creds.Token == "" {
		return false
	}

	s.mu.Lock()
	id := creds.Identity
	s.identity = &id
	s.token = creds.Token
	s.phase = AuthenticatedLoading
	s.mu.Unlock()

	s.startPush()
	if err := s.FetchInitialData(ctx); err != nil {
		s.logger.Error("initial data fetch", err)
	}
	return s.Phase() != Unauthenticated
}

// Logout clears Identity, token and all cached collections, closes the
// push channel and wipes the credential cache. It is the only explicit
// cancellation path.
func (s *Store) Logout() {
	s.mu.Lock()
	cancel := s.pushCancel
	s.pushCancel = nil
	s.identity = nil
	s.token = ""
	s.users = nil
	s.sessions = nil
	s.assignments = nil
	s.dataLoading = false
	s.phase = Unauthenticated
	s.fetchEpoch++ // discard any in-flight fetch results
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.creds != nil {
		if err := s.creds.Clear(); err != nil {
			s.logger.Warn("clearing credential cache", err)
		}
	}
}

// ChangePassword updates the current user's password. currentPwd may be
// empty for admins. On success the temporary-password flag is flipped
// locally and in the credential cache.
func (s *Store) ChangePassword(ctx context.Context, newPwd, currentPwd string) error {
	token := s.Token()
	if token == "" {
		return core.ErrUnauthenticated
	}
	if err := s.backend.ChangePassword(ctx, token, newPwd, currentPwd); err != nil {
		return s.checkFatal(errors.Wrap(err, "change password"))
	}

	s.mu.Lock()
	if s.identity != nil {
		s.identity.IsTemporaryPassword = false
	}
	id := s.identity
	s.mu.Unlock()

	if id != nil && s.creds != nil {
		if err := s.creds.Save(Credentials{Identity: *id, Token: token}); err != nil {
			s.logger.Warn("saving credentials", err)
		}
	}
	return nil
}

// ResetPassword sets a new temporary password for a user (admin only,
// enforced server-side). If the affected user is the current Identity the
// temporary flag is set locally.
func (s *Store) ResetPassword(ctx context.Context, userID int, newPwd string) (string, error) {
	token := s.Token()
	if token == "" {
		return "", core.ErrUnauthenticated
	}
	msg, err := s.backend.ResetPassword(ctx, token, userID, newPwd)
	if err != nil {
		return "", s.checkFatal(errors.Wrap(err, "reset password"))
	}

	s.mu.Lock()
	self := s.identity != nil && s.identity.ID == userID
	if self {
		s.identity.IsTemporaryPassword = true
	}
	var id *User
	if s.identity != nil {
		cp := *s.identity
		id = &cp
	}
	s.mu.Unlock()

	if self && id != nil && s.creds != nil {
		if err := s.creds.Save(Credentials{Identity: *id, Token: token}); err != nil {
			s.logger.Warn("saving credentials", err)
		}
	}
	return msg, nil
}

// CreateUser creates a platform member (admin only, enforced server-side).
// A connectivity/token preflight runs first; on success the new user is
// appended locally ahead of the push confirmation (dedupe by id).
func (s *Store) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	token := s.Token()
	if token == "" {
		return nil, errors.Wrap(core.ErrUnauthenticated, msgNoToken)
	}
	if err := s.backend.Health(ctx, token); err != nil {
		return nil, errors.Wrap(err, msgBackendDown)
	}
	if err := nu.Validate(); err != nil {
		return nil, err
	}

	created, err := s.backend.CreateUser(ctx, token, nu)
	if err != nil {
		err = errors.Wrap(err, "create user")
		if core.IsForbidden(err) && strings.Contains(core.ErrorDetail(err), "Only admins can create users") {
			return nil, errors.New(msgAdminOnlyUsers)
		}
		return nil, s.checkFatal(err)
	}

	if policyFor(entityUser).optimisticCreate {
		s.mu.Lock()
		s.upsertUser(created.User)
		s.mu.Unlock()
	}
	usr := created.User
	return &usr, nil
}

// UpdateUserByID updates a user; the refreshed record arrives via the push
// channel rather than a local write.
func (s *Store) UpdateUserByID(ctx context.Context, id int, uu UpdateUser) (*User, error) {
	token := s.Token()
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	if err := uu.Validate(); err != nil {
		return nil, err
	}
	usr, err := s.backend.UpdateUser(ctx, token, id, uu)
	if err != nil {
		return nil, s.checkFatal(errors.Wrap(err, "update user"))
	}
	return &usr, nil
}

// DeleteUser removes a user; the local collection is updated immediately
// for responsiveness, independent of push confirmation.
func (s *Store) DeleteUser(ctx context.Context, id int) error {
	token := s.Token()
	if token == "" {
		return core.ErrUnauthenticated
	}
	if err := s.backend.DeleteUser(ctx, token, id); err != nil {
		return s.checkFatal(errors.Wrap(err, "delete user"))
	}
	if policyFor(entityUser).optimisticDelete {
		s.mu.Lock()
		s.removeUser(id)
		s.mu.Unlock()
	}
	return nil
}

// CreateSession schedules a session; the collection is refreshed by the
// session_created push event.
func (s *Store) CreateSession(ctx context.Context, ns NewSession) (*Session, error) {
	token := s.Token()
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.backend.CreateSession(ctx, token, ns)
	if err != nil {
		return nil, s.checkFatal(errors.Wrap(err, "create session"))
	}
	if policyFor(entitySession).optimisticCreate {
		s.mu.Lock()
		s.upsertSession(sess)
		s.mu.Unlock()
	}
	return &sess, nil
}

// UpdateSession updates a session; the merge arrives via session_updated.
func (s *Store) UpdateSession(ctx context.Context, id int, us UpdateSession) (*Session, error) {
	token := s.Token()
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	if err := us.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.backend.UpdateSession(ctx, token, id, us)
	if err != nil {
		return nil, s.checkFatal(errors.Wrap(err, "update session"))
	}
	return &sess, nil
}

// DeleteSession removes a session (admin only, enforced server-side; the
// restriction is surfaced as a distinct user-facing message).
func (s *Store) DeleteSession(ctx context.Context, id int) error {
	token := s.Token()
	if token == "" {
		return core.ErrUnauthenticated
	}
	if err := s.backend.DeleteSession(ctx, token, id); err != nil {
		err = errors.Wrap(err, "delete session")
		if core.IsForbidden(err) && strings.Contains(core.ErrorDetail(err), "Only admins can delete sessions") {
			return errors.New(msgAdminOnlySessions)
		}
		return s.checkFatal(err)
	}
	if policyFor(entitySession).optimisticDelete {
		s.mu.Lock()
		s.removeSession(id)
		s.mu.Unlock()
	}
	return nil
}

// AssignStudent pairs a trainee with a trainer. No optimistic write: the
// assignment collection is refreshed by the student_assigned push event.
func (s *Store) AssignStudent(ctx context.Context, studentID, teacherID int) (*Assignment, error) {
	token := s.Token()
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	asg, err := s.backend.AssignStudent(ctx, token, studentID, teacherID)
	if err != nil {
		return nil, s.checkFatal(errors.Wrap(err, "assign student"))
	}
	return &asg, nil
}

// UnassignStudent removes an assignment by its composite key.
func (s *Store) UnassignStudent(ctx context.Context, studentID, teacherID int) error {
	token := s.Token()
	if token == "" {
		return core.ErrUnauthenticated
	}
	if err := s.backend.UnassignStudent(ctx, token, studentID, teacherID); err != nil {
		return s.checkFatal(errors.Wrap(err, "unassign student"))
	}
	return nil
}

// TrainerRoster fetches a trainer's trainee roster. Read-through: the
// result is not cached in the store.
func (s *Store) TrainerRoster(ctx context.Context, trainerID int) ([]TraineeStatus, error) {
	token := s.Token()
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	roster, err := s.backend.TrainerRoster(ctx, token, trainerID)
	if err != nil {
		return nil, s.checkFatal(errors.Wrap(err, "trainer roster"))
	}
	return roster, nil
}

// checkFatal forces a logout on any 401 from an authenticated call.
func (s *Store) checkFatal(err error) error {
	if core.IsUnauthenticated(err) {
		s.Logout()
	}
	return err
}

func (s *Store) startPush() {
	if s.newPush == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.pushCancel != nil {
		s.pushCancel()
	}
	s.pushCancel = cancel
	s.mu.Unlock()

	ch := s.newPush(s.Token, s.Apply)
	go ch.Run(ctx)
}

// collection helpers; callers hold s.mu.

func (s *Store) upsertUser(u User) {
	for i := range s.users {
		if s.users[i].ID == u.ID {
			s.users[i] = u
			return
		}
	}
	s.users = append(s.users, u)
}

func (s *Store) removeUser(id int) {
	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return
		}
	}
}

func (s *Store) upsertSession(sess Session) {
	for i := range s.sessions {
		if s.sessions[i].ID == sess.ID {
			s.sessions[i] = sess
			return
		}
	}
	s.sessions = append(s.sessions, sess)
}

func (s *Store) removeSession(id int) {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return
		}
	}
}
