package state

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
)

// FetchInitialData concurrently requests sessions, assignments and, for
// admins and trainers, users, racing the batch against the configured
// timeout. If the timeout wins the collections are reset to empty and late
// responses are discarded. A 401 on any request forces a logout; a 403 on
// the users request degrades to an empty users collection.
func (s *Store) FetchInitialData(ctx context.Context) error {
	s.mu.Lock()
	if s.token == "" || s.identity == nil {
		s.mu.Unlock()
		return core.ErrUnauthenticated
	}
	token := s.token
	role := s.identity.Role
	s.fetchEpoch++
	epoch := s.fetchEpoch
	s.dataLoading = true
	s.mu.Unlock()

	fetchUsers := role == RoleAdmin || role == RoleTrainer

	cctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var (
		wg          sync.WaitGroup
		sessions    []Session
		assignments []Assignment
		users       []User
		sessErr     error
		asgErr      error
		usrErr      error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		sessions, sessErr = s.backend.ListSessions(cctx, token)
	}()
	go func() {
		defer wg.Done()
		assignments, asgErr = s.backend.ListAssignments(cctx, token)
	}()
	if fetchUsers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			users, usrErr = s.backend.ListUsers(cctx, token)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-cctx.Done():
		// the slower branches keep running but their results are stale now
		s.failFetch(epoch, fetchUsers)
		return errors.Wrap(core.ErrFetchTimeout, "initial data fetch")
	}

	// a 401 anywhere in the batch is fatal to the session
	for _, err := range []error{sessErr, asgErr, usrErr} {
		if core.IsUnauthenticated(err) {
			s.Logout()
			return err
		}
	}
	if sessErr != nil {
		s.failFetch(epoch, fetchUsers)
		return errors.Wrap(sessErr, "fetching sessions")
	}
	if asgErr != nil {
		// non-critical: degrade to an empty assignment collection
		s.logger.Warn("fetching assignments", asgErr)
		assignments = nil
	}
	if usrErr != nil {
		if core.IsForbidden(usrErr) {
			s.logger.Warn("not authorized to fetch users")
			users = nil
		} else {
			s.failFetch(epoch, fetchUsers)
			return errors.Wrap(usrErr, "fetching users")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.fetchEpoch {
		// a logout or newer fetch superseded this batch
		return nil
	}
	s.sessions = sessions
	s.assignments = assignments
	if fetchUsers {
		s.users = users
	}
	s.dataLoading = false
	s.phase = AuthenticatedReady
	return nil
}

// failFetch resets the collections after a failed or timed-out batch,
// unless a newer fetch already owns the state.
func (s *Store) failFetch(epoch uint64, fetchUsers bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.fetchEpoch {
		return
	}
	s.sessions = nil
	s.assignments = nil
	if fetchUsers {
		s.users = nil
	}
	s.dataLoading = false
	s.phase = AuthenticatedReady
}

// refetchAssignments replaces the assignment collection wholesale; used by
// the reducer for student_assigned / student_unassigned events.
func (s *Store) refetchAssignments() {
	s.mu.RLock()
	token := s.token
	epoch := s.fetchEpoch
	s.mu.RUnlock()
	if token == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.reqTimeout)
	defer cancel()
	assignments, err := s.backend.ListAssignments(ctx, token)
	if err != nil {
		s.logger.Error("refetching assignments", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.fetchEpoch {
		return
	}
	s.assignments = assignments
}
