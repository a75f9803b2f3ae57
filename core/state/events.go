package state

import (
	"encoding/json"
	"time"
)

// Push event types recognized by the reducer.
const (
	EvUserCreated       = "user_created"
	EvUserUpdated       = "user_updated"
	EvUserDeleted       = "user_deleted"
	EvSessionCreated    = "session_created"
	EvSessionUpdated    = "session_updated"
	EvSessionDeleted    = "session_deleted"
	EvTraineeAdded      = "trainee_added_to_session"
	EvTraineeRemoved    = "trainee_removed_from_session"
	EvStudentAssigned   = "student_assigned"
	EvStudentUnassigned = "student_unassigned"
)

// Event is the push-channel message envelope.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type userEventData struct {
	UserID int   `json:"user_id"`
	User   *User `json:"user"`
}

// sessionEventData covers both the session_created payload (full record,
// trainer/startTime key names) and the partial session_updated merge.
type sessionEventData struct {
	ID              int            `json:"id"`
	SessionID       int            `json:"session_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Trainer         *int           `json:"trainer"`
	Trainees        []int          `json:"trainees"`
	StartTime       *time.Time     `json:"startTime"`
	DurationMinutes int            `json:"duration_minutes"`
	Status          SessionStatus  `json:"status"`
	Attendance      map[int]string `json:"attendance"`
	ClassLink       string         `json:"class_link"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type traineeEventData struct {
	SessionID int       `json:"session_id"`
	TraineeID int       `json:"trainee_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Apply reduces a push event into the store's collections. Every reduction
// is an idempotent write keyed by entity id, so an event and the HTTP
// response of the mutation that caused it converge in either arrival
// order. Unknown types are logged and ignored; malformed payloads never
// take the connection down.
func (s *Store) Apply(ev Event) {
	switch ev.Type {
	case EvUserCreated:
		var data userEventData
		if !s.decode(ev, &data) || data.User == nil {
			return
		}
		s.mu.Lock()
		s.upsertUser(*data.User)
		s.mu.Unlock()

	case EvUserUpdated:
		var data userEventData
		if !s.decode(ev, &data) || data.User == nil {
			return
		}
		s.mu.Lock()
		s.replaceUser(data.UserID, *data.User)
		if s.identity != nil && s.identity.ID == data.UserID {
			id := *data.User
			s.identity = &id
		}
		s.mu.Unlock()

	case EvUserDeleted:
		var data userEventData
		if !s.decode(ev, &data) {
			return
		}
		s.mu.Lock()
		s.removeUser(data.UserID)
		self := s.identity != nil && s.identity.ID == data.UserID
		s.mu.Unlock()
		if self {
			// the current account is gone; full logout in one reduction
			s.Logout()
		}

	case EvSessionCreated:
		var data sessionEventData
		if !s.decode(ev, &data) {
			return
		}
		sess := Session{
			ID:              data.ID,
			Title:           data.Title,
			Description:     data.Description,
			Trainees:        data.Trainees,
			DurationMinutes: data.DurationMinutes,
			Status:          data.Status,
			Attendance:      data.Attendance,
			ClassLink:       data.ClassLink,
			CreatedAt:       data.CreatedAt,
			UpdatedAt:       data.UpdatedAt,
		}
		if data.Trainer != nil {
			sess.TrainerID = *data.Trainer
		}
		if data.StartTime != nil {
			sess.ScheduledAt = *data.StartTime
		}
		s.mu.Lock()
		s.upsertSession(sess)
		s.mu.Unlock()

	case EvSessionUpdated:
		var data sessionEventData
		if !s.decode(ev, &data) {
			return
		}
		s.mu.Lock()
		s.mergeSession(data)
		s.mu.Unlock()

	case EvTraineeAdded:
		var data traineeEventData
		if !s.decode(ev, &data) {
			return
		}
		s.mu.Lock()
		for i := range s.sessions {
			if s.sessions[i].ID == data.SessionID {
				if !s.sessions[i].HasTrainee(data.TraineeID) {
					s.sessions[i].Trainees = append(s.sessions[i].Trainees, data.TraineeID)
				}
				if !data.UpdatedAt.IsZero() {
					s.sessions[i].UpdatedAt = data.UpdatedAt
				}
				break
			}
		}
		s.mu.Unlock()

	case EvTraineeRemoved:
		var data traineeEventData
		if !s.decode(ev, &data) {
			return
		}
		s.mu.Lock()
		for i := range s.sessions {
			if s.sessions[i].ID == data.SessionID {
				trainees := s.sessions[i].Trainees[:0]
				for _, t := range s.sessions[i].Trainees {
					if t != data.TraineeID {
						trainees = append(trainees, t)
					}
				}
				s.sessions[i].Trainees = trainees
				if !data.UpdatedAt.IsZero() {
					s.sessions[i].UpdatedAt = data.UpdatedAt
				}
				break
			}
		}
		s.mu.Unlock()

	case EvSessionDeleted:
		var data sessionEventData
		if !s.decode(ev, &data) {
			return
		}
		s.mu.Lock()
		s.removeSession(data.SessionID)
		s.mu.Unlock()

	case EvStudentAssigned, EvStudentUnassigned:
		if policyFor(entityAssignment).refetchOnEvent {
			// off the read pump; a slow refetch must not delay later events
			go s.refetchAssignments()
		}

	default:
		s.logger.Warn("unknown push event type", map[string]interface{}{"type": ev.Type})
	}

	s.mu.RLock()
	fn := s.observer
	s.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (s *Store) decode(ev Event, v interface{}) bool {
	if err := json.Unmarshal(ev.Data, v); err != nil {
		s.logger.Error("malformed push event payload", err, map[string]interface{}{"type": ev.Type})
		return false
	}
	return true
}

// replaceUser swaps the record matching id; no-op when absent.
func (s *Store) replaceUser(id int, u User) {
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i] = u
			return
		}
	}
}

// mergeSession folds the named session_updated fields into the matching
// session, leaving unspecified fields untouched.
func (s *Store) mergeSession(data sessionEventData) {
	for i := range s.sessions {
		if s.sessions[i].ID != data.SessionID {
			continue
		}
		if data.Status != "" {
			s.sessions[i].Status = data.Status
		}
		if !data.UpdatedAt.IsZero() {
			s.sessions[i].UpdatedAt = data.UpdatedAt
		}
		if data.Trainees != nil {
			s.sessions[i].Trainees = data.Trainees
		}
		if data.Trainer != nil {
			s.sessions[i].TrainerID = *data.Trainer
		}
		if data.StartTime != nil {
			s.sessions[i].ScheduledAt = *data.StartTime
		}
		return
	}
}
