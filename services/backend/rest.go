package backendsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
)

// Client is the REST implementation of state.Backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  core.Logger
}

var _ state.Backend = (*Client)(nil)

func NewClient(baseURL string, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: core.Conf.RequestTimeout},
		logger:  logger,
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (state.LoginResult, error) {
	var res state.LoginResult
	body := map[string]string{"username": username, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &res)
	return res, err
}

func (c *Client) Health(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodGet, "/health", token, nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, token, newPwd, currentPwd string) error {
	body := map[string]string{"new_password": newPwd}
	if currentPwd != "" {
		body["current_password"] = currentPwd
	}
	return c.do(ctx, http.MethodPost, "/auth/change-password", token, body, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token string, userID int, newPwd string) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	body := map[string]string{"new_password": newPwd}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/auth/reset-password/%d", userID), token, body, &res)
	return res.Message, err
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]state.User, error) {
	var users []state.User
	err := c.do(ctx, http.MethodGet, "/users/", token, nil, &users)
	return users, err
}

func (c *Client) CreateUser(ctx context.Context, token string, nu state.NewUser) (state.CreatedUser, error) {
	var res state.CreatedUser
	err := c.do(ctx, http.MethodPost, "/users/", token, nu, &res)
	return res, err
}

func (c *Client) UpdateUser(ctx context.Context, token string, id int, uu state.UpdateUser) (state.User, error) {
	var res state.User
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), token, uu, &res)
	return res, err
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), token, nil, nil)
}

func (c *Client) ListSessions(ctx context.Context, token string) ([]state.Session, error) {
	var payload []sessionPayload
	if err := c.do(ctx, http.MethodGet, "/sessions/", token, nil, &payload); err != nil {
		return nil, err
	}
	sessions := make([]state.Session, 0, len(payload))
	for _, p := range payload {
		sessions = append(sessions, p.toSession())
	}
	return sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, token string, ns state.NewSession) (state.Session, error) {
	var payload sessionPayload
	if err := c.do(ctx, http.MethodPost, "/sessions/", token, ns, &payload); err != nil {
		return state.Session{}, err
	}
	return payload.toSession(), nil
}

func (c *Client) UpdateSession(ctx context.Context, token string, id int, us state.UpdateSession) (state.Session, error) {
	var payload sessionPayload
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/sessions/%d", id), token, us, &payload); err != nil {
		return state.Session{}, err
	}
	return payload.toSession(), nil
}

func (c *Client) DeleteSession(ctx context.Context, token string, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/sessions/%d", id), token, nil, nil)
}

func (c *Client) ListAssignments(ctx context.Context, token string) ([]state.Assignment, error) {
	var payload []assignmentDetail
	if err := c.do(ctx, http.MethodGet, "/assignments/", token, nil, &payload); err != nil {
		return nil, err
	}
	assignments := make([]state.Assignment, 0, len(payload))
	for _, p := range payload {
		assignments = append(assignments, state.Assignment{
			ID:           p.ID,
			StudentID:    p.Student.ID,
			TeacherID:    p.Teacher.ID,
			AssignedDate: p.AssignedDate,
		})
	}
	return assignments, nil
}

func (c *Client) AssignStudent(ctx context.Context, token string, studentID, teacherID int) (state.Assignment, error) {
	var res state.Assignment
	body := map[string]int{"student_id": studentID, "teacher_id": teacherID}
	err := c.do(ctx, http.MethodPost, "/assignments/", token, body, &res)
	return res, err
}

func (c *Client) UnassignStudent(ctx context.Context, token string, studentID, teacherID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/assignments/%d/%d", studentID, teacherID), token, nil, nil)
}

func (c *Client) TrainerRoster(ctx context.Context, token string, trainerID int) ([]state.TraineeStatus, error) {
	var payload []rosterRow
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/trainers/%d/trainees", trainerID), token, nil, &payload); err != nil {
		return nil, err
	}
	roster := make([]state.TraineeStatus, 0, len(payload))
	for _, p := range payload {
		roster = append(roster, p.toTraineeStatus())
	}
	return roster, nil
}

// do issues one request, carrying the bearer credential and a request id,
// and maps non-2xx responses onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "decoding %s %s response", method, path)
		}
	}
	return nil
}

// errorPayload is the server's error envelope. detail is a plain message
// except on validation failures, where it is a list of field errors.
type errorPayload struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldDetail struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

func (c *Client) decodeError(resp *http.Response) error {
	var payload errorPayload
	var detail string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		detail = detailString(payload.Detail)
	}
	c.logger.Debug("api error response", map[string]interface{}{
		"status": resp.StatusCode,
		"detail": detail,
	})

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if detail != "" {
			return errors.Wrap(core.ErrUnauthenticated, detail)
		}
		return core.ErrUnauthenticated
	case http.StatusForbidden:
		return &core.ForbiddenError{Detail: detail}
	case http.StatusUnprocessableEntity:
		flds := fieldDetails(payload.Detail)
		if len(flds) > 0 {
			return core.NewValidationError(errors.New(detail), flds...)
		}
		fallthrough
	default:
		return &core.APIError{Status: resp.StatusCode, Detail: detail}
	}
}

// detailString renders a detail value: plain strings pass through and
// field-error lists are aggregated "loc.path: msg, ..." like the dashboard
// always displayed them.
func detailString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	flds := fieldDetails(raw)
	parts := make([]string, 0, len(flds))
	for _, f := range flds {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Error))
	}
	return strings.Join(parts, ", ")
}

func fieldDetails(raw json.RawMessage) []core.FieldError {
	var items []fieldDetail
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	flds := make([]core.FieldError, 0, len(items))
	for _, it := range items {
		locs := make([]string, 0, len(it.Loc))
		for _, l := range it.Loc {
			locs = append(locs, fmt.Sprint(l))
		}
		flds = append(flds, core.FieldError{Field: strings.Join(locs, "."), Error: it.Msg})
	}
	return flds
}

// wire payloads

// sessionPayload is the wire shape of a session: trainees arrive as nested
// user objects and are flattened to ids for the store.
type sessionPayload struct {
	ID              int                 `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	TrainerID       int                 `json:"trainer_id"`
	Trainees        []state.User        `json:"trainees"`
	ScheduledDate   time.Time           `json:"scheduled_date"`
	DurationMinutes int                 `json:"duration_minutes"`
	Status          state.SessionStatus `json:"status"`
	Attendance      map[int]string      `json:"attendance"`
	ClassLink       string              `json:"class_link"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (p sessionPayload) toSession() state.Session {
	trainees := make([]int, 0, len(p.Trainees))
	for _, t := range p.Trainees {
		trainees = append(trainees, t.ID)
	}
	return state.Session{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		TrainerID:       p.TrainerID,
		Trainees:        trainees,
		ScheduledAt:     p.ScheduledDate,
		DurationMinutes: p.DurationMinutes,
		Status:          p.Status,
		Attendance:      p.Attendance,
		ClassLink:       p.ClassLink,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// assignmentDetail is the wire shape of GET /assignments/: student and
// teacher arrive as full user objects.
type assignmentDetail struct {
	ID           int        `json:"id"`
	Student      state.User `json:"student"`
	Teacher      state.User `json:"teacher"`
	AssignedDate time.Time  `json:"assigned_date"`
}

type rosterRow struct {
	Trainee       state.User       `json:"trainee"`
	Sessions      []sessionPayload `json:"sessions"`
	SessionsCount int              `json:"sessions_count"`
	Status        string           `json:"status"`
	LastActive    time.Time        `json:"last_active"`
}

func (p rosterRow) toTraineeStatus() state.TraineeStatus {
	sessions := make([]state.Session, 0, len(p.Sessions))
	for _, sp := range p.Sessions {
		sessions = append(sessions, sp.toSession())
	}
	return state.TraineeStatus{
		Trainee:       p.Trainee,
		Sessions:      sessions,
		SessionsCount: p.SessionsCount,
		Status:        p.Status,
		LastActive:    p.LastActive,
	}
}
