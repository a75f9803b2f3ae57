package backendsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
)

// newFakeAPI stands up the slice of the backend the client talks to.
func newFakeAPI(t *testing.T) (*echo.Echo, *Client) {
	t.Helper()
	e := echo.New()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return e, NewClient(srv.URL, nil)
}

func requireAuth(t *testing.T, token string) echo.MiddlewareFunc {
	t.Helper()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			assert.Equal(t, "Bearer "+token, c.Request().Header.Get("Authorization"))
			assert.NotEmpty(t, c.Request().Header.Get("X-Request-ID"))
			return next(c)
		}
	}
}

func TestLoginRequest(t *testing.T) {
	e, client := newFakeAPI(t)
	e.POST("/auth/login", func(c echo.Context) error {
		var body map[string]string
		require.NoError(t, c.Bind(&body))
		assert.Empty(t, c.Request().Header.Get("Authorization"))
		assert.NotEmpty(t, c.Request().Header.Get("X-Request-ID"))

		if body["password"] != "s3cret" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Incorrect username or password"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"access_token":          "tok-1",
			"user":                  echo.Map{"id": 1, "username": body["username"], "role": "admin"},
			"force_password_change": true,
		})
	})

	t.Run("success", func(t *testing.T) {
		res, err := client.Login(context.Background(), "admin", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", res.Token)
		assert.Equal(t, 1, res.User.ID)
		assert.Equal(t, state.RoleAdmin, res.User.Role)
		assert.True(t, res.ForcePasswordChange)
	})

	t.Run("rejected", func(t *testing.T) {
		_, err := client.Login(context.Background(), "admin", "nope")
		assert.True(t, core.IsUnauthenticated(err))
		assert.Contains(t, err.Error(), "Incorrect username or password")
	})
}

func TestErrorMapping(t *testing.T) {
	e, client := newFakeAPI(t)
	e.POST("/users/", func(c echo.Context) error {
		switch c.Request().Header.Get("Authorization") {
		case "Bearer trainee-tok":
			return c.JSON(http.StatusForbidden, echo.Map{"detail": "Only admins can create users"})
		case "Bearer bad-body-tok":
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"detail": []echo.Map{
					{"loc": []interface{}{"body", "email"}, "msg": "value is not a valid email address"},
					{"loc": []interface{}{"body", "role"}, "msg": "field required"},
				},
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "boom"})
	})

	nu := state.NewUser{Username: "eve", Email: "eve@test.cd", FirstName: "Eve", LastName: "T", Role: state.RoleTrainee}

	t.Run("403", func(t *testing.T) {
		_, err := client.CreateUser(context.Background(), "trainee-tok", nu)
		assert.True(t, core.IsForbidden(err))
		assert.Equal(t, "Only admins can create users", core.ErrorDetail(err))
	})

	t.Run("422 field errors", func(t *testing.T) {
		_, err := client.CreateUser(context.Background(), "bad-body-tok", nu)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Len(t, vErr.Fields, 2)
		assert.Equal(t, "body.email", vErr.Fields[0].Field)
		assert.Equal(t, "value is not a valid email address", vErr.Fields[0].Error)
		assert.Contains(t, err.Error(), "body.email: value is not a valid email address")
	})

	t.Run("500 passthrough", func(t *testing.T) {
		_, err := client.CreateUser(context.Background(), "other-tok", nu)
		var apiErr *core.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, "boom", apiErr.Detail)
	})
}

func TestListSessionsFlattensTrainees(t *testing.T) {
	e, client := newFakeAPI(t)
	scheduled := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	e.GET("/sessions/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []echo.Map{{
			"id": 7, "title": "Intro to Go", "trainer_id": 2,
			"trainees": []echo.Map{
				{"id": 3, "username": "eve"},
				{"id": 4, "username": "bob"},
			},
			"scheduled_date": scheduled, "duration_minutes": 90, "status": "scheduled",
		}})
	}, requireAuth(t, "tok-1"))

	sessions, err := client.ListSessions(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, []int{3, 4}, sessions[0].Trainees)
	assert.Equal(t, 2, sessions[0].TrainerID)
	assert.True(t, sessions[0].ScheduledAt.Equal(scheduled))
	assert.Equal(t, state.StatusScheduled, sessions[0].Status)
}

func TestListAssignmentsFlattensUsers(t *testing.T) {
	e, client := newFakeAPI(t)
	assigned := time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)
	e.GET("/assignments/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []echo.Map{{
			"id":            1,
			"student":       echo.Map{"id": 3, "username": "eve", "role": "trainee"},
			"teacher":       echo.Map{"id": 2, "username": "bob", "role": "trainer"},
			"assigned_date": assigned,
		}})
	}, requireAuth(t, "tok-1"))

	assignments, err := client.ListAssignments(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, state.Assignment{ID: 1, StudentID: 3, TeacherID: 2, AssignedDate: assigned}, assignments[0])
}

func TestAssignmentRequests(t *testing.T) {
	e, client := newFakeAPI(t)
	e.POST("/assignments/", func(c echo.Context) error {
		var body map[string]int
		require.NoError(t, c.Bind(&body))
		return c.JSON(http.StatusOK, echo.Map{
			"id": 5, "student_id": body["student_id"], "teacher_id": body["teacher_id"],
		})
	}, requireAuth(t, "tok-1"))
	var deleted string
	e.DELETE("/assignments/:student/:teacher", func(c echo.Context) error {
		deleted = c.Param("student") + "/" + c.Param("teacher")
		return c.NoContent(http.StatusNoContent)
	}, requireAuth(t, "tok-1"))

	asg, err := client.AssignStudent(context.Background(), "tok-1", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, state.Assignment{ID: 5, StudentID: 3, TeacherID: 2}, asg)

	require.NoError(t, client.UnassignStudent(context.Background(), "tok-1", 3, 2))
	assert.Equal(t, "3/2", deleted)
}

func TestTrainerRoster(t *testing.T) {
	e, client := newFakeAPI(t)
	e.GET("/trainers/:id/trainees", func(c echo.Context) error {
		assert.Equal(t, "2", c.Param("id"))
		return c.JSON(http.StatusOK, []echo.Map{{
			"trainee":        echo.Map{"id": 3, "username": "eve"},
			"sessions":       []echo.Map{{"id": 7, "title": "Intro to Go", "trainees": []echo.Map{{"id": 3}}}},
			"sessions_count": 1,
			"status":         "active",
		}})
	}, requireAuth(t, "tok-1"))

	roster, err := client.TrainerRoster(context.Background(), "tok-1", 2)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, 3, roster[0].Trainee.ID)
	assert.Equal(t, 1, roster[0].SessionsCount)
	require.Len(t, roster[0].Sessions, 1)
	assert.Equal(t, []int{3}, roster[0].Sessions[0].Trainees)
}
