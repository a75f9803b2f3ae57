package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	signalNotifyFunc = signal.Notify     // mockable

	errHelp          = errors.New("help provided")
	errNotLoggedIn   = errors.New("not logged in; run: dashboard login -username USERNAME")
	errEmptyPassword = errors.New("a non-empty password is required")
)

type commandLine struct {
	store *state.Store
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME            - authenticate; the password is prompted")
	fmt.Fprintln(cli.out, "  logout                              - clear the cached session")
	fmt.Fprintln(cli.out, "  whoami                              - show the current identity and token expiry")
	fmt.Fprintln(cli.out, "  users|sessions|assignments          - list a collection")
	fmt.Fprintln(cli.out, "  roster -trainer ID                  - show a trainer's trainee roster")
	fmt.Fprintln(cli.out, "  adduser -username U -email E -first F -last L -role R")
	fmt.Fprintln(cli.out, "  deluser -id ID")
	fmt.Fprintln(cli.out, "  addsession -title T -trainer ID -trainees 1,2 -start RFC3339 -duration MIN [-link URL]")
	fmt.Fprintln(cli.out, "  delsession -id ID")
	fmt.Fprintln(cli.out, "  assign|unassign -student ID -teacher ID")
	fmt.Fprintln(cli.out, "  passwd                              - change own password (prompted)")
	fmt.Fprintln(cli.out, "  resetpw -id ID                      - reset a user's password (admin)")
	fmt.Fprintln(cli.out, "  watch                               - follow live updates until interrupted")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "login":
		cmd := flag.NewFlagSet("login", flag.ExitOnError)
		uname := cmd.String("username", "", "The username. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		return cli.login(ctx, *uname, pwd)

	case "logout":
		if err := cli.restore(ctx); err != nil {
			return err
		}
		cli.store.Logout()
		fmt.Fprintln(cli.out, "logged out")
		return nil

	case "whoami":
		if err := cli.restore(ctx); err != nil {
			return err
		}
		return cli.whoami()

	case "users":
		if err := cli.restore(ctx); err != nil {
			return err
		}
		cli.renderUsers(cli.store.Users())
		return nil

	case "sessions":
		if err := cli.restore(ctx); err != nil {
			return err
		}
		cli.renderSessions(cli.store.Sessions())
		return nil

	case "assignments":
		if err := cli.restore(ctx); err != nil {
			return err
		}
		cli.renderAssignments(cli.store.Assignments())
		return nil

	case "roster":
		cmd := flag.NewFlagSet("roster", flag.ExitOnError)
		trainer := cmd.Int("trainer", 0, "Trainer id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := cli.restore(ctx); err != nil {
			return err
		}
		roster, err := cli.store.TrainerRoster(ctx, *trainer)
		if err != nil {
			return err
		}
		cli.renderRoster(roster)
		return nil

	case "adduser":
		cmd := flag.NewFlagSet("adduser", flag.ExitOnError)
		uname := cmd.String("username", "", "Username.")
		email := cmd.String("email", "", "Email address.")
		first := cmd.String("first", "", "First name.")
		last := cmd.String("last", "", "Last name.")
		role := cmd.String("role", string(state.RoleTrainee), "Role: admin, trainer or trainee.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := cli.restore(ctx); err != nil {
			return err
		}
		return cli.addUser(ctx, state.NewUser{
			Username:  *uname,
			Email:     *email,
			FirstName: *first,
			LastName:  *last,
			Role:      state.Role(*role),
		})

	case "deluser":
		cmd := flag.NewFlagSet("deluser", flag.ExitOnError)
		id := cmd.Int("id", 0, "User id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := cli.restore(ctx); err != nil {
			return err
		}
		if err := cli.store.DeleteUser(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %d deleted\n", *id)
		return nil

	case "addsession":
		cmd := flag.NewFlagSet("addsession", flag.ExitOnError)
		title := cmd.String("title", "", "Session title.")
		trainer := cmd.Int("trainer", 0, "Trainer id.")
		trainees := cmd.String("trainees", "", "Comma-separated trainee ids.")
		start := cmd.String("start", "", "Scheduled start time (RFC3339).")
		duration := cmd.Int("duration", 60, "Duration in minutes.")
		link := cmd.String("link", "", "Optional meeting link.")
		desc := cmd.String("desc", "", "Optional description.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		startAt, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
		ids, err := parseIDs(*trainees)
		if err != nil {
			return fmt.Errorf("invalid -trainees: %w", err)
		}
		if err := cli.restore(ctx); err != nil {
			return err
		}
		return cli.addSession(ctx, state.NewSession{
			Title:           *title,
			Description:     *desc,
			TrainerID:       *trainer,
			Trainees:        ids,
			ScheduledAt:     startAt,
			DurationMinutes: *duration,
			ClassLink:       *link,
		})

	case "delsession":
		cmd := flag.NewFlagSet("delsession", flag.ExitOnError)
		id := cmd.Int("id", 0, "Session id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := cli.restore(ctx); err != nil {
			return err
		}
		if err := cli.store.DeleteSession(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "session %d deleted\n", *id)
		return nil

	case "assign", "unassign":
		cmd := flag.NewFlagSet(args[1], flag.ExitOnError)
		student := cmd.Int("student", 0, "Trainee id.")
		teacher := cmd.Int("teacher", 0, "Trainer id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := cli.restore(ctx); err != nil {
			return err
		}
		if args[1] == "assign" {
			asg, err := cli.store.AssignStudent(ctx, *student, *teacher)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "student %d assigned to teacher %d (assignment %d)\n", asg.StudentID, asg.TeacherID, asg.ID)
			return nil
		}
		if err := cli.store.UnassignStudent(ctx, *student, *teacher); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "student %d unassigned from teacher %d\n", *student, *teacher)
		return nil

	case "passwd":
		if err := cli.restore(ctx); err != nil {
			return err
		}
		return cli.changePassword(ctx)

	case "resetpw":
		cmd := flag.NewFlagSet("resetpw", flag.ExitOnError)
		id := cmd.Int("id", 0, "User id. The new password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := cli.restore(ctx); err != nil {
			return err
		}
		pwd, err := cli.promptPassword("Enter new password:")
		if err != nil {
			return err
		}
		msg, err := cli.store.ResetPassword(ctx, *id, pwd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, msg)
		return nil

	case "watch":
		if err := cli.restore(ctx); err != nil {
			return err
		}
		return cli.watch()

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) restore(ctx context.Context) error {
	if !cli.store.Restore(ctx) {
		return errNotLoggedIn
	}
	return nil
}

func (cli *commandLine) login(ctx context.Context, username, password string) error {
	res, err := cli.store.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "logged in as %s (%s)\n", res.User.Name, res.User.Role)
	if res.ForcePasswordChange {
		fmt.Fprintln(cli.out, "your password is temporary; change it with: dashboard passwd")
	}
	return nil
}

func (cli *commandLine) addUser(ctx context.Context, nu state.NewUser) error {
	usr, err := cli.store.CreateUser(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created (id %d)\n", usr.Name, usr.ID)
	return nil
}

func (cli *commandLine) addSession(ctx context.Context, ns state.NewSession) error {
	sess, err := cli.store.CreateSession(ctx, ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "session %q scheduled (id %d)\n", sess.Title, sess.ID)
	return nil
}

func (cli *commandLine) changePassword(ctx context.Context) error {
	var current string
	if id := cli.store.Identity(); id != nil && !id.IsAdmin() {
		pwd, err := cli.promptPassword("Enter current password:")
		if err != nil {
			return err
		}
		current = pwd
	}
	newPwd, err := cli.promptPassword("Enter new password:")
	if err != nil {
		return err
	}
	if err := cli.store.ChangePassword(ctx, newPwd, current); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "password changed")
	return nil
}

func (cli *commandLine) watch() error {
	fmt.Fprintln(cli.out, "watching for live updates; Ctrl-C to stop")
	cli.store.Observe(func(ev state.Event) {
		fmt.Fprintf(cli.out, "%s  %s  %s\n", core.FormatIST(time.Now(), core.StyleTime), ev.Type, ev.Data)
	})
	defer cli.store.Observe(nil)

	stop := make(chan os.Signal, 1)
	signalNotifyFunc(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	return nil
}

func (cli *commandLine) promptPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func parseIDs(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
