package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
	backendsvc "github.com/Yasheenyash33/StacklyHub-main-main/services/backend"
)

func (cli *commandLine) whoami() error {
	id := cli.store.Identity()
	if id == nil {
		return errNotLoggedIn
	}
	fmt.Fprintf(cli.out, "%s <%s> (%s)\n", id.Name, id.Email, id.Role)
	if id.IsTemporaryPassword {
		fmt.Fprintln(cli.out, "password is temporary; change it with: dashboard passwd")
	}
	if subject, expiresAt, err := backendsvc.TokenInfo(cli.store.Token()); err == nil {
		fmt.Fprintf(cli.out, "token subject %q", subject)
		if !expiresAt.IsZero() {
			fmt.Fprintf(cli.out, ", expires %s", core.FormatIST(expiresAt, core.StyleDatetime))
		}
		fmt.Fprintln(cli.out)
	}
	return nil
}

func (cli *commandLine) renderUsers(users []state.User) {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUSERNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Username, u.Email, u.Role, core.FormatIST(u.CreatedAt, core.StyleShort))
	}
	w.Flush()
}

func (cli *commandLine) renderSessions(sessions []state.Session) {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTRAINER\tTRAINEES\tSTART\tDURATION\tSTATUS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%dm\t%s\n",
			s.ID, s.Title, s.TrainerID, len(s.Trainees),
			core.FormatIST(s.ScheduledAt, core.StyleDatetime), s.DurationMinutes, s.Status)
	}
	w.Flush()
}

func (cli *commandLine) renderAssignments(assignments []state.Assignment) {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT\tTEACHER\tASSIGNED")
	for _, a := range assignments {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n",
			a.ID, a.StudentID, a.TeacherID, core.FormatIST(a.AssignedDate, core.StyleShort))
	}
	w.Flush()
}

func (cli *commandLine) renderRoster(roster []state.TraineeStatus) {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRAINEE\tSESSIONS\tSTATUS\tLAST ACTIVE")
	for _, r := range roster {
		lastActive := "-"
		if !r.LastActive.IsZero() {
			lastActive = core.FormatIST(r.LastActive, core.StyleDatetime)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Trainee.Name, r.SessionsCount, r.Status, lastActive)
	}
	w.Flush()
}
