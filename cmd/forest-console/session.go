package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/service"
	"golang.org/x/sync/errgroup"
)

var errNotLoggedIn = errors.New("not logged in")

type credentialOptions struct {
	Username string
	Password string
}

func parseCredentialFlags(name string, args []string, passwordFlag string) (credentialOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var opts credentialOptions
	fs.StringVar(&opts.Username, "username", "", "Account username")
	fs.StringVar(&opts.Password, passwordFlag, "", "Password (read from stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return opts, errors.New("-username is required")
	}
	return opts, nil
}

func readPassword(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseCredentialFlags("login", args, "password")
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = readPassword(cmdCtx.In); err != nil {
			return err
		}
	}

	res, err := cmdCtx.App.Gateway.Login(cmdCtx.Ctx, opts.Username, opts.Password)
	if err != nil {
		return err
	}
	if !res.Success {
		if werr := writef(cmdCtx.Out, "%s", pterm.Error.Sprintln(res.Message)); werr != nil {
			return werr
		}
		return errors.New(res.Message)
	}

	dest, err := cmdCtx.App.Console.AfterLogin(cmdCtx.Ctx)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "%s%s",
		pterm.Success.Sprintfln("%s (%s)", res.Identity.ActorID, res.Identity.Role),
		pterm.Info.Sprintfln("Landing: %s", dest.FullPath),
	)
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	if err := cmdCtx.App.Gateway.Logout(cmdCtx.Ctx); err != nil {
		return err
	}
	if _, err := cmdCtx.App.Console.AfterLogout(cmdCtx.Ctx); err != nil {
		return err
	}
	return writef(cmdCtx.Out, "%s", pterm.Success.Sprintln("Signed out"))
}

func runWhoami(cmdCtx *commandContext, _ []string) error {
	id, ok := cmdCtx.App.Session.Oracle().Identity()
	if !ok {
		if err := writef(cmdCtx.Out, "%s", pterm.Warning.Sprintln("Not logged in")); err != nil {
			return err
		}
		return errNotLoggedIn
	}
	return writef(cmdCtx.Out, "%s\t%s\n", id.ActorID, id.Role)
}

func runValidate(cmdCtx *commandContext, _ []string) error {
	v, err := cmdCtx.App.Gateway.Validate(cmdCtx.Ctx)
	if err != nil {
		return err
	}
	if !v.Valid {
		msg := v.Message
		if msg == "" {
			msg = "Session is not valid"
		}
		if werr := writef(cmdCtx.Out, "%s", pterm.Warning.Sprintln(msg)); werr != nil {
			return werr
		}
		return errNotLoggedIn
	}
	return writef(cmdCtx.Out, "%s", pterm.Success.Sprintfln("Valid session for %s (%s)", v.Identity.ActorID, v.Identity.Role))
}

func runResetPassword(cmdCtx *commandContext, args []string) error {
	opts, err := parseCredentialFlags("reset-password", args, "new-password")
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = readPassword(cmdCtx.In); err != nil {
			return err
		}
	}

	res, err := cmdCtx.App.Gateway.ResetPassword(cmdCtx.Ctx, opts.Username, opts.Password)
	if err != nil {
		return err
	}
	if !res.Success {
		if werr := writef(cmdCtx.Out, "%s", pterm.Error.Sprintln(res.Message)); werr != nil {
			return werr
		}
		return errors.New(res.Message)
	}
	return writef(cmdCtx.Out, "%s", pterm.Success.Sprintln(res.Message))
}

type statusReport struct {
	identity   domainauth.Identity
	validation service.Validation
	self       *domainauth.SelfRecord

	// Each call records its own rejection; they run concurrently.
	validateExpired bool
	selfExpired     bool
}

func (r statusReport) expired() bool { return r.validateExpired || r.selfExpired }

func runStatus(cmdCtx *commandContext, _ []string) error {
	app := cmdCtx.App
	id, ok := app.Session.Oracle().Identity()
	if !ok {
		if err := writef(cmdCtx.Out, "%s", pterm.Warning.Sprintln("Not logged in")); err != nil {
			return err
		}
		return errNotLoggedIn
	}

	report := statusReport{identity: id}
	g, gctx := errgroup.WithContext(cmdCtx.Ctx)
	g.Go(func() error {
		v, err := app.Gateway.Validate(gctx)
		if errors.Is(err, service.ErrSessionExpired) {
			report.validateExpired = true
			return nil
		}
		report.validation = v
		return err
	})
	g.Go(func() error {
		res, err := app.Gateway.FetchSelf(gctx)
		if errors.Is(err, service.ErrSessionExpired) {
			report.selfExpired = true
			return nil
		}
		if err != nil {
			return err
		}
		if res.Success {
			self := res.Self
			report.self = &self
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return writef(cmdCtx.Out, "%s", renderStatus(report, app.Session.Oracle().HasActiveSession()))
}

func renderStatus(r statusReport, active bool) string {
	var b strings.Builder
	b.WriteString(pterm.DefaultSection.Sprintln("Session"))

	rows := pterm.TableData{
		{"FIELD", "VALUE"},
		{"Actor", r.identity.ActorID},
		{"Role", string(r.identity.Role)},
		{"Server valid", fmt.Sprintf("%t", r.validation.Valid && !r.expired())},
		{"Active", fmt.Sprintf("%t", active)},
	}
	if r.self != nil {
		rows = append(rows,
			[]string{"Account ID", fmt.Sprintf("%d", r.self.ID)},
			[]string{"Enabled", fmt.Sprintf("%t", r.self.Enabled)},
			[]string{"Created", r.self.CreatedAt},
			[]string{"Last login", r.self.LastLoginAt},
		)
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		table = fmt.Sprintf("%v\n", rows)
	}
	b.WriteString(table)
	b.WriteString("\n")
	if r.expired() || !active {
		b.WriteString(pterm.Warning.Sprintln("Session expired; sign in again"))
	}
	return b.String()
}
