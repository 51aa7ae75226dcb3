package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	domainauth "github.com/target/forest-console/internal/domain/auth"
)

func runOpen(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: forest-console open <path>")
	}
	dest, err := cmdCtx.App.Console.Open(cmdCtx.Ctx, args[0])
	if err != nil {
		return err
	}

	title := dest.Route.Title
	if title == "" {
		title = dest.Route.Name
	}
	if err := writef(cmdCtx.Out, "%s\t%s\n", dest.FullPath, title); err != nil {
		return err
	}
	if requested := strings.TrimRight(args[0], "/"); requested != "" && requested != dest.FullPath {
		return writef(cmdCtx.Out, "%s", pterm.Info.Sprintfln("Redirected from %s", args[0]))
	}
	return nil
}

func runRoutes(cmdCtx *commandContext, _ []string) error {
	rows := pterm.TableData{{"NAME", "PATH", "TITLE", "ACCESS"}}
	for _, r := range cmdCtx.App.Console.Router().Routes() {
		access := accessLabel(r.Requirement)
		if r.Redirect != "" {
			access = "-> " + r.Redirect
		}
		rows = append(rows, []string{r.Name, r.Path, r.Title, access})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return fmt.Errorf("render routes: %w", err)
	}
	return writef(cmdCtx.Out, "%s\n", table)
}

func accessLabel(req domainauth.RouteRequirement) string {
	switch {
	case req.RequiresElevatedRole:
		return "admin"
	case req.RequiresAuthentication:
		return "auth"
	case req.RequiresNoSession:
		return "guest"
	default:
		return "public"
	}
}
