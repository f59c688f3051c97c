// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/commands"
	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/model"
)

// completionSessions bounds how many sessions Tab offers.
const completionSessions = 50

// helpCategories is the order /help prints categories in.
var helpCategories = []string{"Conversation", "Session", "Provider", "General"}

var helpUsageStyle = LabelStyle.Width(20)

// commands returns the slash commands of this REPL, built on first use.
func (r *repl) commands() *commands.Registry {
	if r.cmds != nil {
		return r.cmds
	}

	reg := commands.NewRegistry()
	for _, cmd := range []*commands.Command{
		// Conversation
		{
			Name: "/regen", Aliases: []string{"/r"}, Category: "Conversation",
			Description: "replace the last reply",
			Handler: func(commands.Invocation) error {
				return r.consume(r.orch.Regenerate(r.ctx, r.session.ID, r.call))
			},
		},
		{
			Name: "/history", Category: "Conversation",
			Description: "print this session",
			Handler:     r.cmdHistory,
		},
		{
			Name: "/search", Usage: "/search <text>", Category: "Conversation",
			Description: "search this session",
			Args:        []commands.ArgDef{{Name: "text", Required: true, Description: "text to find"}},
			Handler:     r.cmdSearch,
		},
		{
			Name: "/export", Usage: "/export [format]", Category: "Conversation",
			Description: "export this session to the current directory",
			Args: []commands.ArgDef{{
				Name: "format", Description: "export format",
				Completer: export.Formats,
			}},
			Handler: r.cmdExport,
		},

		// Session
		{
			Name: "/new", Usage: "/new [title]", Category: "Session",
			Description: "start a new session",
			Handler:     r.cmdNew,
		},
		{
			Name: "/open", Usage: "/open <id>", Category: "Session",
			Description: "switch to a session",
			Args:        []commands.ArgDef{{Name: "id", Required: true, Type: commands.ArgTypeSession, Description: "session id"}},
			Handler:     r.cmdOpen,
		},
		{
			Name: "/sessions", Category: "Session",
			Description: "list recent sessions",
			Handler:     r.cmdSessions,
		},
		{
			Name: "/pin", Category: "Session",
			Description: "pin this session",
			Handler:     func(commands.Invocation) error { return r.setPinned(true) },
		},
		{
			Name: "/unpin", Category: "Session",
			Description: "unpin this session",
			Handler:     func(commands.Invocation) error { return r.setPinned(false) },
		},
		{
			Name: "/title", Usage: "/title <text>", Category: "Session",
			Description: "rename this session",
			Args:        []commands.ArgDef{{Name: "text", Required: true, Description: "new title"}},
			Handler:     r.cmdTitle,
		},

		// Provider
		{
			Name: "/provider", Usage: "/provider [id]", Category: "Provider",
			Description: "show or switch provider",
			Args:        []commands.ArgDef{{Name: "id", Type: commands.ArgTypeProvider}},
			Handler:     func(inv commands.Invocation) error { return r.switchProvider(inv.Arg(0)) },
		},

		// General
		{
			Name: "/help", Aliases: []string{"/h"}, Category: "General",
			Description: "show this help",
			Handler:     func(commands.Invocation) error { r.help(); return nil },
		},
		{
			Name: "/quit", Aliases: []string{"/q", "/exit"}, Category: "General",
			Description: "exit (or Ctrl+D)",
			Handler:     func(commands.Invocation) error { return commands.ErrQuit },
		},
	} {
		reg.Register(cmd)
	}
	r.cmds = reg
	return reg
}

// completer offers command names, session ids and provider ids on Tab.
func (r *repl) completer() *commands.Completer {
	c := commands.NewCompleter(r.commands())
	c.SessionsFn = func() []commands.SessionInfo {
		sessions, err := r.db.Sessions().List(r.ctx)
		if err != nil {
			return nil
		}
		if len(sessions) > completionSessions {
			sessions = sessions[:completionSessions]
		}
		infos := make([]commands.SessionInfo, len(sessions))
		for i, s := range sessions {
			infos[i] = commands.SessionInfo{ID: s.ID, Title: s.Title}
		}
		return infos
	}
	c.ProvidersFn = func() []string {
		ids := make([]string, len(r.cfg.Providers))
		for i, p := range r.cfg.Providers {
			ids[i] = p.ID
		}
		return ids
	}
	return c
}

// =============================================================================
// HANDLERS
// =============================================================================

func (r *repl) cmdNew(inv commands.Invocation) error {
	sess, err := r.db.Sessions().Create(r.ctx, "", inv.RawArgs)
	if err != nil {
		return err
	}
	r.setSession(sess)
	fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("New session"), DimStyle.Render(sess.ID))
	return nil
}

func (r *repl) cmdOpen(inv commands.Invocation) error {
	if err := r.open(inv.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Opened"), r.session.Title)
	return nil
}

func (r *repl) cmdSessions(commands.Invocation) error {
	sessions, err := r.db.Sessions().List(r.ctx)
	if err != nil {
		return err
	}
	if len(sessions) > recentSessions {
		sessions = sessions[:recentSessions]
	}
	printSessions(r.out, sessions, time.Now())
	return nil
}

func (r *repl) cmdHistory(commands.Invocation) error {
	msgs, err := r.db.Messages().ListBySession(r.ctx, r.session.ID)
	if err != nil {
		return err
	}
	printTranscript(r.out, r.session, msgs)
	return nil
}

func (r *repl) cmdSearch(inv commands.Invocation) error {
	hits, err := r.db.Messages().Search(r.ctx, r.session.ID, inv.RawArgs, model.DateRange{})
	if err != nil {
		return err
	}
	printHits(r.out, hits)
	return nil
}

func (r *repl) cmdExport(inv commands.Invocation) error {
	format := inv.Arg(0)
	if format == "" {
		format = "markdown"
	}
	exp, err := export.ForFormat(format, export.DefaultOptions())
	if err != nil {
		return usageErrorf("/export", "%v", err)
	}
	msgs, err := r.db.Messages().ListBySession(r.ctx, r.session.ID)
	if err != nil {
		return err
	}
	path, err := export.WriteFile(r.exportDir, r.session, msgs, exp, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Exported to"), path)
	return nil
}

func (r *repl) cmdTitle(inv commands.Invocation) error {
	if err := r.db.Sessions().UpdateTitle(r.ctx, r.session.ID, inv.RawArgs); err != nil {
		return err
	}
	r.session.Title = inv.RawArgs
	return nil
}

func (r *repl) setPinned(pinned bool) error {
	if err := r.db.Sessions().SetPinned(r.ctx, r.session.ID, pinned); err != nil {
		return err
	}
	r.session.IsPinned = pinned
	return nil
}

func (r *repl) help() {
	groups := r.commands().ByCategory()
	for _, category := range helpCategories {
		cmds := groups[category]
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintln(r.out, TitleStyle.Render(category))
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(r.out, "  %s%s\n", helpUsageStyle.Render(usage), DimStyle.Render(cmd.Description))
		}
	}
	fmt.Fprintln(r.out, DimStyle.Render("  Tab completes commands, session ids and providers."))
	fmt.Fprintln(r.out, DimStyle.Render("  Ctrl+C while a reply streams cancels it."))
}
