// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"regexp"
	"time"

	"p4go/p4/mapview"
)

// ClientSummary is a workspace as listed by p4 clients.
type ClientSummary struct {
	Name          string
	Owner         string
	Host          string
	Root          string
	Description   string
	Options       string
	SubmitOptions string
	LineEnd       string
	Stream        string
	Updated       time.Time
	Accessed      time.Time
}

// Client is the client (workspace) spec form.
type Client struct {
	ClientSummary
	AltRoots       []string
	StreamAtChange string
	ServerID       string
	Type           string
	View           []string
}

func clientSummaryFromRecord(r Record, nameKey string) ClientSummary {
	return ClientSummary{
		Name:          r[nameKey],
		Owner:         r["Owner"],
		Host:          r["Host"],
		Root:          r["Root"],
		Description:   r["Description"],
		Options:       r["Options"],
		SubmitOptions: r["SubmitOptions"],
		LineEnd:       r["LineEnd"],
		Stream:        r["Stream"],
		Updated:       r.Time("Update"),
		Accessed:      r.Time("Access"),
	}
}

func clientFromSpec(r Record) *Client {
	return &Client{
		ClientSummary:  clientSummaryFromRecord(r, "Client"),
		AltRoots:       r.List("AltRoots"),
		StreamAtChange: r["StreamAtChange"],
		ServerID:       r["ServerID"],
		Type:           r["Type"],
		View:           r.List("View"),
	}
}

func (c *Client) toSpec() map[string]string {
	m := map[string]string{
		"Client":      c.Name,
		"Root":        c.Root,
		"Description": c.Description,
	}
	opt := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	opt("Owner", c.Owner)
	opt("Host", c.Host)
	opt("Options", c.Options)
	opt("SubmitOptions", c.SubmitOptions)
	opt("LineEnd", c.LineEnd)
	opt("Stream", c.Stream)
	opt("StreamAtChange", c.StreamAtChange)
	opt("ServerID", c.ServerID)
	opt("Type", c.Type)
	putList(m, "AltRoots", c.AltRoots)
	putList(m, "View", c.View)
	return m
}

var whitespace = regexp.MustCompile(`\s`)

// Client returns the named workspace, or nil when it does not exist.
func (s *Server) Client(ctx context.Context, name string) (*Client, error) {
	if name == "" {
		return nil, invalidArg("empty client name")
	}
	recs, err := s.run(ctx, "client", []string{"-o", name}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	if !IsExistingSpec(r) {
		return nil, nil
	}
	return clientFromSpec(r), nil
}

// ClientTemplate returns the default form for a new workspace called
// name. It returns nil if the workspace exists, unless allowExisting
// is set.
func (s *Server) ClientTemplate(ctx context.Context, name string, allowExisting bool) (*Client, error) {
	if name == "" {
		return nil, invalidArg("empty client name")
	}
	recs, err := s.run(ctx, "client", []string{"-o", name}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	if IsExistingSpec(r) && !allowExisting {
		return nil, nil
	}
	return clientFromSpec(r), nil
}

// CreateClient saves a new workspace. Whitespace in its name is
// replaced with underscores.
func (s *Server) CreateClient(ctx context.Context, c *Client) (string, error) {
	if c == nil || c.Name == "" {
		return "", invalidArg("client needs a name")
	}
	c.Name = whitespace.ReplaceAllString(c.Name, "_")
	recs, err := s.run(ctx, "client", []string{"-i"}, c.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// UpdateClient saves an existing workspace; force lets an admin edit
// a locked or foreign workspace.
func (s *Server) UpdateClient(ctx context.Context, c *Client, force bool) (string, error) {
	if c == nil || c.Name == "" {
		return "", invalidArg("client needs a name")
	}
	recs, err := s.run(ctx, "client", withArgs(forceOpt(force), "-i"), c.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteClient(ctx context.Context, name string, force bool) (string, error) {
	if name == "" {
		return "", invalidArg("empty client name")
	}
	recs, err := s.run(ctx, "client", withArgs(forceOpt(force), "-d", name), nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// Mapping compiles the client view, translating depot paths to client
// syntax paths.
func (c *Client) Mapping(caseSensitive bool) (*mapview.View, error) {
	return mapview.Parse(c.View, caseSensitive)
}

// SwitchClientView replaces the view of target (the session client
// when empty) with the view of template.
func (s *Server) SwitchClientView(ctx context.Context, template, target string, force bool) (string, error) {
	if template == "" {
		return "", invalidArg("empty template client name")
	}
	args := withArgs(forceOpt(force), "-s", "-t", template)
	if target != "" {
		args = append(args, target)
	}
	recs, err := s.run(ctx, "client", args, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// SwitchStreamView switches target (the session client when empty) to
// stream.
func (s *Server) SwitchStreamView(ctx context.Context, stream, target string, force bool) (string, error) {
	if stream == "" {
		return "", invalidArg("empty stream path")
	}
	if err := s.requireVersion(ctx, VersionStreams, "streams"); err != nil {
		return "", err
	}
	args := withArgs(forceOpt(force), "-s", "-S", stream)
	if target != "" {
		args = append(args, target)
	}
	recs, err := s.run(ctx, "client", args, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// ClientsOptions for p4 clients.
type ClientsOptions struct {
	Max  int
	User string
	// Filter is a name pattern (-e); CaseInsensitive uses -E.
	Filter          string
	CaseInsensitive bool
	Stream          string
	// Unloaded lists unloaded workspaces (-U).
	Unloaded bool
}

func (o *ClientsOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.str("-u", o.User)
	if o.CaseInsensitive {
		a.str("-E", o.Filter)
	} else {
		a.str("-e", o.Filter)
	}
	a.num("-m", o.Max)
	a.str("-S", o.Stream)
	a.flag(o.Unloaded, "-U")
	return a
}

func (s *Server) Clients(ctx context.Context, opts *ClientsOptions) ([]ClientSummary, error) {
	recs, err := s.run(ctx, "clients", withArgs(opts), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]ClientSummary, 0, len(st))
	for _, r := range st {
		out = append(out, clientSummaryFromRecord(r, "client"))
	}
	return out, nil
}
