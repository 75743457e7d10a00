// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"fmt"
	"strings"

	"p4go/p4/internal/specline"
)

// ProtectionEntry is one line of the protections table.
type ProtectionEntry struct {
	Order int
	// Mode is the access level, e.g. "write" or "=read".
	Mode  string
	Group bool
	Name  string
	Host  string
	Path  string
	// Exclude is set for "-//depot/..." lines.
	Exclude bool
}

// String renders the entry as a line of the protect form.
func (e ProtectionEntry) String() string {
	kind := "user"
	if e.Group {
		kind = "group"
	}
	path := e.Path
	if e.Exclude {
		path = "-" + path
	}
	if strings.ContainsAny(path, " \t") {
		path = `"` + path + `"`
	}
	return strings.Join([]string{e.Mode, kind, e.Name, e.Host, path}, " ")
}

// ParseProtectionLine parses a line of the protect form.
func ParseProtectionLine(line string) (ProtectionEntry, error) {
	p, err := specline.Split(line)
	if err != nil {
		return ProtectionEntry{}, invalidArg("protection line %q: %v", line, err)
	}
	if len(p) != 5 {
		return ProtectionEntry{}, invalidArg("protection line %q: want 5 fields, got %d", line, len(p))
	}
	e := ProtectionEntry{Mode: p[0], Name: p[2], Host: p[3], Path: p[4]}
	switch p[1] {
	case "group":
		e.Group = true
	case "user":
	default:
		return ProtectionEntry{}, invalidArg("protection line %q: bad kind %q", line, p[1])
	}
	if strings.HasPrefix(e.Path, "-") {
		e.Exclude = true
		e.Path = e.Path[1:]
	}
	return e, nil
}

// ProtectsOptions for p4 protects.
type ProtectsOptions struct {
	// All shows the lines for all users (-a).
	All   bool
	Group string
	User  string
	Host  string
	// MaxAccess returns only the highest permission (-m).
	MaxAccess bool
}

func (o *ProtectsOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.All, "-a")
	a.str("-g", o.Group)
	a.str("-u", o.User)
	a.str("-h", o.Host)
	a.flag(o.MaxAccess, "-m")
	return a
}

// ProtectionEntries lists the protections applying to paths.
func (s *Server) ProtectionEntries(ctx context.Context, paths []string, opts *ProtectsOptions) ([]ProtectionEntry, error) {
	recs, err := s.run(ctx, "protects", withArgs(opts, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]ProtectionEntry, 0, len(st))
	for i, r := range st {
		e := ProtectionEntry{
			Order: i,
			Mode:  r["perm"],
			Group: r.Bool("isgroup"),
			Name:  r["user"],
			Host:  r["host"],
			Path:  r["depotFile"],
		}
		if _, ok := r["unmap"]; ok {
			e.Exclude = true
		}
		if strings.HasPrefix(e.Path, "-") {
			e.Exclude = true
			e.Path = e.Path[1:]
		}
		if r["line"] != "" {
			e.Order = r.Int("line")
		}
		out = append(out, e)
	}
	return out, nil
}

// ProtectionTable returns the whole protections table, in order.
func (s *Server) ProtectionTable(ctx context.Context) ([]ProtectionEntry, error) {
	recs, err := s.run(ctx, "protect", []string{"-o"}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	var out []ProtectionEntry
	for i, l := range r.List("Protections") {
		e, err := ParseProtectionLine(l)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		e.Order = i
		out = append(out, e)
	}
	return out, nil
}

// UpdateProtectionTable replaces the protections table.
func (s *Server) UpdateProtectionTable(ctx context.Context, entries []ProtectionEntry) (string, error) {
	if len(entries) == 0 {
		return "", invalidArg("refusing to write an empty protections table")
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	spec := map[string]string{}
	putList(spec, "Protections", lines)
	recs, err := s.run(ctx, "protect", []string{"-i"}, spec)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}
