// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"sort"
)

// Group is a user group. Limits hold the server's strings ("unset",
// "unlimited" or a number).
type Group struct {
	Name            string
	MaxResults      string
	MaxScanRows     string
	MaxLockTime     string
	MaxOpenFiles    string
	Timeout         string
	PasswordTimeout string
	Subgroups       []string
	Owners          []string
	Users           []string
}

func (g *Group) toSpec() map[string]string {
	m := map[string]string{"Group": g.Name}
	opt := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	opt("MaxResults", g.MaxResults)
	opt("MaxScanRows", g.MaxScanRows)
	opt("MaxLockTime", g.MaxLockTime)
	opt("MaxOpenFiles", g.MaxOpenFiles)
	opt("Timeout", g.Timeout)
	opt("PasswordTimeout", g.PasswordTimeout)
	putList(m, "Subgroups", g.Subgroups)
	putList(m, "Owners", g.Owners)
	putList(m, "Users", g.Users)
	return m
}

// Group returns the named group, or nil when it has no members,
// owners or subgroups (the server's template for a new group).
func (s *Server) Group(ctx context.Context, name string) (*Group, error) {
	if name == "" {
		return nil, invalidArg("empty group name")
	}
	recs, err := s.run(ctx, "group", []string{"-o", name}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	g := &Group{
		Name:            r["Group"],
		MaxResults:      r["MaxResults"],
		MaxScanRows:     r["MaxScanRows"],
		MaxLockTime:     r["MaxLockTime"],
		MaxOpenFiles:    r["MaxOpenFiles"],
		Timeout:         r["Timeout"],
		PasswordTimeout: r["PasswordTimeout"],
		Subgroups:       r.List("Subgroups"),
		Owners:          r.List("Owners"),
		Users:           r.List("Users"),
	}
	if len(g.Users)+len(g.Owners)+len(g.Subgroups) == 0 {
		return nil, nil
	}
	return g, nil
}

func (s *Server) CreateGroup(ctx context.Context, g *Group) (string, error) {
	return s.UpdateGroup(ctx, g, false)
}

// UpdateGroup saves a group; ownerOnly uses the owner's rights (-a)
// instead of super user rights.
func (s *Server) UpdateGroup(ctx context.Context, g *Group, ownerOnly bool) (string, error) {
	if g == nil || g.Name == "" {
		return "", invalidArg("group needs a name")
	}
	args := []string{"-i"}
	if ownerOnly {
		args = []string{"-a", "-i"}
	}
	recs, err := s.run(ctx, "group", args, g.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteGroup(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", invalidArg("empty group name")
	}
	recs, err := s.run(ctx, "group", []string{"-d", name}, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// GroupsOptions for p4 groups.
type GroupsOptions struct {
	Max int
	// Indirect includes groups the member belongs to through
	// subgroups (-i).
	Indirect bool
	// WithValues includes the group limits (-v).
	WithValues bool
	// OwnerName, UserName and GroupName select how the member
	// argument is interpreted (-o, -u, -g).
	OwnerName bool
	UserName  bool
	GroupName bool
}

func (o *GroupsOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Indirect, "-i")
	a.flag(o.WithValues, "-v")
	a.flag(o.OwnerName, "-o")
	a.flag(o.UserName, "-u")
	a.flag(o.GroupName, "-g")
	a.num("-m", o.Max)
	return a
}

// Groups lists groups, optionally those containing member. p4 groups
// returns one record per (group, member); they are folded into one
// Group per name, sorted by name.
func (s *Server) Groups(ctx context.Context, member string, opts *GroupsOptions) ([]*Group, error) {
	var pos []string
	if member != "" {
		pos = append(pos, member)
	}
	recs, err := s.run(ctx, "groups", withArgs(opts, pos...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	byName := map[string]*Group{}
	for _, r := range st {
		name := r["group"]
		g := byName[name]
		if g == nil {
			g = &Group{
				Name:            name,
				MaxResults:      r["maxResults"],
				MaxScanRows:     r["maxScanRows"],
				MaxLockTime:     r["maxLockTime"],
				MaxOpenFiles:    r["maxOpenFiles"],
				Timeout:         r["timeout"],
				PasswordTimeout: r["passTimeout"],
			}
			byName[name] = g
		}
		u := r["user"]
		if u == "" {
			continue
		}
		switch {
		case r["isSubGroup"] == "1":
			g.Subgroups = append(g.Subgroups, u)
		case r["isOwner"] == "1":
			g.Owners = append(g.Owners, u)
			if r["isUser"] == "1" {
				g.Users = append(g.Users, u)
			}
		default:
			g.Users = append(g.Users, u)
		}
	}
	out := make([]*Group, 0, len(byName))
	for _, g := range byName {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
