// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"time"
)

// UserSummary is a user as listed by p4 users.
type UserSummary struct {
	Name     string
	Email    string
	FullName string
	Type     string
	Updated  time.Time
	Accessed time.Time
}

// User is the user spec form.
type User struct {
	UserSummary
	JobView    string
	AuthMethod string
	Password   string
	Reviews    []string
}

func userSummaryFromRecord(r Record) UserSummary {
	return UserSummary{
		Name:     r["User"],
		Email:    r["Email"],
		FullName: r["FullName"],
		Type:     r["Type"],
		Updated:  r.Time("Update"),
		Accessed: r.Time("Access"),
	}
}

func (u *User) toSpec() map[string]string {
	m := map[string]string{
		"User":     u.Name,
		"Email":    u.Email,
		"FullName": u.FullName,
	}
	opt := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	opt("Type", u.Type)
	opt("JobView", u.JobView)
	opt("AuthMethod", u.AuthMethod)
	opt("Password", u.Password)
	putList(m, "Reviews", u.Reviews)
	return m
}

// User returns the named user, or nil if it does not exist.
func (s *Server) User(ctx context.Context, name string) (*User, error) {
	args := []string{"-o"}
	if name != "" {
		args = append(args, name)
	}
	recs, err := s.run(ctx, "user", args, nil)
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
	return &User{
		UserSummary: userSummaryFromRecord(r),
		JobView:     r["JobView"],
		AuthMethod:  r["AuthMethod"],
		Reviews:     r.List("Reviews"),
	}, nil
}

// CreateUser saves a new user; force lets a super user create
// another user.
func (s *Server) CreateUser(ctx context.Context, u *User, force bool) (string, error) {
	return s.UpdateUser(ctx, u, force)
}

func (s *Server) UpdateUser(ctx context.Context, u *User, force bool) (string, error) {
	if u == nil || u.Name == "" {
		return "", invalidArg("user needs a name")
	}
	recs, err := s.run(ctx, "user", withArgs(forceOpt(force), "-i"), u.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteUser(ctx context.Context, name string, force bool) (string, error) {
	if name == "" {
		return "", invalidArg("empty user name")
	}
	recs, err := s.run(ctx, "user", withArgs(forceOpt(force), "-d", name), nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// UsersOptions for p4 users.
type UsersOptions struct {
	Max int
	// All includes service and operator users (-a).
	All bool
}

func (o *UsersOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.All, "-a")
	a.num("-m", o.Max)
	return a
}

// Users lists users, restricted to names (patterns allowed) if given.
func (s *Server) Users(ctx context.Context, names []string, opts *UsersOptions) ([]UserSummary, error) {
	recs, err := s.run(ctx, "users", withArgs(opts, nonEmpty(names)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(st))
	for _, r := range st {
		out = append(out, userSummaryFromRecord(r))
	}
	return out, nil
}

// RenameUser renames a user everywhere on the server.
func (s *Server) RenameUser(ctx context.Context, oldName, newName string) (string, error) {
	if oldName == "" || newName == "" {
		return "", invalidArg("rename needs old and new user names")
	}
	recs, err := s.run(ctx, "renameuser", []string{"--from=" + oldName, "--to=" + newName}, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}
