// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"strconv"
	"time"
)

// Property is a server property, optionally scoped to a user or group.
// Sequence orders several values of one name.
type Property struct {
	Name     string
	Value    string
	Sequence int
	User     string
	Group    string
	Time     time.Time
	Modified string
}

func (p *Property) scopeArgs(a *argList) {
	if p.Sequence > 0 {
		a.add("-s", strconv.Itoa(p.Sequence))
	}
	a.str("-u", p.User)
	a.str("-g", p.Group)
}

// PropertiesOptions for p4 property -l.
type PropertiesOptions struct {
	Name string
	// All lists the values for every user and group (-A).
	All   bool
	User  string
	Group string
	Max   int
}

func (o *PropertiesOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.All, "-A")
	a.str("-n", o.Name)
	a.str("-u", o.User)
	a.str("-g", o.Group)
	a.num("-m", o.Max)
	return a
}

// Properties lists property values (p4 property -l).
func (s *Server) Properties(ctx context.Context, opts *PropertiesOptions) ([]Property, error) {
	if err := s.requireVersion(ctx, VersionProperties, "property"); err != nil {
		return nil, err
	}
	recs, err := s.run(ctx, "property", withArgs(opts, "-l"), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Property, 0, len(st))
	for _, r := range st {
		out = append(out, Property{
			Name:     r["name"],
			Value:    r["value"],
			Sequence: r.Int("sequence"),
			User:     r["user"],
			Group:    r["group"],
			Time:     r.Time("time"),
			Modified: r["modified"],
		})
	}
	return out, nil
}

// SetProperty adds or updates a property (p4 property -a).
func (s *Server) SetProperty(ctx context.Context, p *Property) (string, error) {
	if p == nil || p.Name == "" || p.Value == "" {
		return "", invalidArg("property needs a name and a value")
	}
	if err := s.requireVersion(ctx, VersionProperties, "property"); err != nil {
		return "", err
	}
	a := argList{"-a", "-n", p.Name, "-v", p.Value}
	p.scopeArgs(&a)
	recs, err := s.run(ctx, "property", a, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// DeleteProperty removes the property value matching p's name and
// scope (p4 property -d).
func (s *Server) DeleteProperty(ctx context.Context, p *Property) (string, error) {
	if p == nil || p.Name == "" {
		return "", invalidArg("empty property name")
	}
	if err := s.requireVersion(ctx, VersionProperties, "property"); err != nil {
		return "", err
	}
	a := argList{"-d", "-n", p.Name}
	p.scopeArgs(&a)
	recs, err := s.run(ctx, "property", a, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}
