// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"time"

	"p4go/p4/mapview"
)

// BranchSummary is a branch spec as listed by p4 branches.
type BranchSummary struct {
	Name        string
	Owner       string
	Description string
	Options     string
	Updated     time.Time
	Accessed    time.Time
}

// Branch is the branch spec form.
type Branch struct {
	BranchSummary
	View []string
}

func branchSummaryFromRecord(r Record, nameKey string) BranchSummary {
	return BranchSummary{
		Name:        r[nameKey],
		Owner:       r["Owner"],
		Description: r["Description"],
		Options:     r["Options"],
		Updated:     r.Time("Update"),
		Accessed:    r.Time("Access"),
	}
}

func (b *Branch) toSpec() map[string]string {
	m := map[string]string{
		"Branch":      b.Name,
		"Description": b.Description,
	}
	if b.Owner != "" {
		m["Owner"] = b.Owner
	}
	if b.Options != "" {
		m["Options"] = b.Options
	}
	putList(m, "View", b.View)
	return m
}

// Mapping compiles the branch view from source to target paths.
func (b *Branch) Mapping(caseSensitive bool) (*mapview.View, error) {
	return mapview.Parse(b.View, caseSensitive)
}

// Branch returns the named branch spec, or nil if it does not exist.
func (s *Server) Branch(ctx context.Context, name string) (*Branch, error) {
	if name == "" {
		return nil, invalidArg("empty branch name")
	}
	recs, err := s.run(ctx, "branch", []string{"-o", name}, nil)
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
	return &Branch{
		BranchSummary: branchSummaryFromRecord(r, "Branch"),
		View:          r.List("View"),
	}, nil
}

func (s *Server) CreateBranch(ctx context.Context, b *Branch) (string, error) {
	return s.UpdateBranch(ctx, b)
}

func (s *Server) UpdateBranch(ctx context.Context, b *Branch) (string, error) {
	if b == nil || b.Name == "" {
		return "", invalidArg("branch needs a name")
	}
	recs, err := s.run(ctx, "branch", []string{"-i"}, b.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteBranch(ctx context.Context, name string, force bool) (string, error) {
	if name == "" {
		return "", invalidArg("empty branch name")
	}
	recs, err := s.run(ctx, "branch", withArgs(forceOpt(force), "-d", name), nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// BranchesOptions for p4 branches.
type BranchesOptions struct {
	Max             int
	User            string
	Filter          string
	CaseInsensitive bool
}

func (o *BranchesOptions) Args() []string {
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
	return a
}

func (s *Server) Branches(ctx context.Context, opts *BranchesOptions) ([]BranchSummary, error) {
	recs, err := s.run(ctx, "branches", withArgs(opts), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]BranchSummary, 0, len(st))
	for _, r := range st {
		out = append(out, branchSummaryFromRecord(r, "branch"))
	}
	return out, nil
}
