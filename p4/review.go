// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"strconv"
)

// Reviewer is a user subscribed to review files.
type Reviewer struct {
	User     string
	Email    string
	FullName string
}

// Reviews lists the users reviewing change (when > 0) or paths.
func (s *Server) Reviews(ctx context.Context, change int, paths []string) ([]Reviewer, error) {
	var args []string
	if change > 0 {
		args = append(args, "-c", strconv.Itoa(change))
	}
	recs, err := s.run(ctx, "reviews", append(args, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Reviewer, 0, len(st))
	for _, r := range st {
		out = append(out, Reviewer{User: r["user"], Email: r["email"], FullName: r["name"]})
	}
	return out, nil
}

// ReviewChange is a change not yet reviewed according to a counter.
type ReviewChange struct {
	Change int
	Reviewer
}

// ReviewChangelists lists changes above the review counter (review -t).
func (s *Server) ReviewChangelists(ctx context.Context, counter string) ([]ReviewChange, error) {
	if counter == "" {
		return nil, invalidArg("empty review counter")
	}
	recs, err := s.run(ctx, "review", []string{"-t", counter}, nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]ReviewChange, 0, len(st))
	for _, r := range st {
		out = append(out, ReviewChange{
			Change:   r.Int("change"),
			Reviewer: Reviewer{User: r["user"], Email: r["email"], FullName: r["name"]},
		})
	}
	return out, nil
}

// InterchangesOptions for p4 interchanges.
type InterchangesOptions struct {
	// Branch uses a branch spec instead of from/to paths (-b).
	Branch string
	// Long includes full descriptions (-l).
	Long bool
	// ShowFiles lists the files of each change (-f).
	ShowFiles bool
	// Reverse integrates target to source with a branch spec (-r).
	Reverse bool
}

func (o *InterchangesOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.ShowFiles, "-f")
	a.flag(o.Long, "-l")
	a.flag(o.Reverse, "-r")
	a.str("-b", o.Branch)
	return a
}

// Interchange is a change not yet integrated from source to target.
type Interchange struct {
	Change
	Files []FileSpec
}

// Interchanges lists changes in from that have not been integrated
// into to. With a branch spec, from and to may be empty or restrict
// the target paths.
func (s *Server) Interchanges(ctx context.Context, from, to string, opts *InterchangesOptions) ([]Interchange, error) {
	if (opts == nil || opts.Branch == "") && (from == "" || to == "") {
		return nil, invalidArg("interchanges needs source and target")
	}
	var pos []string
	for _, p := range []string{from, to} {
		if p != "" {
			pos = append(pos, p)
		}
	}
	recs, err := s.run(ctx, "interchanges", withArgs(opts, pos...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Interchange, 0, len(st))
	for _, r := range st {
		c := changeFromRecord(r)
		out = append(out, Interchange{Change: c, Files: indexedFiles(r, c.Change)})
	}
	return out, nil
}
