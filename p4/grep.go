// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
)

// GrepOptions for p4 grep.
type GrepOptions struct {
	// AllRevisions searches every revision, not only the head (-a).
	AllRevisions bool
	IgnoreCase   bool
	// Invert returns the lines that do not match (-v).
	Invert bool
	// Fixed treats the pattern as a plain string (-F).
	Fixed bool
	// Before and After add context lines (-B, -A).
	Before int
	After  int
}

func (o *GrepOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.AllRevisions, "-a")
	a.flag(o.IgnoreCase, "-i")
	a.flag(o.Invert, "-v")
	a.flag(o.Fixed, "-F")
	a.num("-B", o.Before)
	a.num("-A", o.After)
	return a
}

// Grep line types.
const (
	LineMatch  = "match"
	LineBefore = "before"
	LineAfter  = "after"
)

// MatchingLine is a line found by p4 grep, or a context line around
// it.
type MatchingLine struct {
	DepotPath  string
	Revision   int
	LineNumber int
	Text       string
	Type       string
}

// Grep searches file contents for pattern. Line numbers are always
// requested. Per-file warnings (such as over-long lines) are logged
// and skipped.
func (s *Server) Grep(ctx context.Context, paths []string, pattern string, opts *GrepOptions) ([]MatchingLine, error) {
	paths = nonEmpty(paths)
	if pattern == "" {
		return nil, invalidArg("empty grep pattern")
	}
	if len(paths) == 0 {
		return nil, invalidArg("grep needs a path")
	}
	a := argList(opts.Args())
	a.add("-n", "-e", pattern)
	a.add(paths...)
	recs, err := s.run(ctx, "grep", a, nil)
	if err != nil {
		return nil, err
	}
	if err := CheckErrors(recs); err != nil {
		return nil, err
	}
	var out []MatchingLine
	for _, r := range recs {
		switch {
		case r.Code() == CodeStat:
			t := r["type"]
			if t == "" {
				t = LineMatch
			}
			out = append(out, MatchingLine{
				DepotPath:  r["depotFile"],
				Revision:   r.Int("rev"),
				LineNumber: r.Int("line"),
				Text:       r["matchedLine"],
				Type:       t,
			})
		case r.IsWarning():
			log.WithField("pattern", pattern).Warn(r.Message())
		}
	}
	return out, nil
}
