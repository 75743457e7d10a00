// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"bytes"
	"context"
	"strconv"

	difflib "github.com/ianbruene/go-difflib/difflib"
	"golang.org/x/sync/errgroup"
)

// DiffContext is the number of context lines of DiffRevisions.
const DiffContext = 3

// DiffRevisions prints two file revisions (e.g. "//a/b#3" and
// "//a/b@1234") and returns a unified diff labelled with those specs.
// Identical content yields an empty string.
func (s *Server) DiffRevisions(ctx context.Context, a, b string) (string, error) {
	if a == "" || b == "" {
		return "", invalidArg("diff needs two revisions")
	}
	var ca, cb []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ca, err = s.Print(gctx, a)
		return err
	})
	g.Go(func() (err error) {
		cb, err = s.Print(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	return UnifiedDiff(ca, cb, a, b), nil
}

// UnifiedDiff renders a unified diff of two contents.
func UnifiedDiff(a, b []byte, fromName, toName string) string {
	if bytes.Equal(a, b) {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.LineDiffParams{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  DiffContext,
	})
	if err != nil {
		log.WithError(err).Warn("rendering diff")
	}
	return text
}

// Diff2Options for p4 diff2.
type Diff2Options struct {
	// Branch compares the two sides of a branch view (-b).
	Branch string
	// Stream compares a stream with its parent (-S).
	Stream string
	// Format holds the -d letters, e.g. "u" for unified diffs or "s"
	// for a summary. Without it only the file status is returned.
	Format string
	// DifferentOnly hides files whose content and type match (-q).
	DifferentOnly bool
	// Text diffs binary files as text (-t).
	Text bool
}

func (o *Diff2Options) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.joined("-d", o.Format)
	a.flag(o.DifferentOnly, "-q")
	a.flag(o.Text, "-t")
	a.str("-b", o.Branch)
	a.str("-S", o.Stream)
	return a
}

// Diff2 status values.
const (
	DiffIdentical = "identical"
	DiffContent   = "content"
	DiffTypes     = "types"
	DiffLeftOnly  = "left only"
	DiffRightOnly = "right only"
)

// FileDiff is one file pair compared by the server. Diff holds the
// diff text when a Format was requested.
type FileDiff struct {
	Status string
	Left   FileSpec
	Right  FileSpec
	Diff   string
}

// FileDiffs compares two file sets on the server (p4 diff2). With a
// Branch or Stream option either side may be empty.
func (s *Server) FileDiffs(ctx context.Context, left, right string, opts *Diff2Options) ([]FileDiff, error) {
	viewed := opts != nil && (opts.Branch != "" || opts.Stream != "")
	if !viewed && (left == "" || right == "") {
		return nil, invalidArg("diff2 needs two paths or a branch")
	}
	recs, err := s.run(ctx, "diff2", withArgs(opts, nonEmpty([]string{left, right})...), nil)
	if err != nil {
		return nil, err
	}
	var out []FileDiff
	for _, r := range recs {
		switch r.Code() {
		case CodeStat:
			out = append(out, FileDiff{Status: r["status"], Left: fileSpecAt(r, ""), Right: fileSpecAt(r, "2")})
		case CodeText:
			if n := len(out); n > 0 {
				out[n-1].Diff += r["data"]
			}
		case CodeInfo, CodeError:
			fs, err := fileMessage(r)
			if err != nil {
				return nil, err
			}
			out = append(out, FileDiff{Left: fs})
		}
	}
	return out, nil
}

// ChangelistDiffOptions for ChangelistDiffs.
type ChangelistDiffOptions struct {
	// Format holds the -d letters; the default is "u".
	Format string
	// Shelved diffs the shelved files of a pending change (-S).
	Shelved bool
}

// ChangelistDiffs returns the description of change id followed by the
// diffs of its files, as p4 describe prints them.
func (s *Server) ChangelistDiffs(ctx context.Context, id int, opts *ChangelistDiffOptions) (string, error) {
	if id <= 0 {
		return "", invalidArg("bad change %d", id)
	}
	format := "u"
	if opts != nil && opts.Format != "" {
		format = opts.Format
	}
	args := []string{"describe", "-d" + format}
	if opts != nil && opts.Shelved {
		if err := s.requireVersion(ctx, VersionShelvedDescribe, "describe -S"); err != nil {
			return "", err
		}
		args = append(args, "-S")
	}
	r, err := s.raw()
	if err != nil {
		return "", err
	}
	out, err := r.RunInput(ctx, append(args, strconv.Itoa(id)), nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
