// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"strconv"
)

// AnnotateOptions for p4 annotate.
type AnnotateOptions struct {
	// All includes deleted lines (-a).
	All bool
	// Changes reports change numbers instead of revisions (-c).
	Changes bool
	// FollowBranches follows branch actions (-i); FollowIntegrations
	// follows all integrations (-I).
	FollowBranches     bool
	FollowIntegrations bool
	// Whitespace is the -d flag letter: "b", "w" or "l".
	Whitespace string
	// Text annotates binary files as text (-t).
	Text bool
}

func (o *AnnotateOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.All, "-a")
	a.flag(o.Changes, "-c")
	a.flag(o.FollowBranches, "-i")
	a.flag(o.FollowIntegrations, "-I")
	a.joined("-d", o.Whitespace)
	a.flag(o.Text, "-t")
	return a
}

// AnnotationSource is a revision range an integrated line came from.
type AnnotationSource struct {
	DepotPath string
	Lower     int
	Upper     int
}

// AnnotatedLine is one line of a file with the revisions (or changes,
// with Changes set) in which it first and last appeared.
type AnnotatedLine struct {
	Lower   int
	Upper   int
	Text    string
	Sources []AnnotationSource
}

// AnnotatedFile is the header revision of an annotated file followed by
// its lines. Files that could not be annotated carry a non-valid
// Status and no lines.
type AnnotatedFile struct {
	FileSpec
	Lines []AnnotatedLine
}

func annotatedLine(r Record) AnnotatedLine {
	l := AnnotatedLine{Lower: r.Int("lower"), Upper: r.Int("upper"), Text: r["data"]}
	for i := 0; ; i++ {
		idx := strconv.Itoa(i)
		p, ok := r["depotFile"+idx]
		if !ok {
			return l
		}
		l.Sources = append(l.Sources, AnnotationSource{
			DepotPath: p,
			Lower:     r.Int("lower" + idx),
			Upper:     r.Int("upper" + idx),
		})
	}
}

// Annotate returns the line history of each file.
func (s *Server) Annotate(ctx context.Context, paths []string, opts *AnnotateOptions) ([]AnnotatedFile, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("annotate needs a path")
	}
	recs, err := s.run(ctx, "annotate", withArgs(opts, paths...), nil)
	if err != nil {
		return nil, err
	}
	var out []AnnotatedFile
	for _, r := range recs {
		switch r.Code() {
		case CodeStat:
			if _, ok := r["depotFile"]; ok {
				out = append(out, AnnotatedFile{FileSpec: fileSpecAt(r, "")})
				continue
			}
			if len(out) == 0 {
				out = append(out, AnnotatedFile{})
			}
			f := &out[len(out)-1]
			f.Lines = append(f.Lines, annotatedLine(r))
		case CodeInfo, CodeError:
			fs, err := fileMessage(r)
			if err != nil {
				return nil, err
			}
			out = append(out, AnnotatedFile{FileSpec: fs})
		}
	}
	return out, nil
}
