// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"time"
)

// LabelSummary is a label as listed by p4 labels.
type LabelSummary struct {
	Name        string
	Owner       string
	Description string
	Options     string
	Revision    string
	ServerID    string
	Updated     time.Time
	Accessed    time.Time
}

// Label is the label spec form.
type Label struct {
	LabelSummary
	View []string
}

func labelSummaryFromRecord(r Record, nameKey string) LabelSummary {
	return LabelSummary{
		Name:        r[nameKey],
		Owner:       r["Owner"],
		Description: r["Description"],
		Options:     r["Options"],
		Revision:    r["Revision"],
		ServerID:    r["ServerID"],
		Updated:     r.Time("Update"),
		Accessed:    r.Time("Access"),
	}
}

func (l *Label) toSpec() map[string]string {
	m := map[string]string{
		"Label":       l.Name,
		"Description": l.Description,
	}
	if l.Owner != "" {
		m["Owner"] = l.Owner
	}
	if l.Options != "" {
		m["Options"] = l.Options
	}
	if l.Revision != "" {
		m["Revision"] = l.Revision
	}
	if l.ServerID != "" {
		m["ServerID"] = l.ServerID
	}
	putList(m, "View", l.View)
	return m
}

// Label returns the named label, or nil if it does not exist.
func (s *Server) Label(ctx context.Context, name string) (*Label, error) {
	if name == "" {
		return nil, invalidArg("empty label name")
	}
	recs, err := s.run(ctx, "label", []string{"-o", name}, nil)
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
	return &Label{
		LabelSummary: labelSummaryFromRecord(r, "Label"),
		View:         r.List("View"),
	}, nil
}

func (s *Server) CreateLabel(ctx context.Context, l *Label) (string, error) {
	return s.UpdateLabel(ctx, l)
}

func (s *Server) UpdateLabel(ctx context.Context, l *Label) (string, error) {
	if l == nil || l.Name == "" {
		return "", invalidArg("label needs a name")
	}
	recs, err := s.run(ctx, "label", []string{"-i"}, l.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteLabel(ctx context.Context, name string, force bool) (string, error) {
	if name == "" {
		return "", invalidArg("empty label name")
	}
	recs, err := s.run(ctx, "label", withArgs(forceOpt(force), "-d", name), nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// LabelsOptions for p4 labels.
type LabelsOptions struct {
	Max             int
	User            string
	Filter          string
	CaseInsensitive bool
	Unloaded        bool
}

func (o *LabelsOptions) Args() []string {
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
	a.flag(o.Unloaded, "-U")
	return a
}

// Labels lists labels, restricted to those containing paths if given.
func (s *Server) Labels(ctx context.Context, paths []string, opts *LabelsOptions) ([]LabelSummary, error) {
	recs, err := s.run(ctx, "labels", withArgs(opts, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]LabelSummary, 0, len(st))
	for _, r := range st {
		out = append(out, labelSummaryFromRecord(r, "label"))
	}
	return out, nil
}

// TagOptions for p4 tag.
type TagOptions struct {
	// ListOnly previews the result (-n).
	ListOnly bool
	// Delete removes the files from the label (-d).
	Delete bool
}

func (o *TagOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Delete, "-d")
	a.flag(o.ListOnly, "-n")
	return a
}

// TagFiles adds (or removes) the revisions named by paths to label.
func (s *Server) TagFiles(ctx context.Context, paths []string, label string, opts *TagOptions) ([]FileSpec, error) {
	if label == "" {
		return nil, invalidArg("empty label name")
	}
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("no files to tag")
	}
	args := append(withArgs(opts, "-l", label), paths...)
	recs, err := s.run(ctx, "tag", args, nil)
	if err != nil {
		return nil, err
	}
	return fileResults(recs)
}
