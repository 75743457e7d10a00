// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"time"
)

// Stream types.
const (
	StreamMainline = "mainline"
	StreamRelease  = "release"
	StreamDevelop  = "development"
	StreamVirtual  = "virtual"
	StreamTask     = "task"
)

// StreamSummary is a stream as listed by p4 streams.
type StreamSummary struct {
	Stream      string
	Name        string
	Owner       string
	Parent      string
	Type        string
	Description string
	Options     string
	Updated     time.Time
	Accessed    time.Time

	FirmerThanParent      bool
	ChangeFlowsToParent   bool
	ChangeFlowsFromParent bool
	BaseParent            string
}

// Stream is the stream spec form.
type Stream struct {
	StreamSummary
	ParentView string
	Paths      []string
	Remapped   []string
	Ignored    []string
}

func streamSummaryFromRecord(r Record) StreamSummary {
	desc := r["Description"]
	if desc == "" {
		desc = r["desc"]
	}
	return StreamSummary{
		Stream:                r["Stream"],
		Name:                  r["Name"],
		Owner:                 r["Owner"],
		Parent:                r["Parent"],
		Type:                  r["Type"],
		Description:           desc,
		Options:               r["Options"],
		Updated:               r.Time("Update"),
		Accessed:              r.Time("Access"),
		FirmerThanParent:      r.Bool("firmerThanParent"),
		ChangeFlowsToParent:   r.Bool("changeFlowsToParent"),
		ChangeFlowsFromParent: r.Bool("changeFlowsFromParent"),
		BaseParent:            r["baseParent"],
	}
}

func (st *Stream) toSpec() map[string]string {
	m := map[string]string{
		"Stream":      st.Stream,
		"Description": st.Description,
	}
	opt := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	opt("Name", st.Name)
	opt("Owner", st.Owner)
	opt("Type", st.Type)
	opt("Options", st.Options)
	opt("ParentView", st.ParentView)
	if st.Parent == "" {
		m["Parent"] = "none"
	} else {
		m["Parent"] = st.Parent
	}
	putList(m, "Paths", st.Paths)
	putList(m, "Remapped", st.Remapped)
	putList(m, "Ignored", st.Ignored)
	return m
}

// Stream returns the stream at path, or nil if it does not exist.
func (s *Server) Stream(ctx context.Context, path string) (*Stream, error) {
	if path == "" {
		return nil, invalidArg("empty stream path")
	}
	if err := s.requireVersion(ctx, VersionStreams, "streams"); err != nil {
		return nil, err
	}
	recs, err := s.run(ctx, "stream", []string{"-o", path}, nil)
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
	return &Stream{
		StreamSummary: streamSummaryFromRecord(r),
		ParentView:    r["ParentView"],
		Paths:         r.List("Paths"),
		Remapped:      r.List("Remapped"),
		Ignored:       r.List("Ignored"),
	}, nil
}

func (s *Server) CreateStream(ctx context.Context, st *Stream) (string, error) {
	return s.UpdateStream(ctx, st, false)
}

// UpdateStream saves a stream; force edits a locked stream.
func (s *Server) UpdateStream(ctx context.Context, st *Stream, force bool) (string, error) {
	if st == nil || st.Stream == "" {
		return "", invalidArg("stream needs a path")
	}
	if err := s.requireVersion(ctx, VersionStreams, "streams"); err != nil {
		return "", err
	}
	recs, err := s.run(ctx, "stream", withArgs(forceOpt(force), "-i"), st.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteStream(ctx context.Context, path string, force bool) (string, error) {
	if path == "" {
		return "", invalidArg("empty stream path")
	}
	if err := s.requireVersion(ctx, VersionStreams, "streams"); err != nil {
		return "", err
	}
	recs, err := s.run(ctx, "stream", withArgs(forceOpt(force), "-d", path), nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// StreamsOptions for p4 streams.
type StreamsOptions struct {
	Max int
	// Filter is a filter expression (-F).
	Filter string
	// Fields limits the returned fields (-T).
	Fields string
	// Unloaded lists unloaded task streams (-U).
	Unloaded bool
}

func (o *StreamsOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Unloaded, "-U")
	a.str("-F", o.Filter)
	a.str("-T", o.Fields)
	a.num("-m", o.Max)
	return a
}

// Streams lists streams matching paths (all streams when empty).
func (s *Server) Streams(ctx context.Context, paths []string, opts *StreamsOptions) ([]StreamSummary, error) {
	if err := s.requireVersion(ctx, VersionStreams, "streams"); err != nil {
		return nil, err
	}
	recs, err := s.run(ctx, "streams", withArgs(opts, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]StreamSummary, 0, len(st))
	for _, r := range st {
		out = append(out, streamSummaryFromRecord(r))
	}
	return out, nil
}

// IntegrationStatusOptions for p4 istat.
type IntegrationStatusOptions struct {
	// BothDirections checks integrations to and from the parent (-a).
	BothDirections bool
	// FromParent checks integrations from the parent only (-r).
	FromParent bool
	// Refresh skips the server's cached answer (-c).
	Refresh bool
}

func (o *IntegrationStatusOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.BothDirections, "-a")
	a.flag(o.FromParent, "-r")
	a.flag(o.Refresh, "-c")
	a.add("-s")
	return a
}

// StreamIntegrationStatus is whether a stream has changes to copy to
// or merge from its parent.
type StreamIntegrationStatus struct {
	Stream                string
	Parent                string
	Type                  string
	FirmerThanParent      bool
	ChangeFlowsToParent   bool
	ChangeFlowsFromParent bool
	IntegToParent         bool
	IntegToParentHow      string
	ToResult              string
	IntegFromParent       bool
	IntegFromParentHow    string
	FromResult            string
}

// IntegrationStatus runs p4 istat -s on stream.
func (s *Server) IntegrationStatus(ctx context.Context, stream string, opts *IntegrationStatusOptions) (*StreamIntegrationStatus, error) {
	if stream == "" {
		return nil, invalidArg("empty stream")
	}
	if err := s.requireVersion(ctx, VersionStreams, "istat"); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &IntegrationStatusOptions{}
	}
	recs, err := s.run(ctx, "istat", withArgs(opts, stream), nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	return &StreamIntegrationStatus{
		Stream:                r["stream"],
		Parent:                r["parent"],
		Type:                  r["type"],
		FirmerThanParent:      r.Bool("firmerThanParent"),
		ChangeFlowsToParent:   r.Bool("changeFlowsToParent"),
		ChangeFlowsFromParent: r.Bool("changeFlowsFromParent"),
		IntegToParent:         r.Bool("integToParent"),
		IntegToParentHow:      r["integToParentHow"],
		ToResult:              r["toResult"],
		IntegFromParent:       r.Bool("integFromParent"),
		IntegFromParentHow:    r["integFromParentHow"],
		FromResult:            r["fromResult"],
	}, nil
}
