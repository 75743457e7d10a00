// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
)

// Counter is a named server value, as counters and keys both return.
type Counter struct {
	Name  string
	Value string
}

// CounterOptions for p4 counter.
type CounterOptions struct {
	// Force allows setting the protected counters p4 itself uses (-f).
	Force bool
}

func (o *CounterOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Force, "-f")
	return a
}

// Counter returns the value of a counter; unset counters read "0".
func (s *Server) Counter(ctx context.Context, name string) (string, error) {
	return s.counterValue(ctx, "counter", "value", name)
}

// SetCounter sets a counter and returns the value stored.
func (s *Server) SetCounter(ctx context.Context, name, value string, opts *CounterOptions) (string, error) {
	if name == "" {
		return "", invalidArg("empty counter name")
	}
	recs, err := s.run(ctx, "counter", withArgs(opts, name, value), nil)
	if err != nil {
		return "", err
	}
	return settledValue(recs, value)
}

func (s *Server) DeleteCounter(ctx context.Context, name string, opts *CounterOptions) (string, error) {
	if name == "" {
		return "", invalidArg("empty counter name")
	}
	recs, err := s.run(ctx, "counter", withArgs(opts, "-d", name), nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// CountersOptions for p4 counters and p4 keys.
type CountersOptions struct {
	// Pattern filters names (-e).
	Pattern string
	Max     int
}

func (o *CountersOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.str("-e", o.Pattern)
	a.num("-m", o.Max)
	return a
}

func (s *Server) Counters(ctx context.Context, opts *CountersOptions) ([]Counter, error) {
	return s.counterList(ctx, "counters", "counter", opts)
}

// Key returns the value of a key; unset keys read "0".
func (s *Server) Key(ctx context.Context, name string) (string, error) {
	if err := s.requireVersion(ctx, VersionKeys, "keys"); err != nil {
		return "", err
	}
	return s.counterValue(ctx, "key", "value", name)
}

func (s *Server) SetKey(ctx context.Context, name, value string) (string, error) {
	if name == "" {
		return "", invalidArg("empty key name")
	}
	if err := s.requireVersion(ctx, VersionKeys, "keys"); err != nil {
		return "", err
	}
	recs, err := s.run(ctx, "key", []string{name, value}, nil)
	if err != nil {
		return "", err
	}
	return settledValue(recs, value)
}

func (s *Server) DeleteKey(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", invalidArg("empty key name")
	}
	if err := s.requireVersion(ctx, VersionKeys, "keys"); err != nil {
		return "", err
	}
	recs, err := s.run(ctx, "key", []string{"-d", name}, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) Keys(ctx context.Context, opts *CountersOptions) ([]Counter, error) {
	if err := s.requireVersion(ctx, VersionKeys, "keys"); err != nil {
		return nil, err
	}
	return s.counterList(ctx, "keys", "key", opts)
}

func (s *Server) counterValue(ctx context.Context, cmd, field, name string) (string, error) {
	if name == "" {
		return "", invalidArg("empty %s name", cmd)
	}
	recs, err := s.run(ctx, cmd, []string{name}, nil)
	if err != nil {
		return "", err
	}
	r, err := firstStat(recs)
	if err != nil {
		return "", err
	}
	return r[field], nil
}

// settledValue reads back the value a set command reports, falling
// back to what was sent for servers that only print an info line.
func settledValue(recs []Record, sent string) (string, error) {
	st, err := stats(recs)
	if err != nil {
		return "", err
	}
	if len(st) > 0 {
		if v, ok := st[0]["value"]; ok {
			return v, nil
		}
	}
	return sent, nil
}

func (s *Server) counterList(ctx context.Context, cmd, nameKey string, opts *CountersOptions) ([]Counter, error) {
	recs, err := s.run(ctx, cmd, withArgs(opts), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Counter, 0, len(st))
	for _, r := range st {
		out = append(out, Counter{Name: r[nameKey], Value: r["value"]})
	}
	return out, nil
}
