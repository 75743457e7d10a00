// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"fmt"
	"strings"

	"p4go/p4/internal/specline"
)

// TriggerEntry is one line of the triggers table.
type TriggerEntry struct {
	Order   int
	Name    string
	Type    string
	Path    string
	Command string
}

// String renders the entry the way p4 triggers -o writes it; the
// command is always double quoted.
func (t TriggerEntry) String() string {
	path := t.Path
	if strings.ContainsAny(path, " \t") {
		path = `"` + path + `"`
	}
	return fmt.Sprintf("%s %s %s \"%s\"", t.Name, t.Type, path, t.Command)
}

// ParseTriggerLine parses "name type path command".
func ParseTriggerLine(line string) (TriggerEntry, error) {
	p, err := specline.Split(line)
	if err != nil {
		return TriggerEntry{}, invalidArg("trigger line %q: %v", line, err)
	}
	if len(p) < 4 {
		return TriggerEntry{}, invalidArg("trigger line %q: want 4 fields, got %d", line, len(p))
	}
	return TriggerEntry{
		Name:    p[0],
		Type:    p[1],
		Path:    p[2],
		Command: strings.Join(p[3:], " "),
	}, nil
}

// TriggerEntries returns the triggers table in order.
func (s *Server) TriggerEntries(ctx context.Context) ([]TriggerEntry, error) {
	recs, err := s.run(ctx, "triggers", []string{"-o"}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	var out []TriggerEntry
	for i, l := range r.List("Triggers") {
		t, err := ParseTriggerLine(l)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		t.Order = i
		out = append(out, t)
	}
	return out, nil
}

// UpdateTriggerEntries replaces the triggers table. An empty list
// removes all triggers.
func (s *Server) UpdateTriggerEntries(ctx context.Context, entries []TriggerEntry) (string, error) {
	lines := make([]string, len(entries))
	for i, t := range entries {
		if t.Name == "" || t.Type == "" || t.Path == "" {
			return "", invalidArg("trigger %d is incomplete", i)
		}
		lines[i] = t.String()
	}
	spec := map[string]string{}
	putList(spec, "Triggers", lines)
	recs, err := s.run(ctx, "triggers", []string{"-i"}, spec)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}
