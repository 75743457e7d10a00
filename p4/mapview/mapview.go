// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapview translates paths through Perforce views, the
// two-column mappings of client, branch and label specs.
package mapview

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"p4go/p4/internal/specline"
)

// LineType is the kind of a view line.
type LineType int

const (
	Include LineType = iota
	// Exclude lines ("-//depot/x/...") unmap what they match.
	Exclude
	// Overlay lines ("+//depot/x/...") map on top of earlier lines.
	Overlay
)

func (t LineType) prefix() string {
	switch t {
	case Exclude:
		return "-"
	case Overlay:
		return "+"
	}
	return ""
}

// Line is one mapping of a view.
type Line struct {
	Type  LineType
	Left  string
	Right string
}

func quote(p string) string {
	if strings.ContainsAny(p, " \t") {
		return `"` + p + `"`
	}
	return p
}

// String renders the line as it appears in a spec form.
func (l Line) String() string {
	return quote(l.Type.prefix()+l.Left) + " " + quote(l.Right)
}

// ParseLine parses "[-+]left right"; either path may be double
// quoted.
func ParseLine(s string) (Line, error) {
	f, err := specline.Split(s)
	if err != nil {
		return Line{}, fmt.Errorf("view line %q: %v", s, err)
	}
	if len(f) != 2 {
		return Line{}, fmt.Errorf("view line %q: want 2 paths, got %d", s, len(f))
	}
	l := Line{Left: f[0], Right: f[1]}
	switch {
	case strings.HasPrefix(l.Left, "-"):
		l.Type, l.Left = Exclude, l.Left[1:]
	case strings.HasPrefix(l.Left, "+"):
		l.Type, l.Left = Overlay, l.Left[1:]
	}
	if l.Left == "" || l.Right == "" {
		return Line{}, fmt.Errorf("view line %q: empty path", s)
	}
	return l, nil
}

// pattern is one compiled side of a line. keys[i] names the wildcard
// captured by group i+1: "...#n" and "*#n" for the n-th occurrence of
// that wildcard, "%n" for positional ones.
type pattern struct {
	re    *regexp.Regexp
	keys  []string
	parts []string
}

func compile(p string, caseSensitive bool) (*pattern, error) {
	pat := &pattern{}
	var re strings.Builder
	if !caseSensitive {
		re.WriteString("(?i)")
	}
	re.WriteString("^")
	var lit strings.Builder
	flush := func() {
		pat.parts = append(pat.parts, lit.String())
		re.WriteString(regexp.QuoteMeta(lit.String()))
		lit.Reset()
	}
	dots, stars := 0, 0
	seen := map[string]bool{}
	for i := 0; i < len(p); {
		var key, group string
		n := 0
		switch {
		case strings.HasPrefix(p[i:], "..."):
			dots++
			key, group, n = "...#"+strconv.Itoa(dots), "(.*)", 3
		case p[i] == '*':
			stars++
			key, group, n = "*#"+strconv.Itoa(stars), "([^/]*)", 1
		case strings.HasPrefix(p[i:], "%%") && i+2 < len(p) && p[i+2] >= '0' && p[i+2] <= '9':
			key, group, n = "%"+p[i+2:i+3], "([^/]*)", 3
		default:
			lit.WriteByte(p[i])
			i++
			continue
		}
		if seen[key] {
			return nil, fmt.Errorf("path %q: wildcard %s used twice", p, key)
		}
		seen[key] = true
		flush()
		re.WriteString(group)
		pat.keys = append(pat.keys, key)
		i += n
	}
	flush()
	re.WriteString("$")
	r, err := regexp.Compile(re.String())
	if err != nil {
		return nil, err
	}
	pat.re = r
	return pat, nil
}

// expand fills the wildcards of p from the captured values.
func (p *pattern) expand(vals map[string]string) string {
	var b strings.Builder
	for i, part := range p.parts {
		b.WriteString(part)
		if i < len(p.keys) {
			b.WriteString(vals[p.keys[i]])
		}
	}
	return b.String()
}

func (p *pattern) match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	vals := make(map[string]string, len(p.keys))
	for i, k := range p.keys {
		vals[k] = m[i+1]
	}
	return vals, true
}

type entry struct {
	line        Line
	left, right *pattern
}

// View is an ordered list of mappings. Later lines take precedence
// over earlier ones.
type View struct {
	entries       []entry
	caseSensitive bool
}

// New compiles lines into a View.
func New(lines []Line, caseSensitive bool) (*View, error) {
	v := &View{caseSensitive: caseSensitive}
	for _, l := range lines {
		left, err := compile(l.Left, caseSensitive)
		if err != nil {
			return nil, err
		}
		right, err := compile(l.Right, caseSensitive)
		if err != nil {
			return nil, err
		}
		if !sameKeys(left.keys, right.keys) {
			return nil, fmt.Errorf("view line %q: wildcards do not match", l.String())
		}
		v.entries = append(v.entries, entry{line: l, left: left, right: right})
	}
	return v, nil
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, k := range a {
		set[k] = true
	}
	for _, k := range b {
		if !set[k] {
			return false
		}
	}
	return true
}

// Parse parses view lines as found in the View0..N fields of a spec.
func Parse(lines []string, caseSensitive bool) (*View, error) {
	var ls []Line
	for _, s := range lines {
		if strings.TrimSpace(s) == "" {
			continue
		}
		l, err := ParseLine(s)
		if err != nil {
			return nil, err
		}
		ls = append(ls, l)
	}
	return New(ls, caseSensitive)
}

// Lines returns the mappings in order.
func (v *View) Lines() []Line {
	out := make([]Line, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.line
	}
	return out
}

// Translate maps a left-side path to the right side. The last line
// matching path decides; if it is an exclusion, path is unmapped.
func (v *View) Translate(path string) (string, bool) {
	for i := len(v.entries) - 1; i >= 0; i-- {
		e := v.entries[i]
		vals, ok := e.left.match(path)
		if !ok {
			continue
		}
		if e.line.Type == Exclude {
			return "", false
		}
		return e.right.expand(vals), true
	}
	return "", false
}

// Includes reports whether path is mapped by the view.
func (v *View) Includes(path string) bool {
	_, ok := v.Translate(path)
	return ok
}

// Reverse returns the view with both sides swapped, so Translate
// maps right-side paths back to the left.
func (v *View) Reverse() *View {
	r := &View{caseSensitive: v.caseSensitive, entries: make([]entry, len(v.entries))}
	for i, e := range v.entries {
		r.entries[i] = entry{
			line:  Line{Type: e.line.Type, Left: e.line.Right, Right: e.line.Left},
			left:  e.right,
			right: e.left,
		}
	}
	return r
}
