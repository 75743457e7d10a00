// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"io"
	"sort"
	"strings"
)

// AttributeOptions for p4 attribute.
type AttributeOptions struct {
	// Submitted sets attributes on submitted revisions (-f).
	Submitted bool
	// Propagate carries the attributes to new revisions (-p).
	Propagate bool
	// Hex takes values as hex encoded binary (-e).
	Hex bool
}

func (o *AttributeOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Hex, "-e")
	a.flag(o.Submitted, "-f")
	a.flag(o.Propagate, "-p")
	return a
}

// SetFileAttributes sets attributes on open (or, with Submitted,
// submitted) files. An empty value clears that attribute.
func (s *Server) SetFileAttributes(ctx context.Context, paths []string, attrs map[string]string, opts *AttributeOptions) ([]FileSpec, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("attribute needs a path")
	}
	if len(attrs) == 0 {
		return nil, invalidArg("no attributes")
	}
	names := make([]string, 0, len(attrs))
	for n := range attrs {
		if n == "" {
			return nil, invalidArg("empty attribute name")
		}
		names = append(names, n)
	}
	sort.Strings(names)

	a := argList(opts.Args())
	for _, n := range names {
		a.add("-n", n)
		a.str("-v", attrs[n])
	}
	a.add(paths...)
	recs, err := s.run(ctx, "attribute", a, nil)
	if err != nil {
		return nil, err
	}
	fs, err := fileResults(recs)
	if err != nil {
		return nil, err
	}
	out := fs[:0]
	for _, f := range fs {
		if f.Status == FileValid && f.DepotPath == "" {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// SetFileAttributeFrom sets one attribute to the content of r
// (attribute -i), for values too large for the command line.
func (s *Server) SetFileAttributeFrom(ctx context.Context, paths []string, name string, r io.Reader, opts *AttributeOptions) (string, error) {
	paths = nonEmpty(paths)
	if name == "" {
		return "", invalidArg("empty attribute name")
	}
	if len(paths) == 0 {
		return "", invalidArg("attribute needs a path")
	}
	value, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	raw, err := s.raw()
	if err != nil {
		return "", err
	}
	args := append([]string{"attribute", "-i"}, opts.Args()...)
	args = append(args, "-n", name)
	out, err := raw.RunInput(ctx, append(args, paths...), value)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// FileAttributes returns the attributes of each file by depot path, as
// reported by fstat -Oa.
func (s *Server) FileAttributes(ctx context.Context, paths []string) (map[string]map[string]string, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("fstat needs a path")
	}
	recs, err := s.run(ctx, "fstat", append([]string{"-Oa"}, paths...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := map[string]map[string]string{}
	for _, r := range st {
		p := r["depotFile"]
		if p == "" {
			continue
		}
		attrs := map[string]string{}
		for k, v := range r {
			if strings.HasPrefix(k, "attr-") {
				attrs[strings.TrimPrefix(k, "attr-")] = v
			}
		}
		out[p] = attrs
	}
	return out, nil
}
