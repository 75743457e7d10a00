// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"time"
)

// Depot types.
const (
	DepotLocal   = "local"
	DepotRemote  = "remote"
	DepotSpec    = "spec"
	DepotStream  = "stream"
	DepotArchive = "archive"
	DepotUnload  = "unload"
)

// Depot is a depot spec.
type Depot struct {
	Name        string
	Owner       string
	Date        time.Time
	Description string
	Type        string
	Address     string
	Suffix      string
	StreamDepth string
	Map         string
	SpecMap     []string
}

func (d *Depot) toSpec() map[string]string {
	m := map[string]string{
		"Depot":       d.Name,
		"Description": d.Description,
		"Type":        d.Type,
		"Map":         d.Map,
	}
	opt := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	opt("Owner", d.Owner)
	opt("Address", d.Address)
	opt("Suffix", d.Suffix)
	opt("StreamDepth", d.StreamDepth)
	if m["Type"] == "" {
		m["Type"] = DepotLocal
	}
	if m["Map"] == "" {
		m["Map"] = d.Name + "/..."
	}
	putList(m, "SpecMap", d.SpecMap)
	return m
}

// Depot returns the named depot spec.
func (s *Server) Depot(ctx context.Context, name string) (*Depot, error) {
	if name == "" {
		return nil, invalidArg("empty depot name")
	}
	recs, err := s.run(ctx, "depot", []string{"-o", name}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	return &Depot{
		Name:        r["Depot"],
		Owner:       r["Owner"],
		Date:        r.Time("Date"),
		Description: r["Description"],
		Type:        r["Type"],
		Address:     r["Address"],
		Suffix:      r["Suffix"],
		StreamDepth: r["StreamDepth"],
		Map:         r["Map"],
		SpecMap:     r.List("SpecMap"),
	}, nil
}

func (s *Server) CreateDepot(ctx context.Context, d *Depot) (string, error) {
	if d == nil || d.Name == "" {
		return "", invalidArg("depot needs a name")
	}
	recs, err := s.run(ctx, "depot", []string{"-i"}, d.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteDepot(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", invalidArg("empty depot name")
	}
	recs, err := s.run(ctx, "depot", []string{"-d", name}, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// Depots lists all depots.
func (s *Server) Depots(ctx context.Context) ([]Depot, error) {
	recs, err := s.run(ctx, "depots", nil, nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Depot, 0, len(st))
	for _, r := range st {
		out = append(out, Depot{
			Name:        r["name"],
			Date:        r.Time("time"),
			Type:        r["type"],
			Map:         r["map"],
			Description: r["desc"],
			Address:     r["extra"],
			StreamDepth: r["depth"],
		})
	}
	return out, nil
}
