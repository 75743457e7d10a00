// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
)

// ServerProcess is a command running on the server, from p4 monitor
// show. Time is the elapsed time as the server prints it (HH:MM:SS).
type ServerProcess struct {
	ID      int
	Status  string
	Owner   string
	Command string
	Args    string
	Time    string
	Client  string
	Host    string
	Program string
}

// MonitorOptions for p4 monitor show.
type MonitorOptions struct {
	// All includes idle and background processes (-a).
	All bool
	// Long adds the command arguments (-l).
	Long bool
	// Extended adds client, host and program (-e).
	Extended bool
}

func (o *MonitorOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.All, "-a")
	a.flag(o.Extended, "-e")
	a.flag(o.Long, "-l")
	return a
}

// ServerProcesses lists the commands the server is running. Monitoring
// must be enabled on the server.
func (s *Server) ServerProcesses(ctx context.Context, opts *MonitorOptions) ([]ServerProcess, error) {
	recs, err := s.run(ctx, "monitor", append([]string{"show"}, opts.Args()...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]ServerProcess, 0, len(st))
	for _, r := range st {
		out = append(out, ServerProcess{
			ID:      r.Int("id"),
			Status:  r["status"],
			Owner:   r["owner"],
			Command: r["command"],
			Args:    r["args"],
			Time:    r["time"],
			Client:  r["client"],
			Host:    r["host"],
			Program: r["prog"],
		})
	}
	return out, nil
}
