// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AllServers asks ServerConfiguration for the settings of every server.
const AllServers = "allservers"

// ConfigValue is one server configuration setting. Type is where the
// value comes from: "option", "default", "configure", "tunable" and
// so on.
type ConfigValue struct {
	ServerName string
	Name       string
	Value      string
	Type       string
}

// ServerConfiguration lists configuration values (p4 configure show).
// serverName limits the list to one server, or AllServers; variable
// limits it to one setting. Both may be empty.
func (s *Server) ServerConfiguration(ctx context.Context, serverName, variable string) ([]ConfigValue, error) {
	args := []string{"show"}
	switch {
	case serverName != "":
		args = append(args, serverName)
	case variable != "":
		args = append(args, variable)
	}
	recs, err := s.run(ctx, "configure", args, nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	var out []ConfigValue
	for _, r := range st {
		v := ConfigValue{ServerName: r["ServerName"], Name: r["Name"], Value: r["Value"], Type: r["Type"]}
		if serverName != "" && variable != "" && v.Name != variable {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// SetServerConfiguration sets name (optionally "server#name") to value
// or, when value is empty, unsets it. It returns the server's report.
func (s *Server) SetServerConfiguration(ctx context.Context, name, value string) (string, error) {
	if name == "" {
		return "", invalidArg("empty configuration name")
	}
	args := []string{"unset", name}
	if value != "" {
		args = []string{"set", name + "=" + value}
	}
	recs, err := s.run(ctx, "configure", args, nil)
	if err != nil {
		return "", err
	}
	if err := CheckErrors(recs); err != nil {
		// Unsetting a variable that has no value is reported, not failed.
		if value == "" && errors.Is(err, ErrNotFound) {
			return err.Error(), nil
		}
		return "", err
	}
	var lines []string
	for _, r := range recs {
		switch {
		case r.Code() == CodeStat:
			lines = append(lines, configureMessage(r))
		case r.IsInfo(), r.IsWarning():
			lines = append(lines, r.Message())
		}
	}
	return strings.Join(lines, "\n"), nil
}

func configureMessage(r Record) string {
	server := r["ServerName"]
	if server == "" {
		server = "any"
	}
	if r["Action"] == "unset" {
		return fmt.Sprintf("For server '%s', configuration variable '%s' removed.", server, r["Name"])
	}
	return fmt.Sprintf("For server '%s', configuration variable '%s' set to '%s'", server, r["Name"], r["Value"])
}
