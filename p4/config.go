// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the P4 settings a connection is made with.
type Config struct {
	Port     string
	User     string
	Client   string
	Charset  string
	Host     string
	Password string
	Tickets  string
	Binary   string

	// ConfigFile is the P4CONFIG file the settings were read from, if
	// any.
	ConfigFile string
}

const DefaultPort = "perforce:1666"

// DefaultConfig returns the settings p4 uses when nothing is set.
func DefaultConfig() Config {
	return Config{
		Port:   DefaultPort,
		User:   os.Getenv("USER"),
		Binary: "p4",
	}
}

// set assigns a P4 variable; unknown names are ignored.
func (c *Config) set(name, value string) {
	switch name {
	case "P4PORT":
		c.Port = value
	case "P4USER":
		c.User = value
	case "P4CLIENT":
		c.Client = value
	case "P4CHARSET":
		c.Charset = value
	case "P4HOST":
		c.Host = value
	case "P4PASSWD":
		c.Password = value
	case "P4TICKETS":
		c.Tickets = value
	}
}

var configVars = []string{"P4PORT", "P4USER", "P4CLIENT", "P4CHARSET", "P4HOST", "P4PASSWD", "P4TICKETS"}

// LoadConfig layers the defaults, the environment and the nearest
// P4CONFIG file at or above dir, later sources winning.
func LoadConfig(dir string) (Config, error) {
	c := DefaultConfig()
	for _, v := range configVars {
		if val, ok := os.LookupEnv(v); ok && val != "" {
			c.set(v, val)
		}
	}
	name := os.Getenv("P4CONFIG")
	if name == "" || dir == "" {
		return c, nil
	}
	path, err := findConfigFile(dir, name)
	if err != nil || path == "" {
		return c, err
	}
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()
	if err := c.parse(f); err != nil {
		return c, err
	}
	c.ConfigFile = path
	return c, nil
}

func (c *Config) parse(f *os.File) error {
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		c.set(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return s.Err()
}

func findConfigFile(dir, name string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ConnOptions converts the settings for NewConn.
func (c Config) ConnOptions() ConnOptions {
	return ConnOptions{
		Address: c.Port,
		Binary:  c.Binary,
		User:    c.User,
		Client:  c.Client,
		Charset: c.Charset,
		Host:    c.Host,
		Ticket:  c.Password,
	}
}
