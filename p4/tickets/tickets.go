// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tickets reads and writes Perforce auth tickets, either in a
// p4tickets file or in memory.
//
// A tickets file holds one entry per line:
//
//	serverAddress=userName:ticketValue
package tickets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("source", "tickets")

// Ticket is one auth entry.
type Ticket struct {
	ServerAddress string
	User          string
	Value         string
}

func (t Ticket) String() string {
	return t.ServerAddress + "=" + t.User + ":" + t.Value
}

// Store looks up and saves tickets.
type Store interface {
	// Lookup finds the ticket for addr and user; an empty user matches
	// any user.
	Lookup(user, addr string) (Ticket, bool, error)
	Save(t Ticket) error
	Remove(user, addr string) error
}

// NormalizeAddress prefixes a bare port with "localhost:".
func NormalizeAddress(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return "localhost:" + addr
	}
	return addr
}

// ParseLine parses one entry; ok is false for lines that are not
// entries.
func ParseLine(line string) (t Ticket, ok bool) {
	eq := strings.IndexByte(line, '=')
	if eq == -1 {
		return t, false
	}
	colon := strings.IndexByte(line[eq:], ':')
	if colon == -1 {
		return t, false
	}
	colon += eq
	if colon+1 >= len(line) {
		return t, false
	}
	return Ticket{
		ServerAddress: line[:eq],
		User:          line[eq+1 : colon],
		Value:         strings.TrimRight(line[colon+1:], "\r"),
	}, true
}

func parse(r io.Reader) ([]Ticket, error) {
	var out []Ticket
	s := bufio.NewScanner(r)
	for s.Scan() {
		if t, ok := ParseLine(s.Text()); ok {
			out = append(out, t)
		}
	}
	return out, s.Err()
}

func find(ts []Ticket, user, addr string) (Ticket, bool) {
	if addr == "" {
		return Ticket{}, false
	}
	addr = NormalizeAddress(addr)
	for _, t := range ts {
		if t.ServerAddress == addr && (user == "" || user == t.User) {
			return t, true
		}
	}
	return Ticket{}, false
}

// DefaultPath returns $P4TICKETS, or .p4tickets in the home
// directory.
func DefaultPath() string {
	if p := os.Getenv("P4TICKETS"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".p4tickets")
}

// Lock file defaults.
const (
	DefaultLockTry   = 100
	DefaultLockDelay = 300 * time.Second
	DefaultLockWait  = time.Second
)

// File is a Store backed by a tickets file.
type File struct {
	Path string

	// LockTry bounds the attempts to take the lock file, waiting
	// LockWait between them. A lock older than LockDelay is stale
	// and removed.
	LockTry   int
	LockDelay time.Duration
	LockWait  time.Duration

	mu sync.Mutex
}

func NewFile(path string) *File {
	return &File{
		Path:      path,
		LockTry:   DefaultLockTry,
		LockDelay: DefaultLockDelay,
		LockWait:  DefaultLockWait,
	}
}

// Load reads all entries; a missing file has none.
func (f *File) Load() ([]Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *File) load() ([]Ticket, error) {
	fh, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return parse(fh)
}

func (f *File) Lookup(user, addr string) (Ticket, bool, error) {
	ts, err := f.Load()
	if err != nil {
		return Ticket{}, false, err
	}
	t, ok := find(ts, user, addr)
	return t, ok, nil
}

func (f *File) Save(t Ticket) error {
	if t.User == "" || t.ServerAddress == "" {
		return fmt.Errorf("tickets: ticket needs user and server address")
	}
	return f.update(t.User, t.ServerAddress, t.Value)
}

func (f *File) Remove(user, addr string) error {
	return f.update(user, addr, "")
}

func (f *File) lock() (func(), error) {
	lockPath := f.Path + ".lck"
	tries := f.LockTry
	if tries <= 0 {
		tries = 1
	}
	for i := 0; i < tries; i++ {
		lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			lf.Close()
			return func() {
				if err := os.Remove(lockPath); err != nil {
					log.Warnf("removing lock %s: %v", lockPath, err)
				}
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if st, err := os.Stat(lockPath); err == nil && f.LockDelay > 0 && time.Since(st.ModTime()) > f.LockDelay {
			log.Warnf("removing stale lock %s", lockPath)
			os.Remove(lockPath)
			continue
		}
		time.Sleep(f.LockWait)
	}
	return nil, fmt.Errorf("tickets: could not lock %s", lockPath)
}

// update replaces the first entry for addr/user with value, appending
// it when absent; an empty value deletes the entry.
func (f *File) update(user, addr, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	addr = NormalizeAddress(addr)
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return err
	}
	unlock, err := f.lock()
	if err != nil {
		return err
	}
	defer unlock()

	var lines []string
	if old, err := os.ReadFile(f.Path); err == nil {
		lines = strings.Split(strings.TrimRight(string(old), "\n"), "\n")
		if len(lines) == 1 && lines[0] == "" {
			lines = nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	prefix := addr + "=" + user + ":"
	entry := ""
	if value != "" {
		entry = prefix + value
	}
	var out []string
	processed := false
	for _, l := range lines {
		if !processed && strings.HasPrefix(l, prefix) {
			processed = true
			if entry != "" {
				out = append(out, entry)
			}
			continue
		}
		out = append(out, l)
	}
	if !processed && entry != "" {
		out = append(out, entry)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".p4tickets")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	w := bufio.NewWriter(tmp)
	for _, l := range out {
		fmt.Fprintln(w, l)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// Memory is a Store held in process memory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]string{}}
}

func memKey(user, addr string) string {
	return NormalizeAddress(addr) + "=" + user
}

func (m *Memory) Tickets() []Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Ticket
	for k, v := range m.entries {
		if t, ok := ParseLine(k + ":" + v); ok {
			out = append(out, t)
		}
	}
	return out
}

func (m *Memory) Lookup(user, addr string) (Ticket, bool, error) {
	if addr == "" {
		return Ticket{}, false, nil
	}
	if user != "" {
		m.mu.Lock()
		v, ok := m.entries[memKey(user, addr)]
		m.mu.Unlock()
		if !ok {
			return Ticket{}, false, nil
		}
		return Ticket{ServerAddress: NormalizeAddress(addr), User: user, Value: v}, true, nil
	}
	t, ok := find(m.Tickets(), user, addr)
	return t, ok, nil
}

func (m *Memory) Save(t Ticket) error {
	if t.User == "" || t.ServerAddress == "" {
		return fmt.Errorf("tickets: ticket needs user and server address")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Value == "" {
		delete(m.entries, memKey(t.User, t.ServerAddress))
		return nil
	}
	m.entries[memKey(t.User, t.ServerAddress)] = t.Value
	return nil
}

func (m *Memory) Remove(user, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memKey(user, addr))
	return nil
}
