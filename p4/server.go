// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"p4go/p4/tickets"
)

// RawRunner is implemented by executors that can also run untagged
// commands, which login and print need.
type RawRunner interface {
	RunInput(ctx context.Context, args []string, stdin []byte) ([]byte, error)
	PrintTo(ctx context.Context, path string, w io.Writer) error
}

// Server is a session with one Perforce server. Its methods mirror
// Perforce commands.
type Server struct {
	mu      sync.Mutex
	opts    ConnOptions
	newExec func(ConnOptions) Executor
	exec    Executor
	tickets tickets.Store
	info    *ServerInfo
}

// NewServer returns a Server running the p4 binary with opts. store
// may be nil, in which case tickets are not persisted.
func NewServer(opts ConnOptions, store tickets.Store) *Server {
	return NewServerExecutor(opts, store, func(o ConnOptions) Executor {
		return NewConn(o)
	})
}

// NewServerExecutor is NewServer with a custom transport; newExec is
// called again whenever the session settings change.
func NewServerExecutor(opts ConnOptions, store tickets.Store, newExec func(ConnOptions) Executor) *Server {
	if store == nil {
		store = tickets.NewMemory()
	}
	return &Server{
		opts:    opts,
		newExec: newExec,
		exec:    newExec(opts),
		tickets: store,
	}
}

// Connect builds a Server from cfg, picks up a saved ticket when no
// password is configured, and checks the server answers.
func Connect(ctx context.Context, cfg Config) (*Server, error) {
	path := cfg.Tickets
	if path == "" {
		path = tickets.DefaultPath()
	}
	var store tickets.Store = tickets.NewMemory()
	if path != "" {
		store = tickets.NewFile(path)
	}
	opts := cfg.ConnOptions()
	if opts.Ticket == "" {
		t, ok, err := store.Lookup(opts.User, opts.Address)
		if err != nil {
			log.WithError(err).Warn("reading tickets")
		} else if ok {
			opts.Ticket = t.Value
		}
	}
	s := NewServer(opts, store)
	if _, err := s.Info(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) executor() Executor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec
}

func (s *Server) run(ctx context.Context, command string, args []string, input map[string]string) ([]Record, error) {
	return s.executor().Run(ctx, command, args, input)
}

func (s *Server) raw() (RawRunner, error) {
	r, ok := s.executor().(RawRunner)
	if !ok {
		return nil, fmt.Errorf("%w: transport cannot run untagged commands", ErrNotSupported)
	}
	return r, nil
}

func (s *Server) update(f func(*ConnOptions)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.opts)
	s.exec = s.newExec(s.opts)
}

// Options returns the current session settings.
func (s *Server) Options() ConnOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

func (s *Server) SetClient(name string) {
	s.update(func(o *ConnOptions) { o.Client = name })
	s.mu.Lock()
	s.info = nil
	s.mu.Unlock()
}

func (s *Server) SetUser(name string) {
	s.update(func(o *ConnOptions) { o.User = name })
	s.mu.Lock()
	s.info = nil
	s.mu.Unlock()
}

// SetProgram names the application in the server log (-zprog).
func (s *Server) SetProgram(name, version string) {
	s.update(func(o *ConnOptions) {
		o.ProgramName = name
		o.ProgramVersion = version
	})
}

func (s *Server) SetTicket(ticket string) {
	s.update(func(o *ConnOptions) { o.Ticket = ticket })
}

func (s *Server) Ticket() string {
	return s.Options().Ticket
}

// SetCharset selects the charset used to talk to a unicode server.
func (s *Server) SetCharset(charset string) error {
	if charset != "" && !IsKnownCharset(charset) {
		return invalidArg("unknown charset %q", charset)
	}
	s.update(func(o *ConnOptions) { o.Charset = charset })
	return nil
}

var knownCharsets = []string{
	"auto", "none", "utf8", "utf8-bom", "utf8unchecked", "utf8unchecked-bom",
	"utf16", "utf16-nobom", "utf16le", "utf16le-bom", "utf16be", "utf16be-bom",
	"utf32", "utf32-nobom", "utf32le", "utf32le-bom", "utf32be", "utf32be-bom",
	"iso8859-1", "iso8859-5", "iso8859-7", "iso8859-15",
	"shiftjis", "eucjp", "winansi", "winoem", "macosroman",
	"cp850", "cp858", "cp936", "cp949", "cp950",
	"cp1250", "cp1251", "cp1253", "koi8-r",
}

// KnownCharsets lists the charset names p4 accepts.
func KnownCharsets() []string {
	return append([]string(nil), knownCharsets...)
}

func IsKnownCharset(name string) bool {
	for _, c := range knownCharsets {
		if c == name {
			return true
		}
	}
	return false
}

// ServerInfo is the result of p4 info.
type ServerInfo struct {
	UserName      string
	ClientName    string
	ClientRoot    string
	ClientHost    string
	ClientAddress string
	ServerAddress string
	ServerVersion string
	ServerDate    string
	ServerUptime  string
	ServerRoot    string
	ServerID      string
	ServerLicense string
	CaseHandling  string
	Unicode       bool
}

// Version returns the release number, e.g. 20191 for 2019.1.
func (i *ServerInfo) Version() int {
	return ParseServerVersion(i.ServerVersion)
}

func (i *ServerInfo) CaseSensitive() bool {
	return i.CaseHandling != "insensitive"
}

// ParseServerVersion turns "P4D/LINUX26X86_64/2019.1/1796703 (2019/05/10)"
// into 20191; unknown formats give 0.
func ParseServerVersion(v string) int {
	parts := strings.Split(v, "/")
	if len(parts) < 3 {
		return 0
	}
	year, rel, ok := strings.Cut(parts[2], ".")
	if !ok {
		return 0
	}
	// strip suffixes like "1.PREP-TEST_ONLY" or "2-BETA"
	end := 0
	for end < len(rel) && rel[end] >= '0' && rel[end] <= '9' {
		end++
	}
	y, err1 := strconv.Atoi(year)
	r, err2 := strconv.Atoi(rel[:end])
	if err1 != nil || err2 != nil {
		return 0
	}
	return y*10 + r
}

// Info runs p4 info. The result is cached for the session.
func (s *Server) Info(ctx context.Context) (*ServerInfo, error) {
	s.mu.Lock()
	cached := s.info
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	recs, err := s.run(ctx, "info", nil, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	info := &ServerInfo{
		UserName:      r["userName"],
		ClientName:    r["clientName"],
		ClientRoot:    r["clientRoot"],
		ClientHost:    r["clientHost"],
		ClientAddress: r["clientAddress"],
		ServerAddress: r["serverAddress"],
		ServerVersion: r["serverVersion"],
		ServerDate:    r["serverDate"],
		ServerUptime:  r["serverUptime"],
		ServerRoot:    r["serverRoot"],
		ServerID:      r["serverID"],
		ServerLicense: r["serverLicense"],
		CaseHandling:  r["caseHandling"],
		Unicode:       r["unicode"] == "enabled",
	}
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
	log.WithFields(logrus.Fields{
		"server":  info.ServerAddress,
		"version": info.ServerVersion,
	}).Debug("connected")
	return info, nil
}

// ServerVersion returns the server release number; 0 if unknown.
func (s *Server) ServerVersion(ctx context.Context) (int, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.Version(), nil
}

// SupportsUnicode reports whether the server runs in unicode mode.
func (s *Server) SupportsUnicode(ctx context.Context) (bool, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return false, err
	}
	return info.Unicode, nil
}

// Minimum server releases of gated features.
const (
	VersionObliterateBranched = 20092
	VersionStreams            = 20111
	VersionKeys               = 20131
	VersionShelvedDescribe    = 20092
	VersionProperties         = 20131
)

// requireVersion fails with ErrNotSupported when the server is older
// than min. A server whose version is unknown is assumed to be new.
func (s *Server) requireVersion(ctx context.Context, min int, feature string) error {
	v, err := s.ServerVersion(ctx)
	if err != nil {
		return err
	}
	if v != 0 && v < min {
		return fmt.Errorf("%w: %s requires server %d.%d or later (have %d.%d)",
			ErrNotSupported, feature, min/10, min%10, v/10, v%10)
	}
	return nil
}

// LoginOptions for Login.
type LoginOptions struct {
	// AllHosts makes the ticket valid on all hosts (-a).
	AllHosts bool
	// Host requests a ticket for another host (-h).
	Host string
	// DontSave keeps the ticket out of the tickets store.
	DontSave bool
}

func (o *LoginOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.AllHosts, "-a")
	a.str("-h", o.Host)
	return a
}

// Login obtains a ticket with password and makes the session use it.
func (s *Server) Login(ctx context.Context, password string, opts *LoginOptions) error {
	r, err := s.raw()
	if err != nil {
		return err
	}
	args := append([]string{"login", "-p"}, opts.Args()...)
	out, err := r.RunInput(ctx, args, []byte(password+"\n"))
	if err != nil {
		return err
	}
	ticket := parseTicket(string(out))
	if ticket == "" {
		return fmt.Errorf("%w: login returned no ticket", ErrAccess)
	}
	s.SetTicket(ticket)
	if opts != nil && opts.DontSave {
		return nil
	}
	o := s.Options()
	if o.User == "" || o.Address == "" {
		return nil
	}
	return s.tickets.Save(tickets.Ticket{ServerAddress: o.Address, User: o.User, Value: ticket})
}

// parseTicket extracts the ticket from login -p output, which may be
// preceded by the password prompt.
func parseTicket(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if idx := strings.LastIndex(l, ":"); strings.HasPrefix(l, "Enter password") && idx >= 0 {
			l = strings.TrimSpace(l[idx+1:])
		}
		if l != "" {
			return l
		}
	}
	return ""
}

// LoginStatus describes the session's ticket.
type LoginStatus struct {
	User    string
	Expires time.Duration
}

func (s *Server) LoginStatus(ctx context.Context) (*LoginStatus, error) {
	recs, err := s.run(ctx, "login", []string{"-s"}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	return &LoginStatus{
		User:    r["User"],
		Expires: time.Duration(r.Int64("TicketExpiration")) * time.Second,
	}, nil
}

// Logout invalidates the ticket and removes it from the store.
func (s *Server) Logout(ctx context.Context) error {
	recs, err := s.run(ctx, "logout", nil, nil)
	if err != nil {
		return err
	}
	if _, err := InfoString(recs); err != nil {
		return err
	}
	o := s.Options()
	s.SetTicket("")
	if o.User == "" || o.Address == "" {
		return nil
	}
	return s.tickets.Remove(o.User, o.Address)
}

// ChangePassword sets a new password for user, or the session user
// when user is empty.
func (s *Server) ChangePassword(ctx context.Context, oldPassword, newPassword, user string) (string, error) {
	if newPassword == "" {
		return "", invalidArg("empty new password")
	}
	var a argList
	a.str("-O", oldPassword)
	a.add("-P", newPassword)
	if user != "" {
		a.add(user)
	}
	recs, err := s.run(ctx, "passwd", a, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}
