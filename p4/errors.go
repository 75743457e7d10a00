// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"errors"
	"fmt"
	"strings"
)

// Severity of a server message.
type Severity int

const (
	SeverityEmpty Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityFailed
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityEmpty:
		return "empty"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warning"
	case SeverityFailed:
		return "failed"
	case SeverityFatal:
		return "fatal"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Generic is the server's broad classification of an error.
type Generic int

const (
	GenericNone    Generic = 0x00
	GenericUsage   Generic = 0x01
	GenericUnknown Generic = 0x02
	GenericContext Generic = 0x03
	GenericIllegal Generic = 0x04
	GenericNotYet  Generic = 0x05
	GenericProtect Generic = 0x06
	GenericEmpty   Generic = 0x11
	GenericFault   Generic = 0x21
	GenericClient  Generic = 0x22
	GenericAdmin   Generic = 0x23
	GenericConfig  Generic = 0x24
	GenericUpgrade Generic = 0x25
	GenericComm    Generic = 0x26
	GenericTooBig  Generic = 0x27
)

// Error kinds. Every error returned by this package wraps one of
// these, so callers can test with errors.Is.
var (
	ErrAccess          = errors.New("p4: access denied")
	ErrRequest         = errors.New("p4: request failed")
	ErrConnection      = errors.New("p4: connection failed")
	ErrNotSupported    = errors.New("p4: not supported by server")
	ErrInvalidArgument = errors.New("p4: invalid argument")
	ErrNotFound        = errors.New("p4: not found")
)

// AuthFailure says why the server refused access.
type AuthFailure int

const (
	AuthNone AuthFailure = iota
	AuthNotLoggedIn
	AuthSessionExpired
	AuthSSOLogin
	AuthPasswordInvalid
)

var authFailures = []struct {
	fragment string
	kind     AuthFailure
}{
	{"Perforce password (P4PASSWD)", AuthNotLoggedIn},
	{"Access for user", AuthNotLoggedIn},
	{"Your session has expired", AuthSessionExpired},
	{"Your session was logged out", AuthSessionExpired},
	{"Perforce password (%'P4PASSWD'%)", AuthNotLoggedIn},
	{"Single sign-on on client failed", AuthSSOLogin},
	{"Password invalid", AuthPasswordInvalid},
}

// authFailure classifies msg; AuthNone means it is not an access error.
func authFailure(msg string) AuthFailure {
	for _, a := range authFailures {
		if strings.Contains(msg, a.fragment) {
			return a.kind
		}
	}
	return AuthNone
}

// ServerError is an error record returned by the server.
type ServerError struct {
	Severity Severity
	Generic  Generic
	Message  string
	Auth     AuthFailure
}

func (e *ServerError) Error() string {
	return strings.TrimSpace(e.Message)
}

func (e *ServerError) String() string {
	return fmt.Sprintf("error %d(%d): %s", e.Generic, e.Severity, e.Message)
}

// Is makes access failures match ErrAccess, communication failures
// reported by the p4 client match ErrConnection, and all other server
// errors match ErrRequest. Empty results and unknown objects also
// match ErrNotFound.
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrAccess:
		return e.Auth != AuthNone
	case ErrConnection:
		return e.Generic == GenericComm
	case ErrRequest:
		return e.Auth == AuthNone && e.Generic != GenericComm
	case ErrNotFound:
		return e.Generic == GenericEmpty || e.Generic == GenericUnknown
	}
	return false
}

// ConnectionError reports a failure to run or talk to the p4 client.
type ConnectionError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("running p4 %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool {
	if target == ErrConnection {
		return true
	}
	// p4 prints auth failures on stderr when it cannot produce
	// tagged output at all.
	return target == ErrAccess && authFailure(e.Stderr) != AuthNone
}

func invalidArg(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
