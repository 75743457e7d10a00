// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("source", "p4")

// Executor runs one tagged p4 command. input, when non-nil, is the
// spec form sent to commands run with -i.
type Executor interface {
	Run(ctx context.Context, command string, args []string, input map[string]string) ([]Record, error)
}

// ConnOptions configures the p4 command line client.
type ConnOptions struct {
	Address string
	Binary  string
	User    string
	Client  string
	Charset string
	Host    string
	// Ticket is passed with -P; it may also hold a plain password.
	Ticket string

	ProgramName    string
	ProgramVersion string

	// Dir is the working directory for p4, used to resolve P4CONFIG
	// files and local paths.
	Dir string
	// Env entries ("KEY=value") added to the environment of p4.
	Env []string
}

// Conn is an interface to the p4 command line client.
type Conn struct {
	opts *ConnOptions
}

func NewConn(opts ConnOptions) *Conn {
	if opts.Binary == "" {
		opts.Binary = "p4"
	}
	return &Conn{&opts}
}

// Options returns a copy of the connection settings.
func (p *Conn) Options() ConnOptions {
	return *p.opts
}

// With returns a Conn that shares nothing with p, with f applied to
// a copy of its options.
func (p *Conn) With(f func(*ConnOptions)) *Conn {
	o := *p.opts
	o.Env = append([]string(nil), p.opts.Env...)
	f(&o)
	return NewConn(o)
}

func (p *Conn) globalArgs() []string {
	var a []string
	add := func(flag, v string) {
		if v != "" {
			a = append(a, flag, v)
		}
	}
	add("-p", p.opts.Address)
	add("-u", p.opts.User)
	add("-c", p.opts.Client)
	add("-C", p.opts.Charset)
	add("-H", p.opts.Host)
	add("-P", p.opts.Ticket)
	if p.opts.ProgramName != "" {
		a = append(a, "-zprog="+p.opts.ProgramName)
	}
	if p.opts.ProgramVersion != "" {
		a = append(a, "-zversion="+p.opts.ProgramVersion)
	}
	return a
}

// secretFlags take a password or ticket as their value.
var secretFlags = map[string]bool{"-P": true, "-O": true}

// loggable renders a command line with password values masked.
func loggable(args []string) string {
	masked := make([]string, len(args))
	copy(masked, args)
	for i := 0; i+1 < len(masked); i++ {
		if secretFlags[masked[i]] {
			masked[i+1] = "redacted"
			i++
		}
	}
	return shellquote.Join(masked...)
}

func (p *Conn) command(ctx context.Context, args []string) *exec.Cmd {
	b := p.opts.Binary
	if !strings.Contains(b, "/") {
		if lp, err := exec.LookPath(b); err == nil {
			b = lp
		}
	}
	cmd := exec.CommandContext(ctx, b)
	cmd.Args = append(append([]string{p.opts.Binary}, p.globalArgs()...), args...)
	if p.opts.Dir != "" || len(p.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), p.opts.Env...)
	}
	if p.opts.Dir != "" {
		cmd.Dir = p.opts.Dir
		cmd.Env = append(cmd.Env, "PWD="+p.opts.Dir)
	}
	log.WithField("cmd", loggable(cmd.Args[1:])).Debug("running")
	return cmd
}

// connectFailures are stderr fragments of the p4 client failing to
// reach the server, as opposed to the server rejecting a command.
var connectFailures = []string{
	"Connect to server failed",
	"TCP connect to",
	"TCP receive failed",
	"SSL connect to",
}

// runError classifies a failed p4 invocation.
func runError(args []string, stderr string, err error) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return &ConnectionError{Args: args, Stderr: stderr, Err: err}
	}
	msg := strings.TrimSpace(stderr)
	for _, f := range connectFailures {
		if strings.Contains(msg, f) {
			return &ConnectionError{Args: args, Stderr: stderr, Err: err}
		}
	}
	if msg == "" {
		return &ConnectionError{Args: args, Stderr: stderr, Err: err}
	}
	return &ServerError{
		Severity: SeverityFailed,
		Generic:  GenericNone,
		Message:  msg,
		Auth:     authFailure(msg),
	}
}

// Output runs p4 and captures stdout.
func (p *Conn) Output(ctx context.Context, args []string) ([]byte, error) {
	return p.RunInput(ctx, args, nil)
}

// RunInput runs p4 with stdin and captures stdout.
func (p *Conn) RunInput(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	cmd := p.command(ctx, args)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		return out, runError(args, stderr.String(), err)
	}
	return out, nil
}

// Run runs p4 with -G and captures the result dicts.
func (p *Conn) Run(ctx context.Context, command string, args []string, input map[string]string) ([]Record, error) {
	full := append([]string{"-G", command}, args...)
	cmd := p.command(ctx, full)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if input != nil {
		var in bytes.Buffer
		if err := Encode(&in, input); err != nil {
			return nil, err
		}
		cmd.Stdin = &in
	}
	out, err := cmd.Output()
	result, decodeErr := decodeRecords(bytes.NewReader(out))
	if decodeErr != nil {
		return nil, decodeErr
	}
	if len(result) > 0 {
		// p4 exits 1 whenever a record is an error; the records say why.
		return result, nil
	}
	if err != nil {
		return nil, runError(full, stderr.String(), err)
	}
	return result, nil
}

func decodeRecords(r io.Reader) (result []Record, err error) {
	br := bufio.NewReader(r)
	for {
		v, err := Decode(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		asMap, ok := v.(map[interface{}]interface{})
		if !ok {
			return nil, fmt.Errorf("format err: p4 marshaled %v", v)
		}
		rec, err := toRecord(asMap)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

// Print returns the content of a single file revision.
func (p *Conn) Print(ctx context.Context, path string) (content []byte, err error) {
	var buf bytes.Buffer
	if err := p.PrintTo(ctx, path, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PrintTo streams the content of a single file revision to w.
func (p *Conn) PrintTo(ctx context.Context, path string, w io.Writer) error {
	args := []string{"print", "-q", path}
	cmd := p.command(ctx, args)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = w
	if err := cmd.Run(); err != nil {
		return runError(args, stderr.String(), err)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		// "no such file(s)" is a warning with exit status 0.
		return &ServerError{Severity: SeverityWarn, Generic: GenericEmpty, Message: msg, Auth: authFailure(msg)}
	}
	return nil
}
