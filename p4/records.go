// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Record is one tagged result dict from p4 -G. Integer values the
// server sends as marshaled ints are stored as decimal strings, like
// every other field.
type Record map[string]string

// Record codes.
const (
	CodeStat   = "stat"
	CodeInfo   = "info"
	CodeError  = "error"
	CodeText   = "text"
	CodeBinary = "binary"
)

func toRecord(in map[interface{}]interface{}) (Record, error) {
	r := make(Record, len(in))
	for k, v := range in {
		ks, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("format err: non-string key %v", k)
		}
		if v == NoneObject {
			r[ks] = ""
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("format err: key %q: %v", ks, err)
		}
		r[ks] = s
	}
	return r, nil
}

// Code returns the record's code, "stat" when absent.
func (r Record) Code() string {
	if c, ok := r["code"]; ok {
		return c
	}
	return CodeStat
}

// Int returns the field as an int; missing or malformed fields are 0.
// Brilliant. We get the integers as decimal strings. Sigh.
func (r Record) Int(key string) int {
	return cast.ToInt(strings.TrimSpace(r[key]))
}

func (r Record) Int64(key string) int64 {
	return cast.ToInt64(strings.TrimSpace(r[key]))
}

// Bool is true for "true", "1", or a key present with an empty value
// (p4 uses bare flags like "isOwner").
func (r Record) Bool(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	return cast.ToBool(v)
}

func (r Record) Severity() Severity {
	switch r.Code() {
	case CodeError:
		return Severity(r.Int("severity"))
	case CodeInfo:
		return SeverityInfo
	}
	return SeverityEmpty
}

func (r Record) IsError() bool   { return r.Code() == CodeError && r.Severity() >= SeverityFailed }
func (r Record) IsWarning() bool { return r.Code() == CodeError && r.Severity() == SeverityWarn }
func (r Record) IsInfo() bool    { return r.Code() == CodeInfo }

// Message returns the message text of an info or error record.
func (r Record) Message() string {
	return strings.TrimRight(r["data"], "\n")
}

// ServerError converts an error or warning record; nil for others.
func (r Record) ServerError() *ServerError {
	if r.Code() != CodeError {
		return nil
	}
	msg := r.Message()
	return &ServerError{
		Severity: r.Severity(),
		Generic:  Generic(r.Int("generic")),
		Message:  msg,
		Auth:     authFailure(msg),
	}
}

// List collects the indexed fields key0, key1, ... until the first gap.
func (r Record) List(key string) []string {
	var out []string
	for i := 0; ; i++ {
		v, ok := r[key+strconv.Itoa(i)]
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// putList stores vals as key0..keyN.
func putList(m map[string]string, key string, vals []string) {
	for i, v := range vals {
		m[key+strconv.Itoa(i)] = v
	}
}

// Time parses epoch seconds or the spec form date layouts.
func (r Record) Time(key string) time.Time {
	return parseTime(r[key])
}

var timeLayouts = []string{
	"2006/01/02 15:04:05",
	"2006/01/02:15:04:05",
	"2006/01/02",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0)
	}
	for _, l := range timeLayouts {
		if t, err := time.ParseInLocation(l, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CheckErrors returns the first error-severity record as an error.
// Warnings and info are not errors.
func CheckErrors(records []Record) error {
	for _, r := range records {
		if r.IsError() {
			return r.ServerError()
		}
	}
	return nil
}

// InfoString checks for errors and joins the text of all info records.
func InfoString(records []Record) (string, error) {
	if err := CheckErrors(records); err != nil {
		return "", err
	}
	var lines []string
	for _, r := range records {
		if r.IsInfo() {
			if m := r.Message(); m != "" {
				lines = append(lines, m)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// stats checks errors and returns only the stat records. Warnings
// such as "no such file(s)" are dropped.
func stats(records []Record) ([]Record, error) {
	if err := CheckErrors(records); err != nil {
		return nil, err
	}
	out := records[:0:0]
	for _, r := range records {
		if r.Code() == CodeStat {
			out = append(out, r)
		}
	}
	return out, nil
}

// IsExistingSpec reports whether a -o form describes an existing
// object; templates for new objects carry no Update/Access dates.
func IsExistingSpec(r Record) bool {
	_, u := r["Update"]
	_, a := r["Access"]
	return u || a
}

// firstStat returns the single spec form of a -o command.
func firstStat(records []Record) (Record, error) {
	st, err := stats(records)
	if err != nil {
		return nil, err
	}
	if len(st) == 0 {
		return nil, fmt.Errorf("%w: no spec returned", ErrRequest)
	}
	return st[0], nil
}
