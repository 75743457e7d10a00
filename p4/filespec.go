// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FileStatus says whether a per-file result is a file or a message.
type FileStatus int

const (
	FileValid FileStatus = iota
	FileInfo
	FileWarning
	FileError
)

func (s FileStatus) String() string {
	return [...]string{"valid", "info", "warning", "error"}[s]
}

// FileSpec is one file result of a file command. Commands that act on
// many files report per-file failures here instead of failing the
// whole call.
type FileSpec struct {
	DepotPath  string
	ClientPath string
	LocalPath  string
	Revision   int
	Change     int
	Action     string
	Type       string
	Time       time.Time
	User       string
	Client     string
	FileSize   int64
	Digest     string

	Status  FileStatus
	Message string
	Err     *ServerError
}

func (f *FileSpec) String() string {
	if f.Status != FileValid {
		return fmt.Sprintf("%s: %s", f.Status, f.Message)
	}
	return fmt.Sprintf("%s#%d - %s change %d (%s)",
		f.DepotPath, f.Revision, f.Action, f.Change, f.Type)
}

// fileSpecAt reads a file from r; idx is the suffix of indexed keys
// ("" for plain records).
func fileSpecAt(r Record, idx string) FileSpec {
	return FileSpec{
		DepotPath:  r["depotFile"+idx],
		ClientPath: r["clientFile"+idx],
		LocalPath:  r["path"+idx],
		Revision:   r.Int("rev" + idx),
		Change:     r.Int("change" + idx),
		Action:     r["action"+idx],
		Type:       r["type"+idx],
		Time:       r.Time("time" + idx),
		User:       r["user"+idx],
		Client:     r["client"+idx],
		FileSize:   r.Int64("fileSize" + idx),
		Digest:     r["digest"+idx],
	}
}

// fileMessage turns an info, warning or error record into a FileSpec.
// Access and communication errors abort the command instead.
func fileMessage(r Record) (FileSpec, error) {
	if r.IsInfo() {
		return FileSpec{Status: FileInfo, Message: r.Message()}, nil
	}
	se := r.ServerError()
	if se.Is(ErrAccess) || se.Is(ErrConnection) || se.Severity >= SeverityFatal {
		return FileSpec{}, se
	}
	st := FileError
	if se.Severity <= SeverityWarn {
		st = FileWarning
	}
	return FileSpec{Status: st, Message: se.Message, Err: se}, nil
}

// fileResults converts the records of a file command.
func fileResults(records []Record) ([]FileSpec, error) {
	out := make([]FileSpec, 0, len(records))
	for _, r := range records {
		switch r.Code() {
		case CodeStat:
			out = append(out, fileSpecAt(r, ""))
		case CodeInfo, CodeError:
			fs, err := fileMessage(r)
			if err != nil {
				return nil, err
			}
			out = append(out, fs)
		}
	}
	return out, nil
}

// indexedFiles collects the depotFile0, rev0, ... entries of a single
// record, as describe returns them.
func indexedFiles(r Record, change int) []FileSpec {
	var out []FileSpec
	for i := 0; ; i++ {
		idx := strconv.Itoa(i)
		if _, ok := r["depotFile"+idx]; !ok {
			return out
		}
		fs := fileSpecAt(r, idx)
		if fs.Change == 0 {
			fs.Change = change
		}
		out = append(out, fs)
	}
}

// ValidFiles filters out the message entries of a result.
func ValidFiles(fs []FileSpec) []FileSpec {
	var out []FileSpec
	for _, f := range fs {
		if f.Status == FileValid {
			out = append(out, f)
		}
	}
	return out
}

// RevisionSpec renders path#rev, or the path alone when rev <= 0.
func RevisionSpec(path string, rev int) string {
	if rev <= 0 {
		return path
	}
	return path + "#" + strconv.Itoa(rev)
}

// ChangeSpec renders path@change.
func ChangeSpec(path string, change int) string {
	if change <= 0 {
		return path
	}
	return path + "@" + strconv.Itoa(change)
}

// DateSpec renders path@yyyy/mm/dd:hh:mm:ss in local time.
func DateSpec(path string, t time.Time) string {
	if t.IsZero() {
		return path
	}
	return path + "@" + t.Local().Format(timeLayouts[1])
}

func nonEmpty(paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
