// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"strconv"
)

// ExportPosition is where p4 export starts reading: a journal (-j) or
// a checkpoint (-c) number, optionally at a byte or record offset.
type ExportPosition struct {
	Journal bool
	Number  int
	Offset  int64
}

func (p ExportPosition) arg() string {
	f, sep := "-c", "#"
	if p.Journal {
		f, sep = "-j", "/"
	}
	a := f + strconv.Itoa(p.Number)
	if p.Offset > 0 {
		a += sep + strconv.FormatInt(p.Offset, 10)
	}
	return a
}

// ExportOptions for p4 export.
type ExportOptions struct {
	From ExportPosition
	// Max limits the number of records (-l).
	Max int64
	// JournalPrefix names the journal files (-J).
	JournalPrefix string
	// Format formats records for humans (-f).
	Format bool
	// Filter is a -F expression such as "table=db.have".
	Filter string
}

func (o *ExportOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	if o.Max > 0 {
		a.joined("-l", strconv.FormatInt(o.Max, 10))
	}
	a.add(o.From.arg())
	a.joined("-J", o.JournalPrefix)
	a.flag(o.Format, "-f")
	a.joined("-F", o.Filter)
	return a
}

// Export returns journal or checkpoint records. The "func" key of the
// wire records is dropped; the other keys are the table columns.
func (s *Server) Export(ctx context.Context, opts *ExportOptions) ([]Record, error) {
	if opts == nil {
		return nil, invalidArg("export needs a journal or checkpoint")
	}
	recs, err := s.run(ctx, "export", opts.Args(), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	for _, r := range st {
		delete(r, "func")
	}
	return st, nil
}
