// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
)

// VerifyOptions for p4 verify.
type VerifyOptions struct {
	// Quiet reports only damaged revisions (-q).
	Quiet bool
	// Update computes and stores missing digests (-u); Refresh
	// recomputes all of them (-v).
	Update  bool
	Refresh bool
	// Size also compares file sizes (-z).
	Size bool
	// Shelved verifies shelved files (-S).
	Shelved bool
	Max     int
}

func (o *VerifyOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Quiet, "-q")
	a.flag(o.Update, "-u")
	a.flag(o.Refresh, "-v")
	a.flag(o.Size, "-z")
	a.flag(o.Shelved, "-S")
	a.num("-m", o.Max)
	return a
}

// VerifiedFile is a verified revision. Problem is empty for intact
// revisions, otherwise the server's verdict such as "MISSING!" or
// "BAD!".
type VerifiedFile struct {
	FileSpec
	Problem string
}

// Verify checks archive digests of file revisions.
func (s *Server) Verify(ctx context.Context, paths []string, opts *VerifyOptions) ([]VerifiedFile, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("verify needs a path")
	}
	recs, err := s.run(ctx, "verify", withArgs(opts, paths...), nil)
	if err != nil {
		return nil, err
	}
	var out []VerifiedFile
	for _, r := range recs {
		switch r.Code() {
		case CodeStat:
			out = append(out, VerifiedFile{FileSpec: fileSpecAt(r, ""), Problem: r["status"]})
		case CodeInfo, CodeError:
			fs, err := fileMessage(r)
			if err != nil {
				return nil, err
			}
			out = append(out, VerifiedFile{FileSpec: fs})
		}
	}
	return out, nil
}
