// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ExtendedFileSpec is an fstat result.
type ExtendedFileSpec struct {
	FileSpec
	HeadAction  string
	HeadType    string
	HeadTime    time.Time
	HeadRev     int
	HeadChange  int
	HeadModTime time.Time
	HaveRev     int
	ActionOwner string
	OtherOpen   int
	IsMapped    bool
	Shelved     bool
	Unresolved  bool
	OurLock     bool
	OtherLock   bool
	// Description is filled by -Oc style options that return it.
	Description string
}

// Deleted reports whether the head revision is a delete.
func (f *ExtendedFileSpec) Deleted() bool {
	return f.HeadAction == "delete" || f.HeadAction == "move/delete"
}

// fstatBatch is the number of paths given to one fstat process.
const fstatBatch = 100

// fstatWorkers bounds the concurrent fstat processes.
const fstatWorkers = 4

// FstatOptions for p4 fstat.
type FstatOptions struct {
	Max int
	// Filter is an -F expression such as "^headAction=delete".
	Filter string
	// Fields limits the returned fields (-T).
	Fields string
	// Output holds the letters of -O, e.g. "l" for file sizes and
	// digests.
	Output string
	// Shelved lists shelved files of the change in Change (-Rs).
	Shelved bool
	// Change limits output to files opened in change (-e).
	Change int
}

func (o *FstatOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.num("-m", o.Max)
	a.str("-F", o.Filter)
	a.str("-T", o.Fields)
	a.joined("-O", o.Output)
	a.flag(o.Shelved, "-Rs")
	a.num("-e", o.Change)
	return a
}

func extendedFromRecord(r Record) ExtendedFileSpec {
	fs := fileSpecAt(r, "")
	if fs.Revision == 0 {
		fs.Revision = r.Int("headRev")
	}
	if fs.Action == "" {
		fs.Action = r["headAction"]
	}
	if fs.Type == "" {
		fs.Type = r["headType"]
	}
	if fs.Change == 0 {
		fs.Change = r.Int("headChange")
	}
	if fs.Time.IsZero() {
		fs.Time = r.Time("headTime")
	}
	return ExtendedFileSpec{
		FileSpec:    fs,
		HeadAction:  r["headAction"],
		HeadType:    r["headType"],
		HeadTime:    r.Time("headTime"),
		HeadRev:     r.Int("headRev"),
		HeadChange:  r.Int("headChange"),
		HeadModTime: r.Time("headModTime"),
		HaveRev:     r.Int("haveRev"),
		ActionOwner: r["actionOwner"],
		OtherOpen:   r.Int("otherOpen"),
		IsMapped:    r.Bool("isMapped"),
		Shelved:     r.Bool("shelved"),
		Unresolved:  r.Bool("unresolved"),
		OurLock:     r.Bool("ourLock"),
		OtherLock:   r.Bool("otherLock"),
		Description: r["desc"],
	}
}

// Fstat returns file metadata. Large path lists are split over a few
// concurrent fstat processes; the result keeps the order of paths.
// With Max set, a single process runs so the limit covers all paths.
func (s *Server) Fstat(ctx context.Context, paths []string, opts *FstatOptions) ([]ExtendedFileSpec, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("fstat needs a path")
	}
	if opts != nil && opts.Max > 0 {
		return s.fstat(ctx, paths, opts)
	}
	var batches [][]string
	for len(paths) > fstatBatch {
		batches = append(batches, paths[:fstatBatch])
		paths = paths[fstatBatch:]
	}
	batches = append(batches, paths)

	results := make([][]ExtendedFileSpec, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fstatWorkers)
	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			r, err := s.fstat(ctx, b, opts)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []ExtendedFileSpec
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (s *Server) fstat(ctx context.Context, paths []string, opts *FstatOptions) ([]ExtendedFileSpec, error) {
	recs, err := s.run(ctx, "fstat", withArgs(opts, paths...), nil)
	if err != nil {
		return nil, err
	}
	out := make([]ExtendedFileSpec, 0, len(recs))
	for _, r := range recs {
		switch r.Code() {
		case CodeStat:
			// -Oc style options add a trailing record with only desc.
			if r["depotFile"] == "" && r["clientFile"] == "" {
				continue
			}
			out = append(out, extendedFromRecord(r))
		case CodeInfo, CodeError:
			fs, err := fileMessage(r)
			if err != nil {
				return nil, err
			}
			out = append(out, ExtendedFileSpec{FileSpec: fs})
		}
	}
	return out, nil
}

// FilesOptions for p4 files.
type FilesOptions struct {
	// AllRevisions lists every revision (-a).
	AllRevisions bool
	// Archived includes archived revisions (-A).
	Archived bool
	// ExcludeDeleted skips deleted head revisions (-e).
	ExcludeDeleted bool
	Max            int
}

func (o *FilesOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.AllRevisions, "-a")
	a.flag(o.Archived, "-A")
	a.flag(o.ExcludeDeleted, "-e")
	a.num("-m", o.Max)
	return a
}

func (s *Server) Files(ctx context.Context, paths []string, opts *FilesOptions) ([]FileSpec, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("files needs a path")
	}
	recs, err := s.run(ctx, "files", withArgs(opts, paths...), nil)
	if err != nil {
		return nil, err
	}
	return fileResults(recs)
}

// Dirs lists the depot directories matching paths, like
// "//depot/project/*". Paths without subdirectories yield nothing.
func (s *Server) Dirs(ctx context.Context, paths []string) ([]string, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("dirs needs a path")
	}
	recs, err := s.run(ctx, "dirs", paths, nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(st))
	for _, r := range st {
		if d := r["dir"]; d != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

// OpenedFile is a file open in some client.
type OpenedFile struct {
	FileSpec
	HaveRev int
	// Pending is the change name the file is open in, "default" or a
	// number.
	Pending string
}

// OpenedOptions for p4 opened.
type OpenedOptions struct {
	// AllClients lists files open in any client (-a).
	AllClients bool
	Change     int
	// DefaultChange restricts to the default change (-c default).
	DefaultChange bool
	Client        string
	User          string
	Max           int
	// Short skips the file types and revisions (-s).
	Short bool
}

func (o *OpenedOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.AllClients, "-a")
	if o.DefaultChange {
		a.add("-c", "default")
	} else {
		a.num("-c", o.Change)
	}
	a.str("-C", o.Client)
	a.str("-u", o.User)
	a.num("-m", o.Max)
	a.flag(o.Short, "-s")
	return a
}

func (s *Server) Opened(ctx context.Context, paths []string, opts *OpenedOptions) ([]OpenedFile, error) {
	recs, err := s.run(ctx, "opened", withArgs(opts, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	out := make([]OpenedFile, 0, len(recs))
	for _, r := range recs {
		switch r.Code() {
		case CodeStat:
			out = append(out, OpenedFile{
				FileSpec: fileSpecAt(r, ""),
				HaveRev:  r.Int("haveRev"),
				Pending:  r["change"],
			})
		case CodeInfo, CodeError:
			fs, err := fileMessage(r)
			if err != nil {
				return nil, err
			}
			out = append(out, OpenedFile{FileSpec: fs})
		}
	}
	return out, nil
}

// Integration is one integration record of a file revision.
type Integration struct {
	How      string
	File     string
	StartRev string
	EndRev   string
}

// FileRevision is one revision in a file's history.
type FileRevision struct {
	DepotPath    string
	Revision     int
	Change       int
	Action       string
	Type         string
	Time         time.Time
	User         string
	Client       string
	Description  string
	Digest       string
	FileSize     int64
	Integrations []Integration
}

// FileLog is the history of one file, newest revision first.
type FileLog struct {
	DepotPath string
	Revisions []FileRevision
}

// FilelogOptions for p4 filelog.
type FilelogOptions struct {
	// FollowBranches follows branch history (-i).
	FollowBranches bool
	// Long returns full descriptions (-l); LongTruncated truncates
	// them to 250 characters (-L).
	Long          bool
	LongTruncated bool
	// Time includes the time of day (-t).
	Time bool
	Max  int
	// Short omits non-contributory integrations (-s).
	Short bool
	// Content follows content of promoted task streams (-p).
	Content bool
}

func (o *FilelogOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.FollowBranches, "-i")
	a.flag(o.Long, "-l")
	a.flag(o.LongTruncated, "-L")
	a.flag(o.Time, "-t")
	a.num("-m", o.Max)
	a.flag(o.Short, "-s")
	a.flag(o.Content, "-p")
	return a
}

// Filelog returns the revision history of each file in paths.
func (s *Server) Filelog(ctx context.Context, paths []string, opts *FilelogOptions) ([]FileLog, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("filelog needs a path")
	}
	recs, err := s.run(ctx, "filelog", withArgs(opts, paths...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]FileLog, 0, len(st))
	for _, r := range st {
		fl := FileLog{DepotPath: r["depotFile"]}
		for i := 0; ; i++ {
			idx := strconv.Itoa(i)
			if _, ok := r["rev"+idx]; !ok {
				break
			}
			rev := FileRevision{
				DepotPath:   fl.DepotPath,
				Revision:    r.Int("rev" + idx),
				Change:      r.Int("change" + idx),
				Action:      r["action"+idx],
				Type:        r["type"+idx],
				Time:        r.Time("time" + idx),
				User:        r["user"+idx],
				Client:      r["client"+idx],
				Description: r["desc"+idx],
				Digest:      r["digest"+idx],
				FileSize:    r.Int64("fileSize" + idx),
			}
			for j := 0; ; j++ {
				jdx := idx + "," + strconv.Itoa(j)
				how, ok := r["how"+jdx]
				if !ok {
					break
				}
				rev.Integrations = append(rev.Integrations, Integration{
					How:      how,
					File:     r["file"+jdx],
					StartRev: r["srev"+jdx],
					EndRev:   r["erev"+jdx],
				})
			}
			fl.Revisions = append(fl.Revisions, rev)
		}
		out = append(out, fl)
	}
	return out, nil
}

// WhereMapping is how one path maps through the client view.
type WhereMapping struct {
	DepotPath  string
	ClientPath string
	LocalPath  string
	// Unmapped is set for exclusion lines of the view.
	Unmapped bool
}

func (s *Server) Where(ctx context.Context, paths []string) ([]WhereMapping, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("where needs a path")
	}
	recs, err := s.run(ctx, "where", paths, nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]WhereMapping, 0, len(st))
	for _, r := range st {
		_, unmap := r["unmap"]
		out = append(out, WhereMapping{
			DepotPath:  r["depotFile"],
			ClientPath: r["clientFile"],
			LocalPath:  r["path"],
			Unmapped:   unmap,
		})
	}
	return out, nil
}

// FileSize is a sizes result; Count is set when summarizing.
type FileSize struct {
	DepotPath string
	Revision  int
	Size      int64
	Count     int
}

// SizesOptions for p4 sizes.
type SizesOptions struct {
	// AllRevisions sizes every revision (-a).
	AllRevisions bool
	// Summary sums each path argument (-s).
	Summary bool
}

func (o *SizesOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.AllRevisions, "-a")
	a.flag(o.Summary, "-s")
	return a
}

func (s *Server) Sizes(ctx context.Context, paths []string, opts *SizesOptions) ([]FileSize, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("sizes needs a path")
	}
	recs, err := s.run(ctx, "sizes", withArgs(opts, paths...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]FileSize, 0, len(st))
	for _, r := range st {
		out = append(out, FileSize{
			DepotPath: r["depotFile"],
			Revision:  r.Int("rev"),
			Size:      r.Int64("fileSize"),
			Count:     r.Int("fileCount"),
		})
	}
	return out, nil
}

// MoveOptions for p4 move.
type MoveOptions struct {
	Change int
	Force  bool
	// KeepLocal leaves the workspace files alone (-k).
	KeepLocal bool
	// Preview shows what would happen (-n).
	Preview bool
	Type    string
}

func (o *MoveOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.num("-c", o.Change)
	a.flag(o.Force, "-f")
	a.flag(o.KeepLocal, "-k")
	a.flag(o.Preview, "-n")
	a.str("-t", o.Type)
	return a
}

// Move renames an opened file.
func (s *Server) Move(ctx context.Context, from, to string, opts *MoveOptions) ([]FileSpec, error) {
	if from == "" || to == "" {
		return nil, invalidArg("move needs source and target")
	}
	recs, err := s.run(ctx, "move", withArgs(opts, from, to), nil)
	if err != nil {
		return nil, err
	}
	return fileResults(recs)
}

// ObliterateOptions for p4 obliterate.
type ObliterateOptions struct {
	// Execute really removes the files (-y); without it obliterate
	// only reports.
	Execute bool
	// SkipArchives leaves archive files in place (-a).
	SkipArchives bool
	// BranchedOnly removes only lazy-copied branched revisions (-b).
	BranchedOnly bool
	// SkipHave leaves have records in place (-h).
	SkipHave bool
}

func (o *ObliterateOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Execute, "-y")
	a.flag(o.SkipArchives, "-a")
	a.flag(o.BranchedOnly, "-b")
	a.flag(o.SkipHave, "-h")
	return a
}

// ObliterateResult summarizes one obliterate run.
type ObliterateResult struct {
	Purged []FileSpec

	IntegrationRecordsAdded   int
	LabelRecordsDeleted       int
	ClientRecordsDeleted      int
	IntegrationRecordsDeleted int
	WorkingRecordsDeleted     int
	RevisionRecordsDeleted    int
	// ReportOnly is set when -y was not given.
	ReportOnly bool
	Messages   []FileSpec
}

// Obliterate removes files and their history from the server.
func (s *Server) Obliterate(ctx context.Context, paths []string, opts *ObliterateOptions) (*ObliterateResult, error) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return nil, invalidArg("obliterate needs a path")
	}
	if opts != nil && (opts.SkipArchives || opts.BranchedOnly) {
		if err := s.requireVersion(ctx, VersionObliterateBranched, "obliterate -a/-b"); err != nil {
			return nil, err
		}
	}
	recs, err := s.run(ctx, "obliterate", withArgs(opts, paths...), nil)
	if err != nil {
		return nil, err
	}
	res := &ObliterateResult{ReportOnly: opts == nil || !opts.Execute}
	for _, r := range recs {
		switch r.Code() {
		case CodeStat:
			if f := r["purgeFile"]; f != "" {
				res.Purged = append(res.Purged, FileSpec{DepotPath: f, Revision: r.Int("purgeRev")})
				continue
			}
			res.IntegrationRecordsAdded += r.Int("integrationRecAdded")
			res.LabelRecordsDeleted += r.Int("labelRecDeleted")
			res.ClientRecordsDeleted += r.Int("clientRecDeleted")
			res.IntegrationRecordsDeleted += r.Int("integrationRecDeleted")
			res.WorkingRecordsDeleted += r.Int("workingRecDeleted")
			res.RevisionRecordsDeleted += r.Int("revisionRecDeleted")
			if _, ok := r["reportOnly"]; ok {
				res.ReportOnly = true
			}
		case CodeInfo, CodeError:
			fs, err := fileMessage(r)
			if err != nil {
				return nil, err
			}
			res.Messages = append(res.Messages, fs)
		}
	}
	return res, nil
}

// Print returns the content of one file revision.
func (s *Server) Print(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, invalidArg("print needs a path")
	}
	r, err := s.raw()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.PrintTo(ctx, path, &buf); err != nil {
		return nil, fmt.Errorf("print %s: %w", path, err)
	}
	return buf.Bytes(), nil
}
