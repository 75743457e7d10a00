// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"p4go/p4"
)

var log = logrus.WithField("source", "p4fs")

// depot is the part of a p4 session the file system reads from.
type depot interface {
	Dirs(ctx context.Context, paths []string) ([]string, error)
	Fstat(ctx context.Context, paths []string, opts *p4.FstatOptions) ([]p4.ExtendedFileSpec, error)
	Changes(ctx context.Context, paths []string, opts *p4.ChangesOptions) ([]p4.Change, error)
	Print(ctx context.Context, path string) ([]byte, error)
}

// P4Fs is a read-only view of the depot. The root holds one directory
// per changelist number, showing the depot as of that change.
type P4Fs struct {
	depot depot
	cache *contentCache
	root  *p4Root
}

func NewP4Fs(d depot, cache *contentCache) *P4Fs {
	pfs := &P4Fs{depot: d, cache: cache}
	pfs.root = &p4Root{pfs: pfs}
	return pfs
}

func (pfs *P4Fs) Root() fs.InodeEmbedder {
	return pfs.root
}

func (pfs *P4Fs) newFolder(path string, change int) *p4Folder {
	return &p4Folder{pfs: pfs, path: path, change: change}
}

func (pfs *P4Fs) newFile(st *p4.ExtendedFileSpec) *p4File {
	return &p4File{pfs: pfs, stat: *st}
}

// head returns the newest submitted change.
func (pfs *P4Fs) head(ctx context.Context) (int, error) {
	cs, err := pfs.depot.Changes(ctx, nil, &p4.ChangesOptions{Max: 1, Status: p4.StatusSubmitted})
	if err != nil {
		return 0, err
	}
	if len(cs) == 0 {
		return 0, p4.ErrNotFound
	}
	return cs[0].Change, nil
}

func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, p4.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, p4.ErrAccess):
		return syscall.EACCES
	}
	return syscall.EIO
}

////////////////

type p4Root struct {
	fs.Inode
	pfs *P4Fs
}

var _ = (fs.NodeLookuper)((*p4Root)(nil))
var _ = (fs.NodeReaddirer)((*p4Root)(nil))

const headName = "head"

func (r *p4Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if name == headName {
		ch, err := r.pfs.head(ctx)
		if err != nil {
			log.WithError(err).Warn("head")
			return nil, toErrno(err)
		}
		link := &p4Link{target: strconv.Itoa(ch)}
		link.fill(&out.Attr)
		return r.NewInode(ctx, link, fs.StableAttr{Mode: fuse.S_IFLNK}), 0
	}
	cl, err := strconv.Atoi(name)
	if err != nil || cl <= 0 {
		return nil, syscall.ENOENT
	}
	node := r.pfs.newFolder("", cl)
	node.fill(&out.Attr)
	return r.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFDIR}), 0
}

// Readdir only shows head; change directories appear on lookup.
func (r *p4Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	return fs.NewListDirStream([]fuse.DirEntry{{Name: headName, Mode: fuse.S_IFLNK}}), 0
}

////////////////

type p4Link struct {
	fs.Inode
	target string
}

var _ = (fs.NodeReadlinker)((*p4Link)(nil))
var _ = (fs.NodeGetattrer)((*p4Link)(nil))

func (l *p4Link) fill(a *fuse.Attr) {
	a.Mode = fuse.S_IFLNK | 0777
	a.Size = uint64(len(l.target))
}

func (l *p4Link) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	return []byte(l.target), 0
}

func (l *p4Link) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	l.fill(&out.Attr)
	return 0
}

////////////////

type p4Folder struct {
	fs.Inode
	pfs    *P4Fs
	change int
	path   string

	mu sync.Mutex
	// nil means they haven't been fetched yet.
	files   map[string]*p4.ExtendedFileSpec
	folders map[string]bool
}

var _ = (fs.NodeLookuper)((*p4Folder)(nil))
var _ = (fs.NodeReaddirer)((*p4Folder)(nil))
var _ = (fs.NodeGetattrer)((*p4Folder)(nil))

func (f *p4Folder) fill(a *fuse.Attr) {
	a.Mode = fuse.S_IFDIR | 0755
}

func (f *p4Folder) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	f.fill(&out.Attr)
	return 0
}

// pattern is the depot path matching the direct children of f.
func (f *p4Folder) pattern() string {
	p := "//" + f.path
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p4.ChangeSpec(p+"*", f.change)
}

func (f *p4Folder) fetch(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files != nil {
		return nil
	}

	p := f.pattern()
	var dirs []string
	var stats []p4.ExtendedFileSpec
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		dirs, err = f.pfs.depot.Dirs(gctx, []string{p})
		return err
	})
	g.Go(func() (err error) {
		stats, err = f.pfs.depot.Fstat(gctx, []string{p}, &p4.FstatOptions{Output: "l"})
		return err
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).WithField("path", p).Warn("fetch")
		return err
	}

	files := map[string]*p4.ExtendedFileSpec{}
	for i := range stats {
		st := &stats[i]
		if st.Status != p4.FileValid || st.Deleted() {
			continue
		}
		files[path.Base(st.DepotPath)] = st
	}
	folders := map[string]bool{}
	for _, d := range dirs {
		folders[path.Base(d)] = true
	}
	f.files, f.folders = files, folders
	return nil
}

func (f *p4Folder) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if err := f.fetch(ctx); err != nil {
		return nil, toErrno(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]fuse.DirEntry, 0, len(f.files)+len(f.folders))
	for n, st := range f.files {
		mode := uint32(fuse.S_IFREG)
		if isSymlink(st) {
			mode = fuse.S_IFLNK
		}
		entries = append(entries, fuse.DirEntry{Name: n, Mode: mode})
	}
	for n := range f.folders {
		entries = append(entries, fuse.DirEntry{Name: n, Mode: fuse.S_IFDIR})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return fs.NewListDirStream(entries), 0
}

func (f *p4Folder) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if err := f.fetch(ctx); err != nil {
		return nil, toErrno(err)
	}
	f.mu.Lock()
	st := f.files[name]
	isDir := f.folders[name]
	f.mu.Unlock()

	switch {
	case st != nil:
		node := f.pfs.newFile(st)
		node.fill(&out.Attr)
		mode := uint32(fuse.S_IFREG)
		if isSymlink(st) {
			mode = fuse.S_IFLNK
		}
		return f.NewInode(ctx, node, fs.StableAttr{Mode: mode}), 0
	case isDir:
		node := f.pfs.newFolder(path.Join(f.path, name), f.change)
		node.fill(&out.Attr)
		return f.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFDIR}), 0
	}
	return nil, syscall.ENOENT
}

////////////////

type p4File struct {
	fs.Inode
	pfs  *P4Fs
	stat p4.ExtendedFileSpec
}

var _ = (fs.NodeGetattrer)((*p4File)(nil))
var _ = (fs.NodeOpener)((*p4File)(nil))
var _ = (fs.NodeReader)((*p4File)(nil))
var _ = (fs.NodeReadlinker)((*p4File)(nil))

func isSymlink(st *p4.ExtendedFileSpec) bool {
	return strings.HasPrefix(st.HeadType, "symlink")
}

func isExecutable(st *p4.ExtendedFileSpec) bool {
	t := st.HeadType
	return strings.Contains(t, "+x") || strings.HasPrefix(t, "xtext") || strings.HasPrefix(t, "xbinary")
}

func (f *p4File) fill(a *fuse.Attr) {
	switch {
	case isSymlink(&f.stat):
		a.Mode = fuse.S_IFLNK | 0777
	case isExecutable(&f.stat):
		a.Mode = fuse.S_IFREG | 0755
	default:
		a.Mode = fuse.S_IFREG | 0644
	}
	a.Size = uint64(f.stat.FileSize)
	mtime := f.stat.HeadTime
	if !f.stat.HeadModTime.IsZero() {
		mtime = f.stat.HeadModTime
	}
	if !mtime.IsZero() {
		a.SetTimes(nil, &mtime, nil)
	}
}

func (f *p4File) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	f.fill(&out.Attr)
	return 0
}

func (f *p4File) key() string {
	return p4.RevisionSpec(f.stat.DepotPath, f.stat.HeadRev)
}

// content returns the file revision, from the cache if possible.
func (f *p4File) content(ctx context.Context) ([]byte, error) {
	id := f.key()
	if f.pfs.cache != nil {
		data, ok, err := f.pfs.cache.get(id)
		if err != nil {
			log.WithError(err).WithField("file", id).Warn("cache read")
		} else if ok {
			return data, nil
		}
	}
	data, err := f.pfs.depot.Print(ctx, id)
	if err != nil {
		log.WithError(err).WithField("file", id).Warn("print")
		return nil, err
	}
	if f.pfs.cache != nil {
		if err := f.pfs.cache.put(id, data); err != nil {
			log.WithError(err).WithField("file", id).Warn("cache write")
		}
	}
	return data, nil
}

func (f *p4File) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&fuse.O_ANYWRITE != 0 {
		return nil, 0, syscall.EROFS
	}
	if _, err := f.content(ctx); err != nil {
		return nil, 0, toErrno(err)
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *p4File) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.content(ctx)
	if err != nil {
		return nil, toErrno(err)
	}
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return fuse.ReadResultData(data[off:end]), 0
}

// Readlink serves symlink revisions, whose content is the target.
func (f *p4File) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	if !isSymlink(&f.stat) {
		return nil, syscall.EINVAL
	}
	data, err := f.content(ctx)
	if err != nil {
		return nil, toErrno(err)
	}
	return []byte(strings.TrimRight(string(data), "\n")), 0
}
