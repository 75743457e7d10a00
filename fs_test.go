package main

import (
	"context"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p4go/p4"
)

type fakeDepot struct {
	mu     sync.Mutex
	dirs   map[string][]string
	stats  map[string][]p4.ExtendedFileSpec
	files  map[string]string
	head   int
	prints int
}

func (d *fakeDepot) Dirs(ctx context.Context, paths []string) ([]string, error) {
	return d.dirs[paths[0]], nil
}

// Fstat reports sizes only for -Ol, like the server.
func (d *fakeDepot) Fstat(ctx context.Context, paths []string, opts *p4.FstatOptions) ([]p4.ExtendedFileSpec, error) {
	withSize := opts != nil && strings.Contains(opts.Output, "l")
	out := make([]p4.ExtendedFileSpec, len(d.stats[paths[0]]))
	copy(out, d.stats[paths[0]])
	if !withSize {
		for i := range out {
			out[i].FileSize = 0
		}
	}
	return out, nil
}

func (d *fakeDepot) Changes(ctx context.Context, paths []string, opts *p4.ChangesOptions) ([]p4.Change, error) {
	if d.head == 0 {
		return nil, nil
	}
	return []p4.Change{{Change: d.head, Status: p4.StatusSubmitted}}, nil
}

func (d *fakeDepot) Print(ctx context.Context, path string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prints++
	c, ok := d.files[path]
	if !ok {
		return nil, &p4.ServerError{Severity: p4.SeverityWarn, Generic: p4.GenericEmpty, Message: path + " - no such file(s)."}
	}
	return []byte(c), nil
}

func stat(path string, rev int, action, typ string) p4.ExtendedFileSpec {
	return p4.ExtendedFileSpec{
		FileSpec:   p4.FileSpec{DepotPath: path, Revision: rev, FileSize: 4},
		HeadRev:    rev,
		HeadAction: action,
		HeadType:   typ,
	}
}

func newTestFs(t *testing.T) (*P4Fs, *fakeDepot) {
	d := &fakeDepot{
		dirs: map[string][]string{
			"//*@700":       {"//depot"},
			"//depot/*@700": {"//depot/Jam"},
		},
		stats: map[string][]p4.ExtendedFileSpec{
			"//depot/*@700": {
				stat("//depot/README", 2, "edit", "text"),
				stat("//depot/gone", 3, "delete", "text"),
				stat("//depot/run.sh", 1, "add", "text+x"),
				stat("//depot/latest", 1, "add", "symlink"),
				{FileSpec: p4.FileSpec{Status: p4.FileWarning, Message: "no such file(s)"}},
			},
		},
		files: map[string]string{
			"//depot/README#2": "read",
			"//depot/latest#1": "Jam/MAIN\n",
		},
		head: 702,
	}
	cache, err := openCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return NewP4Fs(d, cache), d
}

func TestFolderFetch(t *testing.T) {
	pfs, _ := newTestFs(t)
	f := pfs.newFolder("depot", 700)
	assert.Equal(t, "//depot/*@700", f.pattern())
	require.NoError(t, f.fetch(context.Background()))

	assert.Len(t, f.files, 3)
	assert.Nil(t, f.files["gone"])
	assert.NotNil(t, f.files["README"])
	assert.True(t, f.folders["Jam"])

	root := pfs.newFolder("", 700)
	assert.Equal(t, "//*@700", root.pattern())
	require.NoError(t, root.fetch(context.Background()))
	assert.True(t, root.folders["depot"])
}

func TestFileAttrs(t *testing.T) {
	pfs, _ := newTestFs(t)
	f := pfs.newFolder("depot", 700)
	require.NoError(t, f.fetch(context.Background()))

	var a fuse.Attr
	pfs.newFile(f.files["README"]).fill(&a)
	assert.Equal(t, uint32(fuse.S_IFREG|0644), a.Mode)
	assert.Equal(t, uint64(len("read")), a.Size)

	pfs.newFile(f.files["run.sh"]).fill(&a)
	assert.Equal(t, uint32(fuse.S_IFREG|0755), a.Mode)

	pfs.newFile(f.files["latest"]).fill(&a)
	assert.Equal(t, uint32(fuse.S_IFLNK|0777), a.Mode)
}

func TestFileContentCached(t *testing.T) {
	pfs, d := newTestFs(t)
	f := pfs.newFolder("depot", 700)
	require.NoError(t, f.fetch(context.Background()))
	file := pfs.newFile(f.files["README"])

	for i := 0; i < 3; i++ {
		c, err := file.content(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "read", string(c))
	}
	assert.Equal(t, 1, d.prints)

	res, errno := file.Read(context.Background(), nil, make([]byte, 2), 2)
	require.Equal(t, syscall.Errno(0), errno)
	buf, _ := res.Bytes(nil)
	assert.Equal(t, "ad", string(buf))

	_, _, errno = file.Open(context.Background(), syscall.O_RDWR)
	assert.Equal(t, syscall.EROFS, errno)

	target, errno := pfs.newFile(f.files["latest"]).Readlink(context.Background())
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, "Jam/MAIN", string(target))
}

func TestFileMissingContent(t *testing.T) {
	pfs, _ := newTestFs(t)
	f := pfs.newFolder("depot", 700)
	require.NoError(t, f.fetch(context.Background()))
	_, _, errno := pfs.newFile(f.files["run.sh"]).Open(context.Background(), syscall.O_RDONLY)
	assert.Equal(t, syscall.ENOENT, errno)
}

func TestHead(t *testing.T) {
	pfs, d := newTestFs(t)
	h, err := pfs.head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 702, h)

	d.head = 0
	_, err = pfs.head(context.Background())
	assert.Equal(t, syscall.ENOENT, toErrno(err))
}

func TestCacheEmptyContent(t *testing.T) {
	c, err := openCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.get("//depot/empty#1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.put("//depot/empty#1", nil))
	data, ok, err := c.get("//depot/empty#1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, data)
}
