package p4

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeStringTruncatesRunes(t *testing.T) {
	c := Change{Change: 9, User: "bruno", Desc: strings.Repeat("é", 300)}
	out := c.String()
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "change 9 by bruno - "+strings.Repeat("é", descLimit), out)
}

func TestChanges(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("changes",
		Record{"change": "702", "user": "bruno", "status": "submitted", "time": "1339591200", "desc": "fix jam\n", "client": "bruno_ws"},
		Record{"change": "701", "user": "earl", "status": "submitted", "time": "1339590000", "desc": "add", "client": "earl_ws"},
		errRecord(SeverityWarn, GenericEmpty, "//depot/empty/... - no such file(s)."))

	cs, err := s.Changes(context.Background(), []string{"//depot/...", ""},
		&ChangesOptions{Max: 2, Status: StatusSubmitted, Long: true, Truncated: true})
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, 702, cs[0].Change)
	assert.Equal(t, "bruno", cs[0].User)
	assert.Equal(t, int64(1339591200), cs[0].Time.Unix())
	assert.Equal(t, "change 701 by earl - add", cs[1].String())

	c, _ := f.last("changes")
	assert.Equal(t, "-l -m 2 -s submitted //depot/...", joined(c.args))
}

func TestChangesError(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("changes", errRecord(SeverityFailed, GenericUsage, "Invalid option: -x."))
	_, err := s.Changes(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrRequest))
	assert.False(t, errors.Is(err, ErrAccess))
	assert.EqualError(t, err, "Invalid option: -x.")
}

func TestChangelistNewForm(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("change", Record{"Change": "new", "Client": "bruno_ws", "User": "bruno", "Status": "new", "Description": "<enter description here>\n"})
	c, err := s.Changelist(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, c.ID)
	assert.Equal(t, "bruno_ws", c.Client)
	call, _ := f.last("change")
	assert.Equal(t, []string{"-o"}, call.args)
}

func TestCreateChangelist(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("change", infoRecord("Change 1234 created with 2 open file(s)."))
	id, err := s.CreateChangelist(context.Background(), &Changelist{
		ID:          99,
		Description: "new work",
		Files:       []string{"//depot/a", "//depot/b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1234, id)

	c, _ := f.last("change")
	assert.Equal(t, []string{"-i"}, c.args)
	assert.Equal(t, map[string]string{
		"Change":      "new",
		"Description": "new work",
		"Files0":      "//depot/a",
		"Files1":      "//depot/b",
	}, c.input)
}

func TestCreateChangelistOddReply(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("change", infoRecord("something else"))
	_, err := s.CreateChangelist(context.Background(), &Changelist{Description: "x"})
	assert.True(t, errors.Is(err, ErrRequest))
}

func TestUpdateAndDeleteChangelist(t *testing.T) {
	s, f, _ := newTestServer(t)
	_, err := s.UpdateChangelist(context.Background(), &Changelist{Description: "x"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	f.on("change", infoRecord("Change 12 updated."))
	msg, err := s.UpdateChangelist(context.Background(), &Changelist{ID: 12, Description: "x"}, &UpdateChangelistOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, "Change 12 updated.", msg)
	c, _ := f.last("change")
	assert.Equal(t, []string{"-f", "-i"}, c.args)
	assert.Equal(t, "12", c.input["Change"])

	f.on("change", infoRecord("Change 12 deleted."))
	_, err = s.DeleteChangelist(context.Background(), 12, false)
	require.NoError(t, err)
	c, _ = f.last("change")
	assert.Equal(t, []string{"-d", "12"}, c.args)
}

func TestDescribe(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("describe", Record{
		"change": "700", "user": "bruno", "status": "submitted", "desc": "jam",
		"depotFile0": "//depot/Jam/a.c", "rev0": "3", "action0": "edit", "type0": "text",
		"depotFile1": "//depot/Jam/b.c", "rev1": "1", "action1": "add", "type1": "text",
		"job0": "job000001",
	})
	d, err := s.Describe(context.Background(), 700, nil)
	require.NoError(t, err)
	assert.Equal(t, 700, d.Change.Change)
	require.Len(t, d.Files, 2)
	assert.Equal(t, "//depot/Jam/b.c", d.Files[1].DepotPath)
	assert.Equal(t, 700, d.Files[1].Change)
	assert.Equal(t, 3, d.Files[0].Revision)
	assert.Equal(t, []string{"job000001"}, d.Jobs)
	c, _ := f.last("describe")
	assert.Equal(t, []string{"-s", "700"}, c.args)

	_, err = s.ShelvedFiles(context.Background(), 700)
	require.NoError(t, err)
	c, _ = f.last("describe")
	assert.Equal(t, []string{"-s", "-S", "700"}, c.args)
}

func TestSubmit(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("submit",
		Record{"change": "12", "openFiles": "1", "locked": "1"},
		Record{"depotFile": "//depot/a", "rev": "4", "action": "edit"},
		Record{"submittedChange": "15"})
	id, files, err := s.Submit(context.Background(), 12, &SubmitOptions{Reopen: true})
	require.NoError(t, err)
	assert.Equal(t, 15, id)
	require.Len(t, files, 1)
	assert.Equal(t, 4, files[0].Revision)
	c, _ := f.last("submit")
	assert.Equal(t, []string{"-r", "-c", "12"}, c.args)
}

func TestFixes(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("fix", Record{"Job": "job000001", "Change": "12", "Status": "closed"})
	fixes, err := s.FixJobs(context.Background(), []string{"job000001"}, 12, &FixOptions{Status: "closed"})
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, 12, fixes[0].Change)
	c, _ := f.last("fix")
	assert.Equal(t, []string{"-s", "closed", "-c", "12", "job000001"}, c.args)

	_, err = s.FixJobs(context.Background(), nil, 12, nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	f.on("fixes", Record{"Job": "job000001", "Change": "12", "User": "bruno"})
	fixes, err = s.Fixes(context.Background(), []string{"//depot/..."}, &FixesOptions{Job: "job000001"})
	require.NoError(t, err)
	assert.Equal(t, "bruno", fixes[0].User)
	c, _ = f.last("fixes")
	assert.Equal(t, []string{"-j", "job000001", "//depot/..."}, c.args)
}
