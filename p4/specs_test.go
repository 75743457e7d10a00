package p4

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMissing(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("client", Record{"Client": "nobody", "Root": "/home/nobody", "View0": "//depot/... //nobody/..."})
	c, err := s.Client(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, c)

	tmpl, err := s.ClientTemplate(context.Background(), "nobody", false)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	assert.Equal(t, []string{"//depot/... //nobody/..."}, tmpl.View)
}

func TestClientExisting(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("client", Record{
		"Client": "bruno_ws", "Root": "/ws", "Owner": "bruno",
		"Update": "2012/06/13 10:00:00", "Access": "2012/06/13 11:00:00",
		"View0": "//depot/Jam/... //bruno_ws/Jam/...",
		"View1": "-//depot/Jam/tmp/... //bruno_ws/Jam/tmp/...",
	})
	c, err := s.Client(context.Background(), "bruno_ws")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "/ws", c.Root)
	assert.Len(t, c.View, 2)
	assert.Equal(t, 2012, c.Updated.Year())

	m, err := c.Mapping(true)
	require.NoError(t, err)
	local, ok := m.Translate("//depot/Jam/src/a.c")
	assert.True(t, ok)
	assert.Equal(t, "//bruno_ws/Jam/src/a.c", local)
	_, ok = m.Translate("//depot/Jam/tmp/x")
	assert.False(t, ok)

	tmpl, err := s.ClientTemplate(context.Background(), "bruno_ws", false)
	require.NoError(t, err)
	assert.Nil(t, tmpl)
}

func TestCreateClient(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("client", infoRecord("Client my_new_ws saved."))
	c := &Client{ClientSummary: ClientSummary{Name: "my new\tws", Root: "/tmp/ws"}, View: []string{"//depot/... //my_new_ws/..."}}
	msg, err := s.CreateClient(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "Client my_new_ws saved.", msg)
	call, _ := f.last("client")
	assert.Equal(t, "my_new_ws", call.input["Client"])
	assert.Equal(t, "//depot/... //my_new_ws/...", call.input["View0"])
}

func TestSwitchViews(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("client", infoRecord("Client bruno_ws switched."))
	_, err := s.SwitchClientView(context.Background(), "template_ws", "", true)
	require.NoError(t, err)
	c, _ := f.last("client")
	assert.Equal(t, []string{"-f", "-s", "-t", "template_ws"}, c.args)

	_, err = s.SwitchStreamView(context.Background(), "//streams/dev", "bruno_ws", false)
	require.NoError(t, err)
	c, _ = f.last("client")
	assert.Equal(t, []string{"-s", "-S", "//streams/dev", "bruno_ws"}, c.args)
}

func TestClients(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("clients", Record{"client": "a_ws", "Owner": "bruno", "Update": "1339591200"})
	cs, err := s.Clients(context.Background(), &ClientsOptions{User: "bruno", Filter: "a_*", CaseInsensitive: true, Max: 5})
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "a_ws", cs[0].Name)
	c, _ := f.last("clients")
	assert.Equal(t, "-u bruno -E a_* -m 5", joined(c.args))
}

func TestLabelsAndTag(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("label", Record{"Label": "rel1", "Owner": "bruno", "Update": "2012/06/13 10:00:00", "View0": "//depot/..."})
	l, err := s.Label(context.Background(), "rel1")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, []string{"//depot/..."}, l.View)

	f.on("tag",
		Record{"depotFile": "//depot/a", "rev": "3", "action": "added"},
		errRecord(SeverityWarn, GenericEmpty, "//depot/nothing - no such file(s)."))
	fs, err := s.TagFiles(context.Background(), []string{"//depot/a", "//depot/nothing"}, "rel1", &TagOptions{ListOnly: true})
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, FileValid, fs[0].Status)
	assert.Equal(t, FileWarning, fs[1].Status)
	assert.Len(t, ValidFiles(fs), 1)
	c, _ := f.last("tag")
	assert.Equal(t, "-n -l rel1 //depot/a //depot/nothing", joined(c.args))
}

func TestTagAccessErrorAborts(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("tag", errRecord(SeverityFailed, GenericProtect, "Perforce password (P4PASSWD) invalid or unset."))
	_, err := s.TagFiles(context.Background(), []string{"//depot/a"}, "rel1", nil)
	assert.True(t, errors.Is(err, ErrAccess))
}

func TestBranch(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("branch", infoRecord("Branch jam-rel saved."))
	_, err := s.CreateBranch(context.Background(), &Branch{
		BranchSummary: BranchSummary{Name: "jam-rel", Description: "release"},
		View:          []string{"//depot/Jam/MAIN/... //depot/Jam/REL/..."},
	})
	require.NoError(t, err)
	c, _ := f.last("branch")
	assert.Equal(t, "//depot/Jam/MAIN/... //depot/Jam/REL/...", c.input["View0"])

	f.on("branches", Record{"branch": "jam-rel", "Owner": "bruno"})
	bs, err := s.Branches(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "jam-rel", bs[0].Name)
}

func TestStream(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("stream", infoRecord("Stream //streams/dev saved."))
	_, err := s.CreateStream(context.Background(), &Stream{
		StreamSummary: StreamSummary{Stream: "//streams/dev", Type: StreamDevelop, Parent: "//streams/main"},
		Paths:         []string{"share ..."},
	})
	require.NoError(t, err)
	c, _ := f.last("stream")
	assert.Equal(t, []string{"-i"}, c.args)
	assert.Equal(t, "//streams/main", c.input["Parent"])
	assert.Equal(t, "share ...", c.input["Paths0"])

	_, err = s.CreateStream(context.Background(), &Stream{StreamSummary: StreamSummary{Stream: "//streams/main", Type: StreamMainline}})
	require.NoError(t, err)
	c, _ = f.last("stream")
	assert.Equal(t, "none", c.input["Parent"])
}

func TestCreateJob(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.onFunc("job", func(args []string, input map[string]string) ([]Record, error) {
		if args[0] == "-i" {
			assert.Equal(t, "new", input["Job"])
			assert.Equal(t, "broken build", input["Description"])
			return []Record{infoRecord("Job job000042 saved.")}, nil
		}
		assert.Equal(t, []string{"-o", "job000042"}, args)
		return []Record{{"Job": "job000042", "Status": "open", "Description": "broken build", "Severity": "A"}}, nil
	})
	j, err := s.CreateJob(context.Background(), map[string]string{"Description": "broken build", "Severity": "A"})
	require.NoError(t, err)
	assert.Equal(t, "job000042", j.ID)
	assert.Equal(t, "open", j.Status)
	assert.Equal(t, "A", j.Fields["Severity"])
}

func TestJobSpec(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("jobspec", Record{
		"Fields0":  "101 Job word 32 required",
		"Fields1":  "102 Status select 10 required",
		"Values0":  "Status open/suspended/closed",
		"Presets0": "Status open",
	})
	js, err := s.JobSpec(context.Background())
	require.NoError(t, err)
	require.Len(t, js.Fields, 2)
	assert.Equal(t, JobField{Code: 102, Name: "Status", DataType: "select", Length: 10, FieldType: "required"}, js.Fields[1])
	assert.Equal(t, "open/suspended/closed", js.Values["Status"])
	assert.Equal(t, "open", js.Presets["Status"])
}

func TestUsers(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("users", Record{"User": "bruno", "Email": "bruno@example.com", "FullName": "Bruno", "Access": "1339591200"})
	us, err := s.Users(context.Background(), []string{"b*"}, &UsersOptions{All: true, Max: 1})
	require.NoError(t, err)
	require.Len(t, us, 1)
	assert.Equal(t, "bruno@example.com", us[0].Email)
	c, _ := f.last("users")
	assert.Equal(t, "-a -m 1 b*", joined(c.args))

	f.on("renameuser", infoRecord("User bruno renamed to bruno2."))
	_, err = s.RenameUser(context.Background(), "bruno", "bruno2")
	require.NoError(t, err)
	c, _ = f.last("renameuser")
	assert.Equal(t, []string{"--from=bruno", "--to=bruno2"}, c.args)
}

func TestGroups(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("groups",
		Record{"group": "dev", "user": "bruno", "isUser": "1", "isOwner": "0", "isSubGroup": "0", "maxResults": "unset"},
		Record{"group": "dev", "user": "earl", "isUser": "1", "isOwner": "1", "isSubGroup": "0"},
		Record{"group": "dev", "user": "qa", "isUser": "0", "isOwner": "0", "isSubGroup": "1"},
		Record{"group": "admins", "user": "earl", "isUser": "1", "isOwner": "0", "isSubGroup": "0"})
	gs, err := s.Groups(context.Background(), "", &GroupsOptions{WithValues: true})
	require.NoError(t, err)
	require.Len(t, gs, 2)
	assert.Equal(t, "admins", gs[0].Name)
	dev := gs[1]
	assert.Equal(t, []string{"bruno", "earl"}, dev.Users)
	assert.Equal(t, []string{"earl"}, dev.Owners)
	assert.Equal(t, []string{"qa"}, dev.Subgroups)
	assert.Equal(t, "unset", dev.MaxResults)
}

func TestGroupTemplate(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("group", Record{"Group": "newgroup", "MaxResults": "unset"})
	g, err := s.Group(context.Background(), "newgroup")
	require.NoError(t, err)
	assert.Nil(t, g)

	f.on("group", infoRecord("Group newgroup created."))
	_, err = s.UpdateGroup(context.Background(), &Group{Name: "newgroup", Users: []string{"bruno"}}, true)
	require.NoError(t, err)
	c, _ := f.last("group")
	assert.Equal(t, []string{"-a", "-i"}, c.args)
	assert.Equal(t, "bruno", c.input["Users0"])
}

func TestProtectionTable(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("protect", Record{
		"Protections0": "write user * * //...",
		"Protections1": "super user bruno * //...",
		"Protections2": `=read group contractors 10.0.0.* "-//depot/secret docs/..."`,
	})
	ps, err := s.ProtectionTable(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.Equal(t, ProtectionEntry{Order: 2, Mode: "=read", Group: true, Name: "contractors", Host: "10.0.0.*", Path: "//depot/secret docs/...", Exclude: true}, ps[2])

	f.on("protect", infoRecord("Protections saved."))
	_, err = s.UpdateProtectionTable(context.Background(), ps)
	require.NoError(t, err)
	c, _ := f.last("protect")
	assert.Equal(t, []string{"-i"}, c.args)
	assert.Equal(t, `=read group contractors 10.0.0.* "-//depot/secret docs/..."`, c.input["Protections2"])

	_, err = s.UpdateProtectionTable(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestProtectionLineQuoting(t *testing.T) {
	e, err := ParseProtectionLine(`write user bob * //depot/bob's/...`)
	require.NoError(t, err)
	assert.Equal(t, "//depot/bob's/...", e.Path)

	e, err = ParseProtectionLine(`read group win * -//depot/C:\tmp/...`)
	require.NoError(t, err)
	assert.True(t, e.Exclude)
	assert.Equal(t, `//depot/C:\tmp/...`, e.Path)

	_, err = ParseProtectionLine(`write user bob * "//depot/open`)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestProtects(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("protects",
		Record{"perm": "write", "host": "*", "user": "*", "line": "1", "depotFile": "//..."},
		Record{"perm": "read", "host": "*", "user": "contractors", "isgroup": "", "line": "3", "depotFile": "-//depot/secret/...", "unmap": ""})
	ps, err := s.ProtectionEntries(context.Background(), []string{"//depot/..."}, &ProtectsOptions{User: "earl"})
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.True(t, ps[1].Group)
	assert.True(t, ps[1].Exclude)
	assert.Equal(t, "//depot/secret/...", ps[1].Path)
	assert.Equal(t, 3, ps[1].Order)
}

func TestTriggers(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("triggers", Record{
		"Triggers0": `check change-submit //depot/... "python /p4/check.py %changelist%"`,
		"Triggers1": `form form-out client "/p4/form.sh %formfile%"`,
	})
	ts, err := s.TriggerEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, TriggerEntry{Order: 0, Name: "check", Type: "change-submit", Path: "//depot/...", Command: "python /p4/check.py %changelist%"}, ts[0])

	f.on("triggers", infoRecord("Triggers saved."))
	_, err = s.UpdateTriggerEntries(context.Background(), ts)
	require.NoError(t, err)
	c, _ := f.last("triggers")
	assert.Equal(t, `check change-submit //depot/... "python /p4/check.py %changelist%"`, c.input["Triggers0"])
	assert.Equal(t, `form form-out client "/p4/form.sh %formfile%"`, c.input["Triggers1"])
}

func TestTriggerLineQuoting(t *testing.T) {
	e, err := ParseTriggerLine(`it's-check change-submit //depot/it's/... "C:\p4\check.bat %user%"`)
	require.NoError(t, err)
	assert.Equal(t, TriggerEntry{Name: "it's-check", Type: "change-submit", Path: "//depot/it's/...", Command: `C:\p4\check.bat %user%`}, e)
	assert.Equal(t, `it's-check change-submit //depot/it's/... "C:\p4\check.bat %user%"`, e.String())
}

func TestDepots(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("depot", infoRecord("Depot archive saved."))
	_, err := s.CreateDepot(context.Background(), &Depot{Name: "archive", Description: "old"})
	require.NoError(t, err)
	c, _ := f.last("depot")
	assert.Equal(t, DepotLocal, c.input["Type"])
	assert.Equal(t, "archive/...", c.input["Map"])

	f.on("depots", Record{"name": "depot", "type": "local", "map": "depot/...", "time": "1339591200"})
	ds, err := s.Depots(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "depot/...", ds[0].Map)
}

func TestCountersAndKeys(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("counter", Record{"counter": "change", "value": "702"})
	v, err := s.Counter(context.Background(), "change")
	require.NoError(t, err)
	assert.Equal(t, "702", v)

	v, err = s.SetCounter(context.Background(), "change", "800", &CounterOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, "702", v)
	c, _ := f.last("counter")
	assert.Equal(t, []string{"-f", "change", "800"}, c.args)

	f.on("counters", Record{"counter": "change", "value": "702"}, Record{"counter": "review", "value": "5"})
	cs, err := s.Counters(context.Background(), &CountersOptions{Pattern: "r*"})
	require.NoError(t, err)
	assert.Equal(t, []Counter{{"change", "702"}, {"review", "5"}}, cs)

	f.on("key", infoRecord("Key build deleted."))
	_, err = s.DeleteKey(context.Background(), "build")
	require.NoError(t, err)

	s2, f2, _ := newTestServer(t)
	f2.on("info", Record{"serverVersion": "P4D/LINUX/2012.2/1 (2012/12/01)"})
	_, err = s2.Keys(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNotSupported))
}
