package p4

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalArgs(t *testing.T) {
	c := NewConn(ConnOptions{
		Address:        "ssl:perforce:1666",
		User:           "bruno",
		Client:         "bruno_ws",
		Ticket:         "ABCDEF",
		ProgramName:    "p4fs",
		ProgramVersion: "1.0",
	})
	assert.Equal(t, []string{
		"-p", "ssl:perforce:1666", "-u", "bruno", "-c", "bruno_ws", "-P", "ABCDEF",
		"-zprog=p4fs", "-zversion=1.0",
	}, c.globalArgs())
	assert.Equal(t, "p4", c.Options().Binary)

	d := c.With(func(o *ConnOptions) { o.Client = "other" })
	assert.Equal(t, "other", d.Options().Client)
	assert.Equal(t, "bruno_ws", c.Options().Client)
}

func TestCommandLogMasksTicket(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(level)

	c := NewConn(ConnOptions{Binary: "/bin/true", User: "bruno", Ticket: "s3cret"})
	cmd := c.command(context.Background(), []string{"-G", "info"})
	assert.Equal(t, []string{"/bin/true", "-u", "bruno", "-P", "s3cret", "-G", "info"}, cmd.Args)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "p4", entry.Data["source"])
	logged, _ := entry.Data["cmd"].(string)
	assert.NotContains(t, logged, "s3cret")
	assert.Contains(t, logged, "-P redacted")
}

func TestCommandLogMasksPasswords(t *testing.T) {
	logged := loggable([]string{"-G", "passwd", "-O", "oldsecret", "-P", "newsecret", "bruno"})
	assert.NotContains(t, logged, "oldsecret")
	assert.NotContains(t, logged, "newsecret")
	assert.Equal(t, "-G passwd -O redacted -P redacted bruno", logged)

	assert.Equal(t, "-G fstat -Ol //depot/...", loggable([]string{"-G", "fstat", "-Ol", "//depot/..."}))
}

func TestRunError(t *testing.T) {
	exitErr := exec.Command("sh", "-c", "exit 1").Run()
	require.Error(t, exitErr)

	err := runError([]string{"info"}, "Perforce client error:\n\tConnect to server failed; check $P4PORT.\n", exitErr)
	assert.True(t, errors.Is(err, ErrConnection))

	err = runError([]string{"info"}, "", exec.ErrNotFound)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, errors.Is(err, exec.ErrNotFound))

	err = runError([]string{"login", "-p"}, "Password invalid.\n", exitErr)
	assert.True(t, errors.Is(err, ErrAccess))
	assert.False(t, errors.Is(err, ErrConnection))

	err = runError([]string{"print"}, "Usage: print [-a -o localFile -q] files...\n", exitErr)
	assert.True(t, errors.Is(err, ErrRequest))
}

func TestDecodeRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, map[string]interface{}{"code": "stat", "change": 702, "desc": "x"}))
	require.NoError(t, Encode(&buf, map[string]interface{}{"code": "error", "severity": 3, "generic": 0x26, "data": "TCP receive failed.\n"}))
	recs, err := decodeRecords(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 702, recs[0].Int("change"))
	err = CheckErrors(recs)
	assert.True(t, errors.Is(err, ErrConnection))

	_, err = decodeRecords(strings.NewReader("i\x01\x00\x00\x00"))
	assert.Error(t, err)
}

func TestRecordHelpers(t *testing.T) {
	r := Record{"View0": "a", "View1": "b", "View3": "d", "isOwner": "", "n": " 12 "}
	assert.Equal(t, []string{"a", "b"}, r.List("View"))
	assert.True(t, r.Bool("isOwner"))
	assert.False(t, r.Bool("isUser"))
	assert.Equal(t, 12, r.Int("n"))
	assert.Equal(t, CodeStat, r.Code())

	m := map[string]string{}
	putList(m, "Jobs", []string{"j1", "j2"})
	assert.Equal(t, map[string]string{"Jobs0": "j1", "Jobs1": "j2"}, m)

	assert.Equal(t, 2012, parseTime("2012/06/13 10:11:12").Year())
	assert.Equal(t, int64(1339591200), parseTime("1339591200").Unix())
	assert.True(t, parseTime("yesterday").IsZero())

	info, err := InfoString([]Record{infoRecord("one"), errRecord(SeverityWarn, GenericEmpty, "warned"), infoRecord("two")})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", info)
}

func TestSpecHelpers(t *testing.T) {
	assert.Equal(t, "//depot/a#3", RevisionSpec("//depot/a", 3))
	assert.Equal(t, "//depot/a", RevisionSpec("//depot/a", 0))
	assert.Equal(t, "//depot/...@700", ChangeSpec("//depot/...", 700))
	assert.Equal(t, "//depot/...", DateSpec("//depot/...", parseTime("")))
	assert.Equal(t, "//depot/...@2012/06/13:10:11:12", DateSpec("//depot/...", parseTime("2012/06/13 10:11:12")))
}

func TestLoadConfig(t *testing.T) {
	for _, v := range append(configVars, "P4CONFIG") {
		t.Setenv(v, "")
	}
	t.Setenv("P4PORT", "env:1666")
	t.Setenv("P4USER", "envuser")
	t.Setenv("P4CONFIG", ".p4config")

	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".p4config"),
		[]byte("# workspace settings\nP4CLIENT=cfg_ws\nP4PORT = cfg:1666\nnonsense\n"), 0644))

	c, err := LoadConfig(sub)
	require.NoError(t, err)
	assert.Equal(t, "cfg:1666", c.Port)
	assert.Equal(t, "envuser", c.User)
	assert.Equal(t, "cfg_ws", c.Client)
	assert.Equal(t, filepath.Join(root, ".p4config"), c.ConfigFile)

	o := c.ConnOptions()
	assert.Equal(t, "cfg:1666", o.Address)
	assert.Equal(t, "cfg_ws", o.Client)
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, v := range append(configVars, "P4CONFIG") {
		t.Setenv(v, "")
	}
	c, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, "", c.ConfigFile)
}
