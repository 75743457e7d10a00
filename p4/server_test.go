package p4

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerVersion(t *testing.T) {
	for in, want := range map[string]int{
		testVersion: 20191,
		"P4D/NTX64/2009.2/238357 (2010/03/15)":          20092,
		"P4D/LINUX26X86_64/2021.1.PREP-TEST_ONLY/12345": 20211,
		"P4D/LINUX/2015.2-BETA/1":                       20152,
		"":                                              0,
		"garbage":                                       0,
		"P4D/LINUX/unknown/1":                           0,
	} {
		assert.Equal(t, want, ParseServerVersion(in), in)
	}
}

func TestInfoCached(t *testing.T) {
	s, f, _ := newTestServer(t)
	ctx := context.Background()
	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bruno", info.UserName)
	assert.True(t, info.CaseSensitive())
	_, err = s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("info"))

	s.SetUser("other")
	_, err = s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("info"))
	assert.Equal(t, "other", f.options().User)

	s.SetClient("other_ws")
	_, err = s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, f.count("info"))
	assert.Equal(t, "other_ws", f.options().Client)
}

func TestRequireVersion(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("info", Record{"serverVersion": "P4D/NTX64/2010.1/1 (2010/06/01)"})
	_, err := s.Streams(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrNotSupported), "%v", err)
	assert.Equal(t, 0, f.count("streams"))

	s, f, _ = newTestServer(t)
	f.on("info", Record{"serverVersion": "unparseable"})
	f.on("streams", Record{"Stream": "//streams/main", "Type": "mainline"})
	st, err := s.Streams(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, st, 1)
}

func TestSetCharset(t *testing.T) {
	s, f, _ := newTestServer(t)
	assert.True(t, errors.Is(s.SetCharset("klingon"), ErrInvalidArgument))
	require.NoError(t, s.SetCharset("utf8"))
	assert.Equal(t, "utf8", f.options().Charset)
	assert.Contains(t, KnownCharsets(), "shiftjis")
}

func TestLogin(t *testing.T) {
	s, f, store := newTestServer(t)
	f.raw["login"] = "Enter password: \nABCDEF0123456789\n"
	require.NoError(t, s.Login(context.Background(), "secret", &LoginOptions{AllHosts: true}))

	c, ok := f.last("login")
	require.True(t, ok)
	assert.Equal(t, []string{"-p", "-a"}, c.args)
	assert.Equal(t, []string{"secret\n"}, f.stdin)
	assert.Equal(t, "ABCDEF0123456789", s.Ticket())
	assert.Equal(t, "ABCDEF0123456789", f.options().Ticket)

	tk, ok, err := store.Lookup("bruno", "perforce:1666")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ABCDEF0123456789", tk.Value)
}

func TestLoginNoTicket(t *testing.T) {
	s, f, store := newTestServer(t)
	f.raw["login"] = "\n"
	err := s.Login(context.Background(), "secret", nil)
	assert.True(t, errors.Is(err, ErrAccess))
	assert.Empty(t, store.Tickets())
}

func TestLoginStatusAndLogout(t *testing.T) {
	s, f, store := newTestServer(t)
	require.NoError(t, store.Save(ticketFor("bruno", "perforce:1666", "T1")))
	s.SetTicket("T1")

	f.onFunc("login", func(args []string, _ map[string]string) ([]Record, error) {
		assert.Equal(t, []string{"-s"}, args)
		return []Record{{"User": "bruno", "TicketExpiration": "3600"}}, nil
	})
	st, err := s.LoginStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bruno", st.User)
	assert.Equal(t, float64(1), st.Expires.Hours())

	f.on("logout", infoRecord("User bruno logged out."))
	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, "", s.Ticket())
	_, ok, err := store.Lookup("bruno", "perforce:1666")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginStatusExpired(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("login", errRecord(SeverityFailed, GenericUsage, "Your session has expired, please login again."))
	_, err := s.LoginStatus(context.Background())
	assert.True(t, errors.Is(err, ErrAccess))
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, AuthSessionExpired, se.Auth)
}

func TestChangePassword(t *testing.T) {
	s, f, _ := newTestServer(t)
	f.on("passwd", infoRecord("Password updated."))
	msg, err := s.ChangePassword(context.Background(), "old", "new", "")
	require.NoError(t, err)
	assert.Equal(t, "Password updated.", msg)
	c, _ := f.last("passwd")
	assert.Equal(t, []string{"-O", "old", "-P", "new"}, c.args)

	_, err = s.ChangePassword(context.Background(), "old", "", "")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
