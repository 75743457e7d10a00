package p4

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"p4go/p4/tickets"
)

const testVersion = "P4D/LINUX26X86_64/2019.1/1796703 (2019/05/10)"

type call struct {
	cmd   string
	args  []string
	input map[string]string
}

type replyFunc func(args []string, input map[string]string) ([]Record, error)

// fakeExec answers commands with canned records and remembers what
// it was asked to run.
type fakeExec struct {
	mu      sync.Mutex
	opts    ConnOptions
	calls   []call
	replies map[string]replyFunc
	raw     map[string]string
	files   map[string]string
	stdin   []string
}

func newFakeExec() *fakeExec {
	f := &fakeExec{
		replies: map[string]replyFunc{},
		raw:     map[string]string{},
		files:   map[string]string{},
	}
	f.on("info", Record{"userName": "bruno", "serverVersion": testVersion, "caseHandling": "sensitive"})
	return f
}

func (f *fakeExec) on(cmd string, recs ...Record) {
	f.onFunc(cmd, func([]string, map[string]string) ([]Record, error) { return recs, nil })
}

func (f *fakeExec) onFunc(cmd string, r replyFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[cmd] = r
}

func (f *fakeExec) Run(ctx context.Context, cmd string, args []string, input map[string]string) ([]Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{cmd, append([]string(nil), args...), input})
	r := f.replies[cmd]
	f.mu.Unlock()
	if r == nil {
		return nil, fmt.Errorf("fake: unexpected command %s %v", cmd, args)
	}
	return r(args, input)
}

func (f *fakeExec) RunInput(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{cmd: args[0], args: append([]string(nil), args[1:]...)})
	f.stdin = append(f.stdin, string(stdin))
	out, ok := f.raw[args[0]]
	if !ok {
		return nil, fmt.Errorf("fake: unexpected raw command %v", args)
	}
	return []byte(out), nil
}

func (f *fakeExec) PrintTo(ctx context.Context, path string, w io.Writer) error {
	f.mu.Lock()
	content, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		return &ServerError{Severity: SeverityWarn, Generic: GenericEmpty, Message: path + " - no such file(s)."}
	}
	_, err := io.WriteString(w, content)
	return err
}

// last returns the most recent call of cmd.
func (f *fakeExec) last(cmd string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].cmd == cmd {
			return f.calls[i], true
		}
	}
	return call{}, false
}

func (f *fakeExec) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.cmd == cmd {
			n++
		}
	}
	return n
}

func (f *fakeExec) options() ConnOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts
}

func newTestServer(t *testing.T) (*Server, *fakeExec, *tickets.Memory) {
	t.Helper()
	f := newFakeExec()
	store := tickets.NewMemory()
	s := NewServerExecutor(ConnOptions{Address: "perforce:1666", User: "bruno", Client: "bruno_ws"}, store,
		func(o ConnOptions) Executor {
			f.mu.Lock()
			f.opts = o
			f.mu.Unlock()
			return f
		})
	return s, f, store
}

func errRecord(sev Severity, generic Generic, msg string) Record {
	return Record{
		"code":     CodeError,
		"severity": fmt.Sprint(int(sev)),
		"generic":  fmt.Sprint(int(generic)),
		"data":     msg + "\n",
	}
}

func infoRecord(msg string) Record {
	return Record{"code": CodeInfo, "level": "0", "data": msg}
}

func joined(args []string) string {
	return strings.Join(args, " ")
}

func ticketFor(user, addr, value string) tickets.Ticket {
	return tickets.Ticket{ServerAddress: addr, User: user, Value: value}
}
