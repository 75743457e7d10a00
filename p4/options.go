package p4

import "strconv"

// argList accumulates command flags; zero values are skipped so an
// empty options struct produces no arguments.
type argList []string

func (a *argList) flag(cond bool, f string) {
	if cond {
		*a = append(*a, f)
	}
}

func (a *argList) str(f, v string) {
	if v != "" {
		*a = append(*a, f, v)
	}
}

// joined appends "-xvalue" as one argument, the form p4 requires for
// flags like -O and -d.
func (a *argList) joined(f, v string) {
	if v != "" {
		*a = append(*a, f+v)
	}
}

func (a *argList) num(f string, n int) {
	if n > 0 {
		*a = append(*a, f, strconv.Itoa(n))
	}
}

func (a *argList) add(vals ...string) {
	*a = append(*a, vals...)
}

// Options is implemented by every command options struct. Args must
// accept a nil receiver.
type Options interface {
	Args() []string
}

// withArgs renders opts (which may be nil) followed by the positional
// arguments.
func withArgs(opts Options, positional ...string) []string {
	var a []string
	if opts != nil {
		a = append(a, opts.Args()...)
	}
	return append(a, positional...)
}

// ForceOptions is shared by the spec commands that take only -f.
type ForceOptions struct {
	Force bool
}

func (o *ForceOptions) Args() []string {
	var a argList
	if o != nil {
		a.flag(o.Force, "-f")
	}
	return a
}

func forceOpt(f bool) *ForceOptions {
	return &ForceOptions{Force: f}
}
