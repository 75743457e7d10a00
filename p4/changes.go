// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package p4

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Changelist status values.
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusShelved   = "shelved"
)

// Change is a changelist as listed by p4 changes.
type Change struct {
	Desc   string
	User   string
	Status string
	Change int
	Time   time.Time

	Path       string
	ChangeType string
	Client     string
	Shelved    bool
}

// descLimit is the length in characters of a truncated description.
const descLimit = 250

func (c *Change) String() string {
	desc := c.Desc
	if utf8.RuneCountInString(desc) > descLimit {
		desc = string([]rune(desc)[:descLimit])
	}
	return fmt.Sprintf("change %d by %s - %s", c.Change, c.User, strings.Trim(desc, " "))
}

func changeFromRecord(r Record) Change {
	return Change{
		Desc:       r["desc"],
		User:       r["user"],
		Status:     r["status"],
		Change:     r.Int("change"),
		Time:       r.Time("time"),
		Path:       r["path"],
		ChangeType: r["changeType"],
		Client:     r["client"],
		Shelved:    r.Bool("shelved"),
	}
}

// ChangesOptions for p4 changes.
type ChangesOptions struct {
	Max    int
	Status string
	User   string
	Client string
	// Long includes full descriptions (-l); Truncated limits them to
	// 250 characters (-L).
	Long      bool
	Truncated bool
	// IncludeIntegrations also lists changes integrated into the paths.
	IncludeIntegrations bool
	// Since lists changes above this number (-e).
	Since int
}

func (o *ChangesOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.IncludeIntegrations, "-i")
	a.flag(o.Long, "-l")
	a.flag(o.Truncated && !o.Long, "-L")
	a.num("-m", o.Max)
	a.str("-s", o.Status)
	a.str("-u", o.User)
	a.str("-c", o.Client)
	a.num("-e", o.Since)
	return a
}

// Changes lists changelists affecting paths, newest first.
func (s *Server) Changes(ctx context.Context, paths []string, opts *ChangesOptions) ([]Change, error) {
	recs, err := s.run(ctx, "changes", withArgs(opts, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Change, 0, len(st))
	for _, r := range st {
		out = append(out, changeFromRecord(r))
	}
	return out, nil
}

// Changelist is the change spec form.
type Changelist struct {
	// ID is 0 for a new changelist.
	ID          int
	Date        time.Time
	Client      string
	User        string
	Status      string
	Type        string
	Description string
	Jobs        []string
	Files       []string
}

func changelistFromSpec(r Record) *Changelist {
	id, _ := strconv.Atoi(r["Change"])
	return &Changelist{
		ID:          id,
		Date:        r.Time("Date"),
		Client:      r["Client"],
		User:        r["User"],
		Status:      r["Status"],
		Type:        r["Type"],
		Description: r["Description"],
		Jobs:        r.List("Jobs"),
		Files:       r.List("Files"),
	}
}

func (c *Changelist) toSpec() map[string]string {
	m := map[string]string{
		"Change":      "new",
		"Description": c.Description,
	}
	if c.ID > 0 {
		m["Change"] = strconv.Itoa(c.ID)
	}
	if c.Client != "" {
		m["Client"] = c.Client
	}
	if c.User != "" {
		m["User"] = c.User
	}
	if c.Status != "" {
		m["Status"] = c.Status
	}
	if c.Type != "" {
		m["Type"] = c.Type
	}
	putList(m, "Jobs", c.Jobs)
	putList(m, "Files", c.Files)
	return m
}

// Changelist fetches the spec of change id, or the form of a new
// changelist when id <= 0.
func (s *Server) Changelist(ctx context.Context, id int) (*Changelist, error) {
	args := []string{"-o"}
	if id > 0 {
		args = append(args, strconv.Itoa(id))
	}
	recs, err := s.run(ctx, "change", args, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	return changelistFromSpec(r), nil
}

var changeSavedRe = regexp.MustCompile(`^Change (\d+) (created|updated|renamed)`)

// CreateChangelist saves a new pending changelist and returns its
// number.
func (s *Server) CreateChangelist(ctx context.Context, c *Changelist) (int, error) {
	if c == nil {
		return 0, invalidArg("nil changelist")
	}
	spec := c.toSpec()
	spec["Change"] = "new"
	recs, err := s.run(ctx, "change", []string{"-i"}, spec)
	if err != nil {
		return 0, err
	}
	msg, err := InfoString(recs)
	if err != nil {
		return 0, err
	}
	m := changeSavedRe.FindStringSubmatch(msg)
	if m == nil {
		return 0, fmt.Errorf("%w: unexpected reply %q", ErrRequest, msg)
	}
	return strconv.Atoi(m[1])
}

// UpdateChangelistOptions for change -i.
type UpdateChangelistOptions struct {
	// Force lets an admin edit another user's or a submitted change.
	Force bool
	// Update edits the description of a submitted change (-u).
	Update bool
}

func (o *UpdateChangelistOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Force, "-f")
	a.flag(o.Update, "-u")
	return a
}

func (s *Server) UpdateChangelist(ctx context.Context, c *Changelist, opts *UpdateChangelistOptions) (string, error) {
	if c == nil || c.ID <= 0 {
		return "", invalidArg("changelist must have a number")
	}
	recs, err := s.run(ctx, "change", withArgs(opts, "-i"), c.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// DeleteChangelist deletes an empty pending changelist.
func (s *Server) DeleteChangelist(ctx context.Context, id int, force bool) (string, error) {
	if id <= 0 {
		return "", invalidArg("bad changelist %d", id)
	}
	recs, err := s.run(ctx, "change", withArgs(forceOpt(force), "-d", strconv.Itoa(id)), nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// DescribeOptions for p4 describe.
type DescribeOptions struct {
	// Shelved lists the shelved files of a pending change (-S).
	Shelved bool
	// Max limits the number of files (-m).
	Max int
}

func (o *DescribeOptions) Args() []string {
	var a argList
	a.add("-s")
	if o == nil {
		return a
	}
	a.flag(o.Shelved, "-S")
	a.num("-m", o.Max)
	return a
}

// Description is a change with its files.
type Description struct {
	Change
	Files []FileSpec
	Jobs  []string
}

// Describe fetches a change and its (or its shelved) files.
func (s *Server) Describe(ctx context.Context, id int, opts *DescribeOptions) (*Description, error) {
	if id <= 0 {
		return nil, invalidArg("bad changelist %d", id)
	}
	if opts != nil && opts.Shelved {
		if err := s.requireVersion(ctx, VersionShelvedDescribe, "describe -S"); err != nil {
			return nil, err
		}
	}
	recs, err := s.run(ctx, "describe", withArgs(opts, strconv.Itoa(id)), nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	return &Description{
		Change: changeFromRecord(r),
		Files:  indexedFiles(r, id),
		Jobs:   r.List("job"),
	}, nil
}

// ChangelistFiles returns the files of a change.
func (s *Server) ChangelistFiles(ctx context.Context, id int) ([]FileSpec, error) {
	d, err := s.Describe(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return d.Files, nil
}

// ShelvedFiles returns the shelved files of a pending change.
func (s *Server) ShelvedFiles(ctx context.Context, id int) ([]FileSpec, error) {
	d, err := s.Describe(ctx, id, &DescribeOptions{Shelved: true})
	if err != nil {
		return nil, err
	}
	return d.Files, nil
}

// SubmitOptions for p4 submit.
type SubmitOptions struct {
	// Reopen reopens the submitted files in the default change.
	Reopen bool
}

func (o *SubmitOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Reopen, "-r")
	return a
}

// Submit submits pending change id and returns the number it was
// submitted as.
func (s *Server) Submit(ctx context.Context, id int, opts *SubmitOptions) (int, []FileSpec, error) {
	if id <= 0 {
		return 0, nil, invalidArg("bad changelist %d", id)
	}
	recs, err := s.run(ctx, "submit", withArgs(opts, "-c", strconv.Itoa(id)), nil)
	if err != nil {
		return 0, nil, err
	}
	if err := CheckErrors(recs); err != nil {
		return 0, nil, err
	}
	submitted := 0
	var files []FileSpec
	for _, r := range recs {
		if v, ok := r["submittedChange"]; ok {
			submitted, _ = strconv.Atoi(v)
			continue
		}
		if r.Code() == CodeStat && r["depotFile"] != "" {
			files = append(files, fileSpecAt(r, ""))
		}
	}
	if submitted == 0 {
		return 0, files, fmt.Errorf("%w: submit of change %d reported no submitted change", ErrRequest, id)
	}
	return submitted, files, nil
}
