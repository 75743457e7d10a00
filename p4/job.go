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
)

// Job is a job; its fields depend on the server's jobspec, so all of
// them are kept in Fields and the standard ones are also typed.
type Job struct {
	ID          string
	Status      string
	User        string
	Date        string
	Description string
	Fields      map[string]string
}

func jobFromRecord(r Record) *Job {
	fields := make(map[string]string, len(r))
	for k, v := range r {
		if k == "code" {
			continue
		}
		fields[k] = v
	}
	return &Job{
		ID:          r["Job"],
		Status:      r["Status"],
		User:        r["User"],
		Date:        r["Date"],
		Description: r["Description"],
		Fields:      fields,
	}
}

func (j *Job) toSpec() map[string]string {
	m := make(map[string]string, len(j.Fields)+5)
	for k, v := range j.Fields {
		m[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("Job", j.ID)
	set("Status", j.Status)
	set("User", j.User)
	set("Date", j.Date)
	set("Description", j.Description)
	if m["Job"] == "" {
		m["Job"] = "new"
	}
	return m
}

// Job returns the job with the given id.
func (s *Server) Job(ctx context.Context, id string) (*Job, error) {
	if id == "" {
		return nil, invalidArg("empty job id")
	}
	recs, err := s.run(ctx, "job", []string{"-o", id}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	return jobFromRecord(r), nil
}

var jobSavedRe = regexp.MustCompile(`^Job (\S+) saved`)

// CreateJob saves a new job from its fields and returns it as stored
// by the server. A missing "Job" field lets the server pick the id.
func (s *Server) CreateJob(ctx context.Context, fields map[string]string) (*Job, error) {
	spec := (&Job{Fields: fields}).toSpec()
	recs, err := s.run(ctx, "job", []string{"-i"}, spec)
	if err != nil {
		return nil, err
	}
	msg, err := InfoString(recs)
	if err != nil {
		return nil, err
	}
	m := jobSavedRe.FindStringSubmatch(msg)
	if m == nil {
		return nil, fmt.Errorf("%w: unexpected reply %q", ErrRequest, msg)
	}
	return s.Job(ctx, m[1])
}

func (s *Server) UpdateJob(ctx context.Context, j *Job) (string, error) {
	if j == nil || j.ID == "" {
		return "", invalidArg("job needs an id")
	}
	recs, err := s.run(ctx, "job", []string{"-i"}, j.toSpec())
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

func (s *Server) DeleteJob(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", invalidArg("empty job id")
	}
	recs, err := s.run(ctx, "job", []string{"-d", id}, nil)
	if err != nil {
		return "", err
	}
	return InfoString(recs)
}

// JobsOptions for p4 jobs.
type JobsOptions struct {
	Max int
	// JobView is a query expression (-e).
	JobView string
	// IncludeIntegrated includes fixes of integrated changes (-i).
	IncludeIntegrated bool
	// Long includes full descriptions (-l).
	Long bool
	// Reverse sorts in reverse order (-r).
	Reverse bool
}

func (o *JobsOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.str("-e", o.JobView)
	a.flag(o.IncludeIntegrated, "-i")
	a.flag(o.Long, "-l")
	a.num("-m", o.Max)
	a.flag(o.Reverse, "-r")
	return a
}

// Jobs lists jobs, restricted to jobs fixed by changes to paths.
func (s *Server) Jobs(ctx context.Context, paths []string, opts *JobsOptions) ([]*Job, error) {
	recs, err := s.run(ctx, "jobs", withArgs(opts, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]*Job, 0, len(st))
	for _, r := range st {
		out = append(out, jobFromRecord(r))
	}
	return out, nil
}

// JobField is one field definition of the jobspec.
type JobField struct {
	Code      int
	Name      string
	DataType  string
	Length    int
	FieldType string
}

// JobSpec is the server's job template.
type JobSpec struct {
	Fields   []JobField
	Values   map[string]string
	Presets  map[string]string
	Comments string
}

func (s *Server) JobSpec(ctx context.Context) (*JobSpec, error) {
	recs, err := s.run(ctx, "jobspec", []string{"-o"}, nil)
	if err != nil {
		return nil, err
	}
	r, err := firstStat(recs)
	if err != nil {
		return nil, err
	}
	js := &JobSpec{
		Values:   map[string]string{},
		Presets:  map[string]string{},
		Comments: r["Comments"],
	}
	for _, f := range r.List("Fields") {
		p := strings.Fields(f)
		if len(p) < 5 {
			continue
		}
		code, _ := strconv.Atoi(p[0])
		length, _ := strconv.Atoi(p[3])
		js.Fields = append(js.Fields, JobField{Code: code, Name: p[1], DataType: p[2], Length: length, FieldType: p[4]})
	}
	for _, v := range r.List("Values") {
		if k, val, ok := strings.Cut(v, " "); ok {
			js.Values[k] = val
		}
	}
	for _, v := range r.List("Presets") {
		if k, val, ok := strings.Cut(v, " "); ok {
			js.Presets[k] = val
		}
	}
	return js, nil
}

// Fix links a job to a changelist.
type Fix struct {
	Job    string
	Change int
	Date   string
	User   string
	Client string
	Status string
	Action string
}

func fixFromRecord(r Record) Fix {
	return Fix{
		Job:    r["Job"],
		Change: r.Int("Change"),
		Date:   r["Date"],
		User:   r["User"],
		Client: r["Client"],
		Status: r["Status"],
		Action: r["Action"],
	}
}

// FixesOptions for p4 fixes.
type FixesOptions struct {
	Change              int
	Job                 string
	Max                 int
	IncludeIntegrations bool
}

func (o *FixesOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.IncludeIntegrations, "-i")
	a.num("-m", o.Max)
	a.num("-c", o.Change)
	a.str("-j", o.Job)
	return a
}

func (s *Server) Fixes(ctx context.Context, paths []string, opts *FixesOptions) ([]Fix, error) {
	recs, err := s.run(ctx, "fixes", withArgs(opts, nonEmpty(paths)...), nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Fix, 0, len(st))
	for _, r := range st {
		out = append(out, fixFromRecord(r))
	}
	return out, nil
}

// FixOptions for p4 fix.
type FixOptions struct {
	// Status sets the job status on submit (-s).
	Status string
	// Delete removes the fixes (-d).
	Delete bool
}

func (o *FixOptions) Args() []string {
	if o == nil {
		return nil
	}
	var a argList
	a.flag(o.Delete, "-d")
	a.str("-s", o.Status)
	return a
}

// FixJobs marks jobs as fixed by change.
func (s *Server) FixJobs(ctx context.Context, jobs []string, change int, opts *FixOptions) ([]Fix, error) {
	jobs = nonEmpty(jobs)
	if len(jobs) == 0 {
		return nil, invalidArg("no jobs")
	}
	if change <= 0 {
		return nil, invalidArg("bad changelist %d", change)
	}
	args := append(withArgs(opts, "-c", strconv.Itoa(change)), jobs...)
	recs, err := s.run(ctx, "fix", args, nil)
	if err != nil {
		return nil, err
	}
	st, err := stats(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Fix, 0, len(st))
	for _, r := range st {
		out = append(out, fixFromRecord(r))
	}
	return out, nil
}
