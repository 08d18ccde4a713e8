package cron

import (
	"context"
	"fmt"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order. Names are unique so metrics and the
// -job flag of the worker can address a single job.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if _, dup := r.byName[job.Name()]; dup {
			return nil, fmt.Errorf("cron job %q registered twice", job.Name())
		}
		r.byName[job.Name()] = job
		r.jobs = append(r.jobs, job)
	}
	return r, nil
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.byName[name]
	return job, ok
}
