// Package datalake holds the types shared by the provisioning components.
// Every unit of work (one bucket, one file, one table, one object version)
// produces an Outcome, and operations that touch many units return a Report.
package datalake

import (
	"fmt"
	"strings"
)

// Status is the result of a single unit of work.
type Status string

const (
	StatusSucceeded     Status = "succeeded"
	StatusAlreadyExists Status = "already-exists"
	StatusFailed        Status = "failed"
)

// Kind names the resource an Outcome is about.
type Kind string

const (
	KindBucket       Kind = "bucket"
	KindVersioning   Kind = "versioning"
	KindObject       Kind = "object"
	KindVersion      Kind = "version"
	KindDeleteMarker Kind = "delete-marker"
	KindListing      Kind = "listing"
	KindDatabase     Kind = "database"
	KindTable        Kind = "table"
	KindWorkgroup    Kind = "workgroup"
)

// Outcome is the result of one unit of work on one named resource.
type Outcome struct {
	Kind   Kind
	Name   string
	Status Status
	// Err is the underlying cause, only set when Status is StatusFailed.
	Err error
}

// Succeeded records that the resource was created, written or deleted.
func Succeeded(kind Kind, name string) Outcome {
	return Outcome{Kind: kind, Name: name, Status: StatusSucceeded}
}

// AlreadyExists records a resource that was left as it was found.
func AlreadyExists(kind Kind, name string) Outcome {
	return Outcome{Kind: kind, Name: name, Status: StatusAlreadyExists}
}

// Failed records a unit of work that did not complete, with its cause.
func Failed(kind Kind, name string, err error) Outcome {
	return Outcome{Kind: kind, Name: name, Status: StatusFailed, Err: err}
}

// OK reports whether the unit of work left the resource in the desired state.
func (o Outcome) OK() bool {
	return o.Status != StatusFailed
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", o.Kind, o.Name, o.Status, o.Err)
	}
	return fmt.Sprintf("%s %s: %s", o.Kind, o.Name, o.Status)
}

// Report is an ordered list of outcomes.
type Report struct {
	Outcomes []Outcome
}

// Add appends outcomes in the order the work happened.
func (r *Report) Add(o ...Outcome) {
	r.Outcomes = append(r.Outcomes, o...)
}

// Merge appends every outcome of other.
func (r *Report) Merge(other Report) {
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}

// OK reports whether no outcome failed. An empty report is OK.
func (r Report) OK() bool {
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

// Failed returns the failed outcomes, in order.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Count returns how many outcomes have the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Of returns the outcomes of the given kind, in order.
func (r Report) Of(kind Kind) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// Summary renders counts per status, e.g. "3 succeeded, 1 failed".
func (r Report) Summary() string {
	var parts []string
	for _, s := range []Status{StatusSucceeded, StatusAlreadyExists, StatusFailed} {
		if n := r.Count(s); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	if len(parts) == 0 {
		return "nothing to do"
	}
	return strings.Join(parts, ", ")
}

// Err returns an error describing all failed outcomes, or nil.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	msgs := make([]string, len(failed))
	for i, o := range failed {
		msgs[i] = o.String()
	}
	return fmt.Errorf("%d of %d operations failed: %s", len(failed), len(r.Outcomes), strings.Join(msgs, "; "))
}
