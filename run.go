package datalake

import "time"

// RunMeta identifies one invocation of a provisioning command.
type RunMeta struct {
	// ID is unique per invocation and groups every outcome of the run.
	ID string
	// Command is the CLI command that produced the run, e.g. "catalog".
	Command string
	Started time.Time
	Ended   time.Time
}

// Run pairs the metadata of an invocation with what it did.
type Run struct {
	Meta   RunMeta
	Report Report
}
