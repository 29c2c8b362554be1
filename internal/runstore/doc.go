// Package runstore persists run and per-sample job state in a SQLite
// database under the run's Logs/ directory. The orchestrator records
// each sample's progress through the job state machine as it happens,
// so the status command can report on a run from another process while
// queued jobs are still on the cluster.
package runstore
