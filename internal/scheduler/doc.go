// Package scheduler contains the recurring background jobs and the generic
// timing primitive that drives them. The scheduling mechanism (Daily) is
// kept separate from the job logic (DueTaskNotifier): a job is a plain
// callable the scheduler invokes, which keeps both independently testable.
package scheduler
