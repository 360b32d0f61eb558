// Package cron schedules periodic maintenance around the store and the
// orchestrator: stats logging, idle session eviction, and turn
// retention.
package cron

import "context"

// Job is one periodic task.
type Job interface {
	// Name identifies the job in logs and keeps registrations unique.
	Name() string

	// Schedule is a 5-field cron expression such as "*/15 * * * *".
	Schedule() string

	// Run does the work. The context is cancelled when the scheduler
	// stops; long jobs should watch it.
	Run(ctx context.Context) error
}
