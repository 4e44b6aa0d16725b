// Package cli holds operator subcommands of the pmws binary.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/pmws/pmws/jobs"
)

// Inspector is the subset of *asynq.Inspector used by the jobs commands.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunAllArchivedTasks(queue string) (int, error)
	Close() error
}

// JobsCLI wraps manual management helpers for the notification queue.
type JobsCLI struct {
	inspector Inspector
}

// NewJobsCLI builds the helpers around inspector.
func NewJobsCLI(inspector Inspector) *JobsCLI {
	return &JobsCLI{inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector.Close()
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the metrics of the notification queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
		stats.Archived = int(info.Archived)
	}
	return stats, nil
}

// ListArchived returns notifications that exhausted their retries.
func (c *JobsCLI) ListArchived(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListArchivedTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// RetryArchived moves every archived notification back to pending.
func (c *JobsCLI) RetryArchived() (int, error) {
	if c == nil || c.inspector == nil {
		return 0, errors.New("jobs cli: inspector not configured")
	}
	return c.inspector.RunAllArchivedTasks(jobs.QueueDefault)
}

// RunJobs executes `pmws jobs <stats|archived|retry>` and returns the exit code.
func RunJobs(ctx context.Context, redisOpts asynq.RedisConnOpt, args []string, stdout, stderr io.Writer) int {
	c := NewJobsCLI(asynq.NewInspector(redisOpts))
	defer func() { _ = c.Close() }()
	return c.Run(ctx, args, stdout, stderr)
}

// Run dispatches one jobs subcommand.
func (c *JobsCLI) Run(_ context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "usage: pmws jobs <stats|archived|retry>")
		return 2
	}
	switch args[0] {
	case "stats":
		stats, err := c.InspectQueue()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		_ = tw.Flush()
		return 0
	case "archived":
		fs := flag.NewFlagSet("archived", flag.ContinueOnError)
		fs.SetOutput(stderr)
		size := fs.Int("size", 10, "maximum tasks to list")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		tasks, err := c.ListArchived(*size)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs archived: %v\n", err)
			return 1
		}
		for _, task := range tasks {
			_, _ = fmt.Fprintf(stdout, "%s\t%s\t%s\n", task.ID, task.Type, task.LastErr)
		}
		return 0
	case "retry":
		n, err := c.RetryArchived()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs retry: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "requeued %d notification(s)\n", n)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "jobs: unknown command %q\n", args[0])
		return 2
	}
}
