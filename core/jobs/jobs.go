/*Package jobs runs recurring backend work on a ticker per job. The
scheduler is the only place a service role entity client gets created:
jobs operate across all owners, request handlers never do.
*/
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

// Job is a scheduled unit of work with full access to all rows.
type Job func(ctx context.Context, client *sdk.Client) error

type scheduledJob struct {
	name     string
	interval time.Duration
	job      Job
}

// Scheduler runs registered jobs at their intervals.
type Scheduler struct {
	db   *csql.DB
	jobs []scheduledJob
}

// NewScheduler creates a scheduler over the given database.
func NewScheduler(db *csql.DB) *Scheduler {
	return &Scheduler{db: db}
}

// Schedule registers a job to run at the given interval.
func (s *Scheduler) Schedule(name string, interval time.Duration, job Job) {
	s.jobs = append(s.jobs, scheduledJob{name: name, interval: interval, job: job})
}

// Run starts one ticker goroutine per job and blocks until the context
// is done.
func (s *Scheduler) Run(ctx context.Context) {
	client := sdk.NewServiceRoleClient(s.db)
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j scheduledJob) {
			defer wg.Done()
			ticker := time.NewTicker(j.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.runOne(ctx, client, j)
				}
			}
		}(j)
	}
	wg.Wait()
}

// RunOnce runs a single job by name immediately.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			return s.runOne(ctx, sdk.NewServiceRoleClient(s.db), j)
		}
	}
	return fmt.Errorf("unknown job %s", name)
}

// runOne executes the job and contains its panics, a failing job must
// not take the scheduler down.
func (s *Scheduler) runOne(ctx context.Context, client *sdk.Client, j scheduledJob) (err error) {
	rlog := logger.Default().WithField("job", j.name)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panic: %v", j.name, rec)
			rlog.Errorln(err)
		}
	}()
	rlog.Debugln("running")
	if err = j.job(ctx, client); err != nil {
		rlog.WithError(err).Errorln("job failed")
	}
	return err
}
