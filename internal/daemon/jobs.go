package daemon

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"embyscout/internal/api"
	"embyscout/internal/logging"
	"embyscout/internal/registry"
	"embyscout/internal/scan"
	"embyscout/internal/services"
)

const maxRetainedJobs = 50

const (
	jobRunning   = "running"
	jobCompleted = "completed"
	jobFailed    = "failed"
	jobCancelled = "cancelled"
)

// ErrJobNotFound is returned for unknown scan job ids.
var ErrJobNotFound = errors.New("scan job not found")

type jobTracker struct {
	mu    sync.Mutex
	jobs  map[string]*api.ScanJob
	order []string
	limit int
	now   func() time.Time
}

func newJobTracker(limit int) *jobTracker {
	return &jobTracker{jobs: map[string]*api.ScanJob{}, limit: limit, now: time.Now}
}

func (t *jobTracker) create(server string, paths []string, keyword string) api.ScanJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	stamp := api.FormatTime(t.now())
	job := &api.ScanJob{
		ID:        uuid.NewString(),
		Server:    server,
		Paths:     slices.Clone(paths),
		Keyword:   keyword,
		State:     jobRunning,
		Completed: []string{},
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	t.jobs[job.ID] = job
	t.order = append(t.order, job.ID)
	t.evict()
	return cloneJob(job)
}

// evict drops the oldest finished jobs beyond the retention limit.
func (t *jobTracker) evict() {
	for len(t.order) > t.limit {
		idx := slices.IndexFunc(t.order, func(id string) bool {
			return t.jobs[id].State != jobRunning
		})
		if idx < 0 {
			return
		}
		delete(t.jobs, t.order[idx])
		t.order = slices.Delete(t.order, idx, idx+1)
	}
}

func (t *jobTracker) update(id string, fn func(*api.ScanJob)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = api.FormatTime(t.now())
}

func (t *jobTracker) get(id string) (api.ScanJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return api.ScanJob{}, false
	}
	return cloneJob(job), true
}

func (t *jobTracker) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, job := range t.jobs {
		if job.State == jobRunning {
			n++
		}
	}
	return n
}

func cloneJob(job *api.ScanJob) api.ScanJob {
	out := *job
	out.Paths = slices.Clone(job.Paths)
	out.Completed = slices.Clone(job.Completed)
	if job.Progress != nil {
		p := *job.Progress
		out.Progress = &p
	}
	return out
}

// StartScan validates the request and runs the scan chain in the background.
func (d *Daemon) StartScan(ctx context.Context, req api.ScanRequest) (api.ScanJob, error) {
	server, err := d.app.Registry.Server(ctx, req.Server)
	if err != nil {
		return api.ScanJob{}, err
	}
	var paths []string
	for _, p := range req.Paths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		paths = server.PathsOrDefault(d.app.Config.Scan.DefaultPath)
	}
	keyword := strings.TrimSpace(req.Keyword)

	job := d.jobs.create(server.Label(), paths, keyword)
	go d.runScan(job.ID, server, paths, keyword)
	return job, nil
}

// ScanJob returns a snapshot of a scan job.
func (d *Daemon) ScanJob(id string) (api.ScanJob, error) {
	job, ok := d.jobs.get(id)
	if !ok {
		return api.ScanJob{}, ErrJobNotFound
	}
	return job, nil
}

func (d *Daemon) runScan(id string, server registry.ServerConfig, paths []string, keyword string) {
	ctx := services.WithJobID(d.baseContext(), id)
	ctx = services.WithServer(ctx, server.Label())
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("scan job started", logging.Int("paths", len(paths)))

	obs := scan.ObserverFuncs{
		OnProgress: func(p scan.Progress) {
			d.jobs.update(id, func(job *api.ScanJob) { job.Progress = api.FromProgress(p) })
		},
		OnPathDone: func(path string, err error) {
			if err != nil {
				return
			}
			d.jobs.update(id, func(job *api.ScanJob) { job.Completed = append(job.Completed, path) })
			if keyword == "" {
				return
			}
			blocks, serr := d.app.Search.Collect(ctx, keyword)
			if serr != nil {
				logger.Warn("search after scan failed", logging.String("keyword", keyword), logging.Error(serr))
				return
			}
			research := api.FromBlocks(keyword, blocks)
			d.jobs.update(id, func(job *api.ScanJob) { job.Research = &research })
		},
	}

	err := d.app.Scanner.Run(ctx, server, paths, obs)
	d.jobs.update(id, func(job *api.ScanJob) {
		switch {
		case err == nil:
			job.State = jobCompleted
		case errors.Is(err, context.Canceled):
			job.State = jobCancelled
			job.Error = err.Error()
		default:
			job.State = jobFailed
			job.Error = err.Error()
		}
	})
	if err != nil {
		logger.Warn("scan job stopped", logging.Error(err))
		return
	}
	logger.Info("scan job completed")
}
