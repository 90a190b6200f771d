package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crossspread/internal/backtest"
	"crossspread/internal/book"
	"crossspread/internal/config"
	"crossspread/internal/obsmetrics"
	"crossspread/internal/slippage"
	"crossspread/internal/spreadengine"
)

// JobStatus is the lifecycle state of a submitted backtest job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// JobRequest is a parsed POST /backtests request, built by the handler
// from its JSON body. Zero-value decimal/duration fields fall back to
// config.BacktestDefaults.
type JobRequest struct {
	Symbols                 []string
	Venues                  []string
	Start                   time.Time
	End                     time.Time
	SizeInCoins             decimal.Decimal
	EntrySpreadThresholdBps decimal.Decimal
	ExitSpreadThresholdBps  decimal.Decimal
	MaxSlippageBps          decimal.Decimal
	MaxPositionHoldTime     time.Duration
	MaxConcurrentPositions  int

	// SliceCount/SliceIntervalMs are forwarded into backtest.Config
	// unchanged; see its doc comment for why the core loop ignores them.
	SliceCount      int
	SliceIntervalMs int
}

// Job tracks one submitted backtest's lifecycle.
type Job struct {
	ID        string
	Status    JobStatus
	Request   JobRequest
	Result    *backtest.Result
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobStore holds jobs in memory for the lifetime of the server process.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore returns an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

func (s *JobStore) put(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// Get returns a job by id.
func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// List returns every job, most recently created first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// SourceFactory builds a book.Source for a job's requested range; in
// production this opens a book.PostgresSource, in tests it can hand back
// a book.MemorySource.
type SourceFactory func(req JobRequest) book.Source

// Service accepts JobRequests, runs them against backtest.Runner on a
// background goroutine, and publishes progress to a wsstream.Hub.
type Service struct {
	store     *JobStore
	defaults  config.BacktestDefaults
	newSource SourceFactory
	hub       progressBroadcaster
	log       *zap.Logger
}

// progressBroadcaster is the subset of *wsstream.Hub the service needs;
// declared locally so the service can be tested without a real hub.
type progressBroadcaster interface {
	BroadcastProgress(m progressMessage)
	BroadcastJobDone(jobID, status, errMsg string)
}

type progressMessage struct {
	JobID          string
	SnapshotsDone  int64
	SnapshotsTotal int64
	OpenPositions  int
	TradesClosed   int
}

// NewService wires a Service. hub may be nil, in which case progress is
// not broadcast anywhere; the Job in the store records only its status,
// result and error.
func NewService(store *JobStore, defaults config.BacktestDefaults, newSource SourceFactory, hub progressBroadcaster, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, defaults: defaults, newSource: newSource, hub: hub, log: log}
}

// Store returns the JobStore backing this service, for handlers that
// need to look up a job by id.
func (s *Service) Store() *JobStore {
	return s.store
}

// Submit registers req as a new job and starts running it in the
// background. It returns immediately with the job id.
func (s *Service) Submit(req JobRequest) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobQueued,
		Request:   req,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.store.put(job)

	go s.run(job)

	return job
}

func (s *Service) run(job *Job) {
	job.Status = JobRunning
	job.UpdatedAt = time.Now()

	cfg := s.resolveConfig(job.Request)

	progressObs := &progressObserver{jobID: job.ID, svc: s}
	observer := multiObserver{obsmetrics.Observer{}, progressObs}

	runner := backtest.NewRunner(cfg, slippage.DefaultFeeTable, observer, s.log)
	src := s.newSource(job.Request)

	result, err := runner.Run(context.Background(), src)
	job.UpdatedAt = time.Now()

	if err != nil {
		job.Status = JobFailed
		job.Err = err
		if s.hub != nil {
			s.hub.BroadcastJobDone(job.ID, string(JobFailed), err.Error())
		}
		s.log.Error("backtest job failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	job.Status = JobSucceeded
	job.Result = result
	if s.hub != nil {
		s.hub.BroadcastJobDone(job.ID, string(JobSucceeded), "")
	}
}

func (s *Service) resolveConfig(req JobRequest) backtest.Config {
	size := req.SizeInCoins
	if size.IsZero() {
		size = decimal.RequireFromString(s.defaults.SizeInCoins)
	}
	entry := req.EntrySpreadThresholdBps
	if entry.IsZero() {
		entry = decimal.RequireFromString(s.defaults.EntrySpreadThresholdBps)
	}
	exit := req.ExitSpreadThresholdBps
	if exit.IsZero() {
		exit = decimal.RequireFromString(s.defaults.ExitSpreadThresholdBps)
	}
	maxSlip := req.MaxSlippageBps
	if maxSlip.IsZero() {
		maxSlip = decimal.RequireFromString(s.defaults.MaxSlippageBps)
	}
	hold := req.MaxPositionHoldTime
	if hold == 0 {
		hold = s.defaults.MaxPositionHoldTime
	}
	maxPos := req.MaxConcurrentPositions
	if maxPos == 0 {
		maxPos = s.defaults.MaxConcurrentPositions
	}

	return backtest.Config{
		Start:                   req.Start,
		End:                     req.End,
		Venues:                  req.Venues,
		Symbols:                 req.Symbols,
		SizeInCoins:             size,
		EntrySpreadThresholdBps: entry,
		ExitSpreadThresholdBps:  exit,
		MaxSlippageBps:          maxSlip,
		MaxPositionHoldTime:     hold,
		MaxConcurrentPositions:  maxPos,
		SliceCount:              req.SliceCount,
		SliceIntervalMs:         req.SliceIntervalMs,
	}
}

// multiObserver fans callbacks out to every observer in order.
type multiObserver []spreadengine.Observer

func (m multiObserver) OnSnapshot(s book.Snapshot) {
	for _, o := range m {
		o.OnSnapshot(s)
	}
}
func (m multiObserver) OnTradeOpen(t *spreadengine.SpreadTrade) {
	for _, o := range m {
		o.OnTradeOpen(t)
	}
}
func (m multiObserver) OnTradeClose(t *spreadengine.SpreadTrade) {
	for _, o := range m {
		o.OnTradeClose(t)
	}
}

// progressObserver counts snapshots processed and periodically reports
// through Service's hub.
type progressObserver struct {
	jobID string
	svc   *Service
	count int64
}

func (p *progressObserver) OnSnapshot(book.Snapshot) {
	p.count++
	if p.svc.hub != nil && p.count%1000 == 0 {
		p.svc.hub.BroadcastProgress(progressMessage{
			JobID:         p.jobID,
			SnapshotsDone: p.count,
		})
	}
}
func (p *progressObserver) OnTradeOpen(*spreadengine.SpreadTrade)  {}
func (p *progressObserver) OnTradeClose(*spreadengine.SpreadTrade) {}
