package ingest

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/docsearch/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the ingestion pool.
type Job struct {
	ID     string
	Text   string
	Source eventstream.EventSource
}

// PoolConfig is the configuration options for the worker pool.
type PoolConfig struct {
	// Service performs each ingestion.
	Service *Service

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of each worker's job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool ingests documents asynchronously so that producers such as the
// directory watcher never block on embedding calls. Jobs are routed to a
// worker by document ID, so jobs for one ID run one at a time in the order
// they were enqueued.
type Pool struct {
	service *Service
	queues  []chan Job
	wg      sync.WaitGroup
	logger  *slog.Logger

	mu     sync.Mutex
	failed int
	done   int
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c PoolConfig) (*Pool, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("ingest pool: service is required")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	p := &Pool{
		service: c.Service,
		queues:  make([]chan Job, c.NumWorkers),
		logger:  c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		p.queues[i] = make(chan Job, c.QueueSize)
		go p.worker(i, p.queues[i])
	}

	return p, nil
}

// Enqueue submits a job. Returns false if the queue is full and the job was
// dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queueFor(job.ID) <- job:
		p.logger.Debug("ingest job queued", "id", job.ID, "origin", job.Source.Origin)
		return true
	default:
		p.logger.Error("ingest job not queued, queue full, job dropped", "id", job.ID)
		return false
	}
}

func (p *Pool) queueFor(id string) chan Job {
	h := fnv.New32a()
	h.Write([]byte(id))
	return p.queues[h.Sum32()%uint32(len(p.queues))]
}

// Close stops accepting jobs and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
}

// Stats returns how many jobs succeeded and failed so far.
func (p *Pool) Stats() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

func (p *Pool) worker(id uint, queue <-chan Job) {
	defer p.wg.Done()
	p.logger.Debug("ingest worker started", "worker_id", id)

	for job := range queue {
		err := p.service.IngestFrom(context.Background(), job.Source, job.ID, job.Text)

		p.mu.Lock()
		if err != nil {
			p.failed++
		} else {
			p.done++
		}
		p.mu.Unlock()

		if err != nil {
			p.logger.Error("async ingestion failed", "id", job.ID, "path", job.Source.Path, "error", err)
		}
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}
