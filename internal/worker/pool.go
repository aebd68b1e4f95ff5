// Package worker provides background processing for library import jobs.
package worker

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/ports"
	"github.com/ewilliams-labs/setforge/internal/logging"
	"github.com/sirupsen/logrus"
)

// Job imports one audio file, optionally appending it to a playlist.
type Job struct {
	Path         string
	PlaylistID   string
	PlaylistName string
}

// TrackReader turns a file path into a catalog record.
type TrackReader func(path string) (domain.Track, error)

// Pool manages background workers for import jobs.
type Pool struct {
	library ports.LibraryWriter
	read    TrackReader
	workers int
	jobs    chan Job
	wg      sync.WaitGroup
	log     *logrus.Entry

	mu     sync.Mutex
	closed bool

	imported atomic.Int64
	failed   atomic.Int64
}

// NewPool creates a worker pool with the given worker count and queue size.
func NewPool(library ports.LibraryWriter, read TrackReader, workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		library: library,
		read:    read,
		workers: workers,
		jobs:    make(chan Job, queueSize),
		log:     logging.Component("worker"),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool has stopped.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.WithField("path", job.Path).Warn("pool stopped, dropping job")
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.log.WithField("path", job.Path).Warn("queue full, dropping job")
		return false
	}
}

// Stats reports how many jobs finished and how many failed.
func (p *Pool) Stats() (imported, failed int64) {
	return p.imported.Load(), p.failed.Load()
}

func (p *Pool) processJob(job Job) {
	log := p.log.WithField("path", job.Path)
	ctx := context.Background()

	track, err := p.read(job.Path)
	if err != nil {
		p.failed.Add(1)
		log.WithError(err).Warn("failed to read track")
		return
	}

	if track.Length == 0 && strings.EqualFold(filepath.Ext(job.Path), ".mp3") {
		if seconds, err := ProbeDurationFunc(job.Path); err != nil {
			log.WithError(err).Debug("duration probe failed")
		} else {
			track.Length = seconds
		}
	}

	if err := p.library.UpsertTrack(ctx, track); err != nil {
		p.failed.Add(1)
		log.WithError(err).Warn("failed to save track")
		return
	}
	if job.PlaylistID != "" {
		name := job.PlaylistName
		if name == "" {
			name = job.PlaylistID
		}
		if err := p.library.AddToPlaylist(ctx, job.PlaylistID, name, []string{track.ID}); err != nil {
			p.failed.Add(1)
			log.WithError(err).Warn("failed to link track to playlist")
			return
		}
	}

	p.imported.Add(1)
	log.WithFields(logrus.Fields{"track_id": track.ID, "length": track.Length}).Info("imported track")
}
