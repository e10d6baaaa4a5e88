// SPDX-License-Identifier: EPL-2.0

// Package fader runs time based linear interpolation jobs on a single
// background tick loop shared by every voice and bus of an engine.
package fader

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the tick period of the scheduler.
const DefaultInterval = 10 * time.Millisecond

// JobID identifies a fade job. Zero means "no job".
type JobID uint32

// Callback receives the interpolated lanes of a job after every tick.
// values is a copy owned by the callee. finished is true exactly once,
// on the tick where every lane reached its target.
type Callback func(id JobID, values []float32, finished bool)

type lane struct {
	current float32
	target  float32
	rate    float32
}

type job struct {
	lanes    []lane
	paused   bool
	callback Callback
}

type dispatch struct {
	id       JobID
	job      *job
	values   []float32
	finished bool
}

// Scheduler owns the fade jobs and the tick loop driving them.
type Scheduler struct {
	mtx      sync.Mutex
	jobs     map[JobID]*job
	lastID   JobID
	running  bool
	closed   bool
	interval time.Duration
	log      *logrus.Entry
	done     chan struct{}
}

// New creates a scheduler ticking every interval. A non positive interval
// falls back to DefaultInterval.
func New(interval time.Duration, log *logrus.Entry) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Scheduler{
		jobs:     make(map[JobID]*job),
		interval: interval,
		log:      log.WithField("component", "fader"),
	}
}

// StartFade registers a job moving every current[i] toward target[i] over
// duration seconds. The tick loop is spawned when it is not already running.
func (s *Scheduler) StartFade(current, target []float32, duration float32, cb Callback) JobID {
	n := min(len(current), len(target))
	if n == 0 || cb == nil {
		return 0
	}

	ticks := duration * float32(time.Second) / float32(s.interval)
	j := &job{
		lanes:    make([]lane, n),
		callback: cb,
	}
	for i := range n {
		l := lane{current: current[i], target: target[i]}
		if ticks > 0 {
			l.rate = (target[i] - current[i]) / ticks
		} else {
			l.rate = target[i] - current[i]
		}
		j.lanes[i] = l
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return 0
	}

	s.lastID++
	if s.lastID == 0 {
		s.lastID++
	}
	id := s.lastID
	s.jobs[id] = j

	if !s.running {
		s.running = true
		s.done = make(chan struct{})
		go s.loop(s.done)
	}

	s.log.WithFields(logrus.Fields{
		"function": "StartFade",
		"job_id":   id,
		"lanes":    n,
		"duration": duration,
	}).Debug("fade started")

	return id
}

// StopFade discards a job. Its callback is not invoked again.
func (s *Scheduler) StopFade(id JobID) {
	if id == 0 {
		return
	}

	s.mtx.Lock()
	delete(s.jobs, id)
	s.mtx.Unlock()
}

// PauseFade freezes a job without losing its state.
func (s *Scheduler) PauseFade(id JobID) {
	s.setPaused(id, true)
}

// ResumeFade lets a paused job tick again.
func (s *Scheduler) ResumeFade(id JobID) {
	s.setPaused(id, false)
}

func (s *Scheduler) setPaused(id JobID, paused bool) {
	if id == 0 {
		return
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if j, ok := s.jobs[id]; ok {
		j.paused = paused
	}
}

// Active reports the number of registered jobs, paused ones included.
func (s *Scheduler) Active() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return len(s.jobs)
}

// Running reports whether the tick loop is alive.
func (s *Scheduler) Running() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.running
}

// Close drops every job and waits for the tick loop to exit.
func (s *Scheduler) Close() {
	s.mtx.Lock()
	s.closed = true
	clear(s.jobs)
	done := s.done
	running := s.running
	s.mtx.Unlock()

	if running && done != nil {
		<-done
	}
}

func (s *Scheduler) loop(done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		if !s.tick() {
			return
		}
	}
}

// tick advances every job once. It returns false once the loop must stop.
func (s *Scheduler) tick() bool {
	s.mtx.Lock()
	if s.closed || len(s.jobs) == 0 {
		s.running = false
		s.mtx.Unlock()
		return false
	}

	ids := make([]JobID, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	batch := make([]dispatch, 0, len(ids))
	for _, id := range ids {
		j := s.jobs[id]
		if j.paused {
			continue
		}

		finished := true
		values := make([]float32, len(j.lanes))
		for i := range j.lanes {
			l := &j.lanes[i]
			l.current = moveToTarget(l.current, l.target, l.rate)
			if l.current == l.target {
				l.rate = 0
			} else {
				finished = false
			}
			values[i] = l.current
		}
		batch = append(batch, dispatch{id: id, job: j, values: values, finished: finished})
	}
	s.mtx.Unlock()

	for _, d := range batch {
		if !s.alive(d.id, d.job) {
			continue
		}
		d.job.callback(d.id, d.values, d.finished)
	}

	s.mtx.Lock()
	for _, d := range batch {
		if d.finished && s.jobs[d.id] == d.job {
			delete(s.jobs, d.id)
		}
	}
	s.mtx.Unlock()

	return true
}

func (s *Scheduler) alive(id JobID, j *job) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.jobs[id] == j
}

// moveToTarget steps start toward end by rate without crossing end.
func moveToTarget(start, end, rate float32) float32 {
	switch {
	case rate > 0 && start < end:
		return min(start+rate, end)
	case rate < 0 && start > end:
		return max(start+rate, end)
	default:
		return end
	}
}
