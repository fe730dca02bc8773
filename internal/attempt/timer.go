package attempt

import (
	"sync"
	"time"

	"github.com/mind-engage/examhub/internal/exam"
)

// Remaining is max(0, limit - (now - startedAt)).
func Remaining(limit time.Duration, startedAt, now time.Time) time.Duration {
	left := limit - now.Sub(startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Timer is the countdown of one attempt. It is always derived from the stored
// started_at, so resuming never restarts it.
type Timer struct {
	Active    bool          `json:"active"`
	StartedAt time.Time     `json:"started_at"`
	Limit     time.Duration `json:"-"`
	Deadline  time.Time     `json:"deadline,omitempty"`
}

func TimerFor(e exam.Exam, a exam.Attempt) Timer {
	limit := e.TimeLimitDuration()
	if limit <= 0 {
		return Timer{StartedAt: a.StartedAt}
	}
	return Timer{Active: true, StartedAt: a.StartedAt, Limit: limit, Deadline: a.StartedAt.Add(limit)}
}

// Remaining is only meaningful for an active timer.
func (t Timer) Remaining(now time.Time) time.Duration {
	if !t.Active {
		return 0
	}
	return Remaining(t.Limit, t.StartedAt, now)
}

func (t Timer) Expired(now time.Time) bool {
	return t.Active && t.Remaining(now) == 0
}

// RemainingSeconds rounds down, mirroring a one second countdown display.
func (t Timer) RemainingSeconds(now time.Time) int {
	return int(t.Remaining(now) / time.Second)
}

// Watcher holds one deadline per in-progress attempt and calls fire once
// when it passes.
type Watcher struct {
	mu     sync.Mutex
	timers map[string]*armed
	fire   func(attemptID string)
	now    func() time.Time
}

type armed struct {
	t        *time.Timer
	deadline time.Time
}

func NewWatcher(fire func(attemptID string), now func() time.Time) *Watcher {
	if now == nil {
		now = time.Now
	}
	return &Watcher{timers: map[string]*armed{}, fire: fire, now: now}
}

// Arm schedules the expiry of a timed, unsubmitted attempt. An attempt that is
// already armed keeps its deadline. Reports whether a new timer was scheduled.
func (w *Watcher) Arm(a exam.Attempt, e exam.Exam) bool {
	t := TimerFor(e, a)
	if !t.Active || a.Submitted() {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.timers[a.ID]; ok {
		return false
	}
	d := t.Deadline.Sub(w.now())
	if d < 0 {
		d = 0
	}
	id := a.ID
	ar := &armed{deadline: t.Deadline}
	ar.t = time.AfterFunc(d, func() { w.expire(id, ar) })
	w.timers[id] = ar
	return true
}

func (w *Watcher) expire(id string, ar *armed) {
	w.mu.Lock()
	if w.timers[id] == ar {
		delete(w.timers, id)
	}
	w.mu.Unlock()
	w.fire(id)
}

func (w *Watcher) Disarm(attemptID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ar, ok := w.timers[attemptID]; ok {
		ar.t.Stop()
		delete(w.timers, attemptID)
	}
}

// Deadline returns the armed deadline of an attempt.
func (w *Watcher) Deadline(attemptID string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ar, ok := w.timers[attemptID]
	if !ok {
		return time.Time{}, false
	}
	return ar.deadline, true
}

func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// Stop cancels every pending expiry.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ar := range w.timers {
		ar.t.Stop()
		delete(w.timers, id)
	}
}
