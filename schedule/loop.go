// Package schedule provides the cooperative frame loop that drives render
// surfaces. Tasks are registered with a cancellation token and run on each
// tick; timers run once when their due time passes. Nothing blocks.
package schedule

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Task runs once per tick with the tick time in milliseconds.
type Task func(nowMs float64)

// Token cancels a registered task or timer.
type Token struct {
	cancelled atomic.Bool
}

// Cancel stops the task. The task will not run on any later tick, including
// a tick already in progress that has not reached it yet.
func (t *Token) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether Cancel was called.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

type frameTask struct {
	seq   uint64
	run   Task
	token *Token
}

type timer struct {
	seq   uint64
	due   float64
	every float64
	run   Task
	token *Token
}

// Loop is a per-tick scheduler. It is driven either manually with Tick or
// by Run against the wall clock. Loop is safe for concurrent use; tasks run
// on the goroutine that calls Tick.
type Loop struct {
	mu     sync.Mutex
	seq    uint64
	tasks  []*frameTask
	timers []*timer
	nowMs  float64
	ticks  uint64
}

// NewLoop returns an empty loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Every registers fn to run on every tick until its token is cancelled.
func (l *Loop) Every(fn Task) *Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	tok := &Token{}
	l.tasks = append(l.tasks, &frameTask{seq: l.seq, run: fn, token: tok})
	return tok
}

// After runs fn once on the first tick at or past now+delayMs.
func (l *Loop) After(delayMs float64, fn Task) *Token {
	return l.addTimer(delayMs, 0, fn)
}

// Interval runs fn on the first tick at or past each multiple of periodMs.
func (l *Loop) Interval(periodMs float64, fn Task) *Token {
	if periodMs <= 0 {
		return l.Every(fn)
	}
	return l.addTimer(periodMs, periodMs, fn)
}

func (l *Loop) addTimer(delayMs, every float64, fn Task) *Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	tok := &Token{}
	l.timers = append(l.timers, &timer{
		seq:   l.seq,
		due:   l.nowMs + max(0, delayMs),
		every: every,
		run:   fn,
		token: tok,
	})
	return tok
}

// Now returns the time of the latest tick.
func (l *Loop) Now() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nowMs
}

// Ticks returns the number of ticks run so far.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Len returns the number of live tasks and timers.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.compact()
	return len(l.tasks) + len(l.timers)
}

// compact drops cancelled entries. Caller holds l.mu.
func (l *Loop) compact() {
	tasks := l.tasks[:0]
	for _, t := range l.tasks {
		if !t.token.Cancelled() {
			tasks = append(tasks, t)
		}
	}
	l.tasks = tasks
	timers := l.timers[:0]
	for _, t := range l.timers {
		if !t.token.Cancelled() {
			timers = append(timers, t)
		}
	}
	l.timers = timers
}

// Tick advances the loop to nowMs: due timers fire first in due order,
// then every frame task runs in registration order. Tasks registered
// during a tick first run on the next tick.
func (l *Loop) Tick(nowMs float64) {
	l.mu.Lock()
	if nowMs > l.nowMs {
		l.nowMs = nowMs
	}
	l.ticks++
	l.compact()

	var due []*timer
	for _, t := range l.timers {
		if t.due <= nowMs {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if t.every > 0 {
			for t.due <= nowMs {
				t.due += t.every
			}
		} else {
			t.token.Cancel()
		}
	}
	tasks := append([]*frameTask(nil), l.tasks...)
	l.mu.Unlock()

	for _, t := range due {
		t.run(nowMs)
	}
	for _, t := range tasks {
		if !t.token.Cancelled() {
			t.run(nowMs)
		}
	}
}

// Run ticks the loop at fps against the wall clock until ctx is done.
// Tick times are milliseconds since Run started.
func (l *Loop) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = 60
	}
	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Tick(float64(now.Sub(start)) / float64(time.Millisecond))
		}
	}
}
