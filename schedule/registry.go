package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Trigger is one daily firing to register.
type Trigger struct {
	TimeKey  string
	Timezone string
	Type     string
	Run      func(ctx context.Context) error
}

// Spec is the cron expression for the trigger.
func (t Trigger) Spec() (string, error) {
	hour, minute, err := ParseTimeKey(t.TimeKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", t.Timezone, minute, hour), nil
}

// TriggerInfo describes a registered trigger.
type TriggerInfo struct {
	TimeKey  string    `json:"time"`
	Timezone string    `json:"timezone"`
	Type     string    `json:"type"`
	Next     time.Time `json:"next"`
}

type registered struct {
	id      cron.EntryID
	trigger Trigger
}

// Registry owns the cron instance and maps each time key to at most one entry.
type Registry struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]registered
}

func NewRegistry(logger zerolog.Logger) *Registry {
	cl := cronLogger{log: logger.With().Str("component", "cron").Logger()}
	return &Registry{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		entries: make(map[string]registered),
	}
}

// Start runs the cron loop in its own goroutine.
func (r *Registry) Start() {
	r.cron.Start()
}

// Stop halts the cron loop and returns a context that is done once running jobs finish.
func (r *Registry) Stop() context.Context {
	return r.cron.Stop()
}

// Replace removes every entry and registers triggers in their place, under one lock.
// It returns how many entries were removed. Triggers that fail to register are returned in failed.
func (r *Registry) Replace(triggers []Trigger) (stopped int, failed map[string]error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stopped = r.removeAllLocked()
	failed = map[string]error{}
	for _, t := range triggers {
		if err := r.addLocked(t); err != nil {
			failed[t.TimeKey] = err
		}
	}
	metrics.TriggersActive.Set(float64(len(r.entries)))
	return stopped, failed
}

// StopAll removes every entry and returns how many there were.
func (r *Registry) StopAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.removeAllLocked()
	metrics.TriggersActive.Set(0)
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Triggers lists registered triggers ordered by time key.
func (r *Registry) Triggers() []TriggerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TriggerInfo, 0, len(r.entries))
	for key, e := range r.entries {
		out = append(out, TriggerInfo{
			TimeKey:  key,
			Timezone: e.trigger.Timezone,
			Type:     e.trigger.Type,
			Next:     r.cron.Entry(e.id).Next,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeKey < out[j].TimeKey })
	return out
}

// Fire runs the trigger registered for timeKey on the calling goroutine.
func (r *Registry) Fire(ctx context.Context, timeKey string) error {
	r.mu.Lock()
	e, ok := r.entries[timeKey]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no trigger registered for %q", apperrors.ErrNotFound, timeKey)
	}
	return e.trigger.Run(ctx)
}

func (r *Registry) addLocked(t Trigger) error {
	spec, err := t.Spec()
	if err != nil {
		return err
	}
	if old, ok := r.entries[t.TimeKey]; ok {
		r.cron.Remove(old.id)
	}

	run := t.Run
	id, err := r.cron.AddFunc(spec, func() { _ = run(context.Background()) })
	if err != nil {
		return fmt.Errorf("%w: invalid trigger %q: %v", apperrors.ErrValidation, spec, err)
	}
	r.entries[t.TimeKey] = registered{id: id, trigger: t}
	return nil
}

func (r *Registry) removeAllLocked() int {
	n := 0
	for key, e := range r.entries {
		r.cron.Remove(e.id)
		delete(r.entries, key)
		n++
	}
	return n
}
