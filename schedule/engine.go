package schedule

import (
	"context"
	"crypto/sha256"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/metrics"
	"github.com/jrsteele09/go-publish-agent/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimezone = "UTC"

// PublishFunc is called with the expanded instruction each time a trigger fires.
type PublishFunc func(ctx context.Context, instruction string) error

type Engine struct {
	store      *FileStore
	registry   *Registry
	publish    PublishFunc
	jobTimeout time.Duration
	log        zerolog.Logger

	// mu serialises read-modify-write cycles and reloads.
	mu          sync.Mutex
	appliedHash [sha256.Size]byte
}

type EngineOption func(*Engine)

func WithJobTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.jobTimeout = d
	}
}

func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

func NewEngine(store *FileStore, registry *Registry, publish PublishFunc, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		registry:   registry,
		publish:    publish,
		jobTimeout: 2 * time.Minute,
		log:        log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start loads and applies the document, then starts the cron loop.
func (e *Engine) Start() int {
	n := e.Reload()
	e.registry.Start()
	return n
}

// Stop removes every trigger and waits up to timeout for running firings.
func (e *Engine) Stop(timeout time.Duration) {
	n := e.StopAll()
	select {
	case <-e.registry.Stop().Done():
	case <-time.After(timeout):
		e.log.Warn().Msg("Timed out waiting for running triggers to finish")
	}
	e.log.Info().Int("stopped", n).Msg("Scheduler stopped")
}

// Load reads the document. Any failure is logged and yields an empty document.
func (e *Engine) Load() Document {
	doc, _ := e.load()
	return doc
}

func (e *Engine) load() (Document, [sha256.Size]byte) {
	doc, sum, err := e.store.Read()
	if err != nil {
		e.log.Error().Err(err).Str("path", e.store.Path()).Msg("Failed to load schedule, scheduler is idle")
		return EmptyDocument(), sum
	}
	return doc, sum
}

// Document returns the persisted document. Unlike Load it reports errors.
func (e *Engine) Document() (Document, error) {
	doc, _, err := e.store.Read()
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return EmptyDocument(), nil
	}
	return doc, err
}

// Apply stops every trigger and registers one per valid entry of doc.
// It returns the number of triggers registered.
func (e *Engine) Apply(doc Document) int {
	triggers := make([]Trigger, 0, len(doc.Schedule))
	for _, key := range utils.SortedKeys(doc.Schedule) {
		entry := doc.Schedule[key]
		tz := e.timezoneFor(entry, doc.Config)
		if err := validTimezone(tz); err != nil {
			e.log.Warn().Str("time", key).Str("timezone", tz).Msg("Skipping entry with unknown timezone")
			continue
		}
		if !ValidTimeKey(key) {
			e.log.Warn().Str("time", key).Msg("Skipping entry with invalid time key")
			continue
		}
		triggers = append(triggers, e.trigger(key, tz, entry, doc.Config))
	}

	stopped, failed := e.registry.Replace(triggers)
	for key, err := range failed {
		e.log.Warn().Err(err).Str("time", key).Msg("Skipping entry that could not be scheduled")
	}
	metrics.ScheduleReloads.Inc()

	registered := len(triggers) - len(failed)
	e.log.Info().Int("stopped", stopped).Int("scheduled", registered).Msg("Schedule applied")
	return registered
}

// StopAll removes every trigger and returns how many were active.
func (e *Engine) StopAll() int {
	return e.registry.StopAll()
}

// Triggers lists the active triggers.
func (e *Engine) Triggers() []TriggerInfo {
	return e.registry.Triggers()
}

// Fire runs the trigger for timeKey now and returns the publish error, if any.
func (e *Engine) Fire(ctx context.Context, timeKey string) error {
	return e.registry.Fire(ctx, timeKey)
}

// Reload applies the file if its content differs from what was last applied.
// It returns the number of active triggers.
func (e *Engine) Reload() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, sum := e.load()
	if sum == e.appliedHash && sum != ([sha256.Size]byte{}) {
		e.log.Debug().Msg("Schedule file unchanged, skipping reload")
		return e.registry.Len()
	}
	e.appliedHash = sum
	return e.Apply(doc)
}

// UpdateConfig replaces the document's config.
func (e *Engine) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return e.mutate(func(doc *Document) error {
		doc.Config = cfg
		return nil
	})
}

// UpsertTimeEntry writes entry at timeKey. A non-empty oldTime that exists is removed first,
// which renames the entry.
func (e *Engine) UpsertTimeEntry(oldTime, timeKey string, entry Entry) error {
	if !ValidTimeKey(timeKey) {
		return fmt.Errorf("%w: time %q is not HH:MM", apperrors.ErrValidation, timeKey)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return e.mutate(func(doc *Document) error {
		if oldTime != "" {
			delete(doc.Schedule, oldTime)
		}
		doc.Schedule[timeKey] = entry
		return nil
	})
}

// DeleteTimeEntry removes timeKey. A missing key is ErrNotFound and nothing is written.
func (e *Engine) DeleteTimeEntry(timeKey string) error {
	return e.mutate(func(doc *Document) error {
		if _, ok := doc.Schedule[timeKey]; !ok {
			return fmt.Errorf("%w: no entry at %q", apperrors.ErrNotFound, timeKey)
		}
		delete(doc.Schedule, timeKey)
		return nil
	})
}

func (e *Engine) mutate(fn func(doc *Document) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, _, err := e.store.Read()
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		doc = EmptyDocument()
	case err != nil:
		return err
	}

	if err := fn(&doc); err != nil {
		return err
	}

	sum, err := e.store.Write(doc)
	if err != nil {
		return err
	}
	e.appliedHash = sum
	e.Apply(doc)
	return nil
}

func (e *Engine) timezoneFor(entry Entry, cfg Config) string {
	if entry.Timezone != "" {
		return entry.Timezone
	}
	if cfg.Timezone != "" {
		return cfg.Timezone
	}
	return defaultTimezone
}

func (e *Engine) trigger(key, tz string, entry Entry, cfg Config) Trigger {
	instruction := ProcessTemplate(entry.Instruction, cfg)
	logger := e.log.With().Str("time", key).Str("timezone", tz).Str("type", entry.Type).Logger()

	return Trigger{
		TimeKey:  key,
		Timezone: tz,
		Type:     entry.Type,
		Run: func(ctx context.Context) (err error) {
			ctx, cancel := context.WithTimeout(ctx, e.jobTimeout)
			defer cancel()
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("publish panicked: %v", rec)
					logger.Error().Str("stack", string(debug.Stack())).Msg("Recovered panic in scheduled post")
				}
				metrics.TriggerFirings.WithLabelValues(metrics.Outcome(err)).Inc()
			}()

			logger.Info().Msg("Running scheduled post")
			if err = e.publish(ctx, instruction); err != nil {
				logger.Error().Err(err).Msg("Scheduled post failed")
				return err
			}
			logger.Info().Msg("Scheduled post published")
			return nil
		},
	}
}
