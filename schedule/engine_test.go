package schedule_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/schedule"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	texts []string
	err   error
	panic bool
}

func (p *recordingPublisher) Publish(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panic {
		panic("boom")
	}
	p.texts = append(p.texts, text)
	return p.err
}

func (p *recordingPublisher) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

type testFixture struct {
	path      string
	publisher *recordingPublisher
	engine    *schedule.Engine
}

func setupTestFixture(t *testing.T) testFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.json")
	pub := &recordingPublisher{}
	engine := schedule.NewEngine(
		schedule.NewFileStore(path),
		schedule.NewRegistry(zerolog.Nop()),
		pub.Publish,
		schedule.WithLogger(zerolog.Nop()),
		schedule.WithJobTimeout(time.Second),
	)
	t.Cleanup(func() { engine.StopAll() })
	return testFixture{path: path, publisher: pub, engine: engine}
}

func (f testFixture) writeFile(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.path, []byte(content), 0o644))
}

func (f testFixture) readFile(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	return string(data)
}

var onDiskKey = regexp.MustCompile(`"(\d\d:\d\d)": \{`)

// scheduleKeys returns the entry keys in the order they appear in the file.
func (f testFixture) scheduleKeys(t *testing.T) []string {
	t.Helper()
	var keys []string
	for _, m := range onDiskKey.FindAllStringSubmatch(f.readFile(t), -1) {
		keys = append(keys, m[1])
	}
	return keys
}

func TestApply_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	doc := schedule.Document{
		Config: schedule.Config{Timezone: "UTC"},
		Schedule: map[string]schedule.Entry{
			"09:00": {Type: "news", Instruction: "a"},
			"14:30": {Type: "news", Instruction: "b"},
		},
	}

	require.Equal(t, 2, f.engine.Apply(doc))
	require.Equal(t, 2, f.engine.Apply(doc))
	require.Len(t, f.engine.Triggers(), 2)

	require.Equal(t, 2, f.engine.StopAll())
	require.Equal(t, 0, f.engine.StopAll())
}

func TestApply_SkipsInvalidEntries(t *testing.T) {
	f := setupTestFixture(t)
	doc := schedule.Document{
		Schedule: map[string]schedule.Entry{
			"09:00": {Type: "news", Instruction: "ok"},
			"9:00":  {Type: "news", Instruction: "bad key"},
			"10:00": {Type: "news", Instruction: "bad tz", Timezone: "Mars/Base"},
		},
	}

	require.Equal(t, 1, f.engine.Apply(doc))
	triggers := f.engine.Triggers()
	require.Len(t, triggers, 1)
	require.Equal(t, "09:00", triggers[0].TimeKey)
	require.Equal(t, "UTC", triggers[0].Timezone)
}

func TestApply_TimezoneResolution(t *testing.T) {
	f := setupTestFixture(t)
	doc := schedule.Document{
		Config: schedule.Config{Timezone: "Europe/London"},
		Schedule: map[string]schedule.Entry{
			"08:00": {Type: "news", Instruction: "a"},
			"09:00": {Type: "news", Instruction: "b", Timezone: "America/New_York"},
		},
	}
	require.Equal(t, 2, f.engine.Apply(doc))

	triggers := f.engine.Triggers()
	require.Equal(t, "Europe/London", triggers[0].Timezone)
	require.Equal(t, "America/New_York", triggers[1].Timezone)
}

func TestEndToEnd_ApplyAndFire(t *testing.T) {
	f := setupTestFixture(t)

	previous := schedule.Document{
		Config:   schedule.Config{Timezone: "UTC"},
		Schedule: map[string]schedule.Entry{"14:30": {Type: "news", Instruction: "Old"}},
	}
	require.Equal(t, 1, f.engine.Apply(previous))

	doc := schedule.Document{
		Config:   schedule.Config{Timezone: "UTC"},
		Schedule: map[string]schedule.Entry{"09:00": {Type: "news", Instruction: "Say hi"}},
	}
	require.Equal(t, 1, f.engine.Apply(doc))

	require.NoError(t, f.engine.Fire(context.Background(), "09:00"))
	require.Equal(t, []string{"Say hi"}, f.publisher.Texts())

	err := f.engine.Fire(context.Background(), "14:30")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, []string{"Say hi"}, f.publisher.Texts())
}

func TestFire_ExpandsTemplate(t *testing.T) {
	f := setupTestFixture(t)
	doc := schedule.Document{
		Config: schedule.Config{Extra: map[string]json.RawMessage{"topic": json.RawMessage(`"AI"`)}},
		Schedule: map[string]schedule.Entry{
			"09:00": {Type: "news", Instruction: "Post about {{topic}} and {{x}}"},
		},
	}
	f.engine.Apply(doc)

	require.NoError(t, f.engine.Fire(context.Background(), "09:00"))
	require.Equal(t, []string{"Post about AI and {{x}}"}, f.publisher.Texts())
}

func TestFire_ErrorsAndPanicsAreContained(t *testing.T) {
	f := setupTestFixture(t)
	f.engine.Apply(schedule.Document{Schedule: map[string]schedule.Entry{
		"09:00": {Type: "news", Instruction: "a"},
		"10:00": {Type: "news", Instruction: "b"},
	}})

	f.publisher.err = errors.New("post rejected")
	require.Error(t, f.engine.Fire(context.Background(), "09:00"))

	f.publisher.err = nil
	f.publisher.panic = true
	require.Error(t, f.engine.Fire(context.Background(), "09:00"))

	f.publisher.panic = false
	require.NoError(t, f.engine.Fire(context.Background(), "10:00"))
	require.Equal(t, 2, len(f.engine.Triggers()))
}

func TestLoad_DegradesToEmpty(t *testing.T) {
	f := setupTestFixture(t)

	doc := f.engine.Load()
	require.Empty(t, doc.Schedule)

	f.writeFile(t, "{not json")
	doc = f.engine.Load()
	require.Empty(t, doc.Schedule)
	require.Equal(t, 0, f.engine.Reload())
}

func TestUpsertTimeEntry_Canonical(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.engine.UpsertTimeEntry("", "14:30", schedule.Entry{Type: "news", Instruction: "b"}))
	require.NoError(t, f.engine.UpsertTimeEntry("", "09:00", schedule.Entry{Type: "news", Instruction: "a"}))
	require.NoError(t, f.engine.UpsertTimeEntry("", "23:15", schedule.Entry{Type: "news", Instruction: "c"}))
	require.NoError(t, f.engine.UpsertTimeEntry("", "00:05", schedule.Entry{Type: "news", Instruction: "d"}))

	require.Equal(t, []string{"00:05", "09:00", "14:30", "23:15"}, f.scheduleKeys(t))
	require.Len(t, f.engine.Triggers(), 4)
}

func TestUpsertTimeEntry_Rename(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.engine.UpsertTimeEntry("", "09:00", schedule.Entry{Type: "news", Instruction: "a"}))

	require.NoError(t, f.engine.UpsertTimeEntry("09:00", "07:30", schedule.Entry{Type: "news", Instruction: "moved"}))

	doc, err := f.engine.Document()
	require.NoError(t, err)
	require.Len(t, doc.Schedule, 1)
	require.Equal(t, "moved", doc.Schedule["07:30"].Instruction)

	triggers := f.engine.Triggers()
	require.Len(t, triggers, 1)
	require.Equal(t, "07:30", triggers[0].TimeKey)
}

func TestUpsertTimeEntry_Validation(t *testing.T) {
	f := setupTestFixture(t)

	err := f.engine.UpsertTimeEntry("", "25:00", schedule.Entry{Type: "news", Instruction: "a"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	err = f.engine.UpsertTimeEntry("", "09:00", schedule.Entry{Type: "news"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = os.Stat(f.path)
	require.True(t, os.IsNotExist(err), "nothing is written on validation failure")
}

func TestDeleteTimeEntry_NotFound(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.engine.UpsertTimeEntry("", "09:00", schedule.Entry{Type: "news", Instruction: "a"}))
	before := f.readFile(t)

	err := f.engine.DeleteTimeEntry("99:99")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, before, f.readFile(t))
	require.Len(t, f.engine.Triggers(), 1)
}

func TestDeleteTimeEntry(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.engine.UpsertTimeEntry("", "09:00", schedule.Entry{Type: "news", Instruction: "a"}))
	require.NoError(t, f.engine.UpsertTimeEntry("", "12:00", schedule.Entry{Type: "news", Instruction: "b"}))

	require.NoError(t, f.engine.DeleteTimeEntry("09:00"))
	require.Equal(t, []string{"12:00"}, f.scheduleKeys(t))
	require.Len(t, f.engine.Triggers(), 1)
}

func TestUpdateConfig(t *testing.T) {
	f := setupTestFixture(t)
	f.writeFile(t, `{"config":{"persona":"old","maxLength":100,"timezone":"UTC"},"schedule":{"09:00":{"type":"news","instruction":"About {{persona}}","keep":true}}}`)

	err := f.engine.UpdateConfig(schedule.Config{Persona: "new"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, f.engine.UpdateConfig(schedule.Config{Persona: "new", MaxLength: 270, Timezone: "Asia/Tokyo"}))

	doc, err := f.engine.Document()
	require.NoError(t, err)
	require.Equal(t, "new", doc.Config.Persona)
	require.JSONEq(t, `true`, string(doc.Schedule["09:00"].Extra["keep"]))

	require.NoError(t, f.engine.Fire(context.Background(), "09:00"))
	require.Equal(t, []string{"About new"}, f.publisher.Texts())
	require.Equal(t, "Asia/Tokyo", f.engine.Triggers()[0].Timezone)
}

func TestMutation_MalformedDocument(t *testing.T) {
	f := setupTestFixture(t)
	f.writeFile(t, "{broken")

	err := f.engine.UpsertTimeEntry("", "09:00", schedule.Entry{Type: "news", Instruction: "a"})
	require.ErrorIs(t, err, apperrors.ErrConfig)
	require.Equal(t, "{broken", f.readFile(t))
}

func TestReload_ToleratesMistypedConfigField(t *testing.T) {
	f := setupTestFixture(t)
	f.writeFile(t, `{"config":{"persona":"p","maxLength":280.5,"timezone":"UTC"},"schedule":{"09:00":{"type":"news","instruction":"a"}}}`)

	require.Equal(t, 1, f.engine.Reload())

	require.NoError(t, f.engine.UpsertTimeEntry("", "10:00", schedule.Entry{Type: "news", Instruction: "b"}))
	doc, err := f.engine.Document()
	require.NoError(t, err)
	require.JSONEq(t, `280.5`, string(doc.Config.Extra["maxLength"]))
	require.Contains(t, f.readFile(t), `280.5`)
}

func TestReload_SkipsUnchangedContent(t *testing.T) {
	f := setupTestFixture(t)
	f.writeFile(t, `{"config":{},"schedule":{"09:00":{"type":"news","instruction":"a"}}}`)

	require.Equal(t, 1, f.engine.Reload())
	f.engine.StopAll()

	// Unchanged content is not re-applied.
	require.Equal(t, 0, f.engine.Reload())

	f.writeFile(t, `{"config":{},"schedule":{"09:00":{"type":"news","instruction":"a"},"10:00":{"type":"news","instruction":"b"}}}`)
	require.Equal(t, 2, f.engine.Reload())

	// The engine's own writes are recorded as applied.
	require.NoError(t, f.engine.DeleteTimeEntry("10:00"))
	f.engine.StopAll()
	require.Equal(t, 0, f.engine.Reload())
}
