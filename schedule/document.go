// Package schedule turns the JSON time table into live daily triggers.
package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
)

var timeKeyPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Document is the persisted schedule: scheduler-wide config plus entries keyed by "HH:MM".
type Document struct {
	Config   Config           `json:"config"`
	Schedule map[string]Entry `json:"schedule"`
}

func EmptyDocument() Document {
	return Document{Schedule: map[string]Entry{}}
}

// Config holds the fields the engine reads. Extra keeps the raw JSON object, so fields the
// engine does not know, and known fields it did not change, are written back as they were.
type Config struct {
	Persona   string
	MaxLength int
	Timezone  string
	Extra     map[string]json.RawMessage
}

// Entry is one daily post. Timezone overrides Config.Timezone when set.
type Entry struct {
	Type        string
	Instruction string
	Timezone    string
	Extra       map[string]json.RawMessage
}

// ValidTimeKey reports whether key is a zero-padded 24h "HH:MM".
func ValidTimeKey(key string) bool {
	return timeKeyPattern.MatchString(key)
}

// ParseTimeKey splits a valid key into hour and minute.
func ParseTimeKey(key string) (hour, minute int, err error) {
	if !ValidTimeKey(key) {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", apperrors.ErrValidation, key)
	}
	hour, _ = strconv.Atoi(key[:2])
	minute, _ = strconv.Atoi(key[3:])
	return hour, minute, nil
}

func validTimezone(tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", apperrors.ErrValidation, tz)
	}
	return nil
}

// Validate applies the rules for a config submitted through the API.
func (c Config) Validate() error {
	if c.Persona == "" || c.MaxLength <= 0 || c.Timezone == "" {
		return fmt.Errorf("%w: config requires persona, maxLength and timezone", apperrors.ErrValidation)
	}
	return validTimezone(c.Timezone)
}

// Validate applies the rules for an entry submitted through the API.
func (e Entry) Validate() error {
	if e.Type == "" || e.Instruction == "" {
		return fmt.Errorf("%w: entry requires type and instruction", apperrors.ErrValidation)
	}
	if e.Timezone != "" {
		return validTimezone(e.Timezone)
	}
	return nil
}

// Lookup returns the template value for key. Zero values (empty string, 0, false, null)
// count as absent so the placeholder stays in the text.
func (c Config) Lookup(key string) (string, bool) {
	switch key {
	case "persona":
		return c.Persona, c.Persona != ""
	case "maxLength":
		if c.MaxLength == 0 {
			return "", false
		}
		return strconv.Itoa(c.MaxLength), true
	case "timezone":
		return c.Timezone, c.Timezone != ""
	}

	raw, ok := c.Extra[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	text := string(bytes.TrimSpace(raw))
	switch text {
	case "null", "false", "0", "":
		return "", false
	}
	return text, true
}

func (c Config) MarshalJSON() ([]byte, error) {
	out := copyExtra(c.Extra)
	if err := putString(out, "persona", c.Persona); err != nil {
		return nil, err
	}
	putInt(out, "maxLength", c.MaxLength)
	if err := putString(out, "timezone", c.Timezone); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON never rejects a well-formed object. A known field of the wrong type reads
// as its zero value and its raw value is written back unchanged.
func (c *Config) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data)
	if err != nil {
		return err
	}
	*c = Config{
		Persona:   stringField(fields, "persona"),
		MaxLength: intField(fields, "maxLength"),
		Timezone:  stringField(fields, "timezone"),
		Extra:     nilIfEmpty(fields),
	}
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := copyExtra(e.Extra)
	if err := putString(out, "type", e.Type); err != nil {
		return nil, err
	}
	if err := putString(out, "instruction", e.Instruction); err != nil {
		return nil, err
	}
	if err := putString(out, "timezone", e.Timezone); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data)
	if err != nil {
		return err
	}
	*e = Entry{
		Type:        stringField(fields, "type"),
		Instruction: stringField(fields, "instruction"),
		Timezone:    stringField(fields, "timezone"),
		Extra:       nilIfEmpty(fields),
	}
	return nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type document Document
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Schedule == nil {
		doc.Schedule = map[string]Entry{}
	}
	*d = Document(doc)
	return nil
}

func splitObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// intField accepts a JSON integer or a numeric string, since form posts often send the latter.
func intField(fields map[string]json.RawMessage, key string) int {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

// putString writes value under key unless the raw value already there reads back as value.
func putString(out map[string]json.RawMessage, key, value string) error {
	if _, ok := out[key]; ok && stringField(out, key) == value {
		return nil
	}
	if value == "" {
		delete(out, key)
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	out[key] = raw
	return nil
}

func putInt(out map[string]json.RawMessage, key string, value int) {
	if _, ok := out[key]; ok && intField(out, key) == value {
		return
	}
	if value == 0 {
		delete(out, key)
		return
	}
	out[key] = json.RawMessage(strconv.Itoa(value))
}

func copyExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func nilIfEmpty(m map[string]json.RawMessage) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	return m
}
