// Package script interprets step scripts: ordered lists of declarative graph
// commands with optional user-facing messages, replayed one step at a time or
// on a timer against a graph.Store.
package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

var (
	// ErrUnknownScript is returned when a script name is not in the library.
	ErrUnknownScript = errors.New("unknown script")
	// ErrUnknownCommand marks a step whose command is not recognized.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMissingCommand marks a step with neither a command nor a message.
	ErrMissingCommand = errors.New("missing command")
	// ErrInvalidParams marks step params that fail to decode or validate.
	ErrInvalidParams = errors.New("invalid params")
	// ErrNoScript is returned when stepping a session with nothing loaded.
	ErrNoScript = errors.New("no script loaded")
)

// MessageKey is the step field holding the user-facing message.
const MessageKey = "message"

// Step is one entry of a script.
type Step struct {
	Key     string          `json:"key"`
	Command Command         `json:"command,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Script is a named, ordered list of steps.
type Script struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// NewScript returns a script with steps sorted by their keys.
func NewScript(name string, steps []Step) *Script {
	sorted := append([]Step(nil), steps...)
	SortSteps(sorted)
	return &Script{Name: name, Steps: sorted}
}

// Len returns the number of steps.
func (s *Script) Len() int {
	return len(s.Steps)
}

var digitRun = regexp.MustCompile(`(\d+)\D*$`)

// keyOrdinal extracts the last digit run of a step key ("step10" -> 10).
func keyOrdinal(key string) (int, bool) {
	m := digitRun.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SortSteps orders steps by the numeric value of their keys, so "step2"
// precedes "step10". Keys without digits sort last, by string.
func SortSteps(steps []Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		a, aok := keyOrdinal(steps[i].Key)
		b, bok := keyOrdinal(steps[j].Key)
		switch {
		case aok && bok:
			if a != b {
				return a < b
			}
			return steps[i].Key < steps[j].Key
		case aok != bok:
			return aok
		}
		return steps[i].Key < steps[j].Key
	})
}

// field is one key of a JSON object, in document order.
type field struct {
	key string
	raw json.RawMessage
}

// objectFields decodes a JSON object into its fields without losing key order.
func objectFields(raw []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, field{key: key, raw: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// ParseStep decodes one step object. The command is the first key other than
// "message". A message may also sit inside an object of params. A step with
// only a message becomes a message_only step.
func ParseStep(key string, raw json.RawMessage) (Step, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return Step{}, fmt.Errorf("step %q: %w", key, err)
	}
	st := Step{Key: key}
	for _, f := range fields {
		if f.key == MessageKey {
			if err := json.Unmarshal(f.raw, &st.Message); err != nil {
				return Step{}, fmt.Errorf("step %q: message: %w", key, err)
			}
			continue
		}
		if st.Command == "" {
			st.Command = Command(f.key)
			st.Params = f.raw
		}
	}
	if st.Message == "" && isObject(st.Params) {
		var inner struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(st.Params, &inner) == nil {
			st.Message = inner.Message
		}
	}
	if st.Command == "" && st.Message != "" {
		st.Command = CmdMessageOnly
	}
	return st, nil
}

// looksLikeStep reports whether fields belong to a step rather than to a
// script: a step names a known command or carries a message.
func looksLikeStep(fields []field) bool {
	for _, f := range fields {
		if f.key == MessageKey || Command(f.key).Known() {
			return true
		}
	}
	return false
}

// parseScriptFields builds a script from its step-key -> step fields. A step
// that is not an object is kept without a command so that playback skips it.
func parseScriptFields(name string, fields []field) *Script {
	steps := make([]Step, 0, len(fields))
	for _, f := range fields {
		st, err := ParseStep(f.key, f.raw)
		if err != nil {
			st = Step{Key: f.key}
		}
		steps = append(steps, st)
	}
	return NewScript(name, steps)
}
