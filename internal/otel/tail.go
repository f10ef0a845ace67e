package otel

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Filter selects events. The zero Filter matches everything.
type Filter struct {
	KindPrefix string
	MinLevel   Level
	Comp       string
	RunID      string
}

func levelRank(l Level) int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	}
	return 0
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.KindPrefix != "" && !strings.HasPrefix(string(e.Kind), f.KindPrefix) {
		return false
	}
	if f.MinLevel != "" && levelRank(e.Level) < levelRank(f.MinLevel) {
		return false
	}
	if f.Comp != "" && e.Comp != f.Comp {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	return true
}

// Tail decodes a JSONL event stream and returns the last n events in file
// order. Lines that fail to decode are skipped.
func Tail(r io.Reader, n int) ([]Event, error) {
	return TailFiltered(r, n, Filter{})
}

// TailFiltered is Tail keeping only events that match f.
func TailFiltered(r io.Reader, n int, f Filter) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}

	ring := NewRingBuffer(n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if f.Match(e) {
			ring.Push(e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ring.Snapshot(), nil
}
