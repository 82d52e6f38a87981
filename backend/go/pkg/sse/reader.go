package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader parses events from a stream one at a time.
type Reader struct {
	scanner *bufio.Scanner
	current Event
	hasData bool
}

// NewReader reads events from src. Lines up to 1 MiB are accepted.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next blocks until a complete event is available. It returns nil, nil once
// the source is exhausted. An event not followed by a blank line before EOF
// is still returned.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if r.hasData {
				return r.take(), nil
			}
			continue
		}
		// comment / keep-alive
		if strings.HasPrefix(line, ":") {
			continue
		}
		r.parseLine(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if r.hasData {
		return r.take(), nil
	}
	return nil, nil
}

func (r *Reader) parseLine(line string) {
	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	}
}

func (r *Reader) take() *Event {
	ev := r.current
	r.current = Event{}
	r.hasData = false
	return &ev
}
