package livebid

import (
	"bufio"
	"io"
	"strings"
)

// serverEvent is one parsed Server-Sent Event. Name carries the "event:"
// field ("" for the default type), Data the joined "data:" lines.
type serverEvent struct {
	Name string
	Data string
}

// eventScanner reads Server-Sent Events off a stream. Events are delimited
// by blank lines; comment lines and unknown fields are skipped per the SSE
// spec. The scanner owns no reconnection logic, it just parses.
type eventScanner struct {
	reader  *bufio.Reader
	current serverEvent
	err     error
}

func newEventScanner(r io.Reader) *eventScanner {
	return &eventScanner{reader: bufio.NewReaderSize(r, 16*1024)}
}

// Next advances to the next complete event. It returns false on EOF or
// error; Err distinguishes the two.
func (s *eventScanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = serverEvent{}

	var dataLines []string
	var name string
	hasData := false

	consume := func(line string) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, ":") {
			return
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			field, value = line, ""
		} else {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			name = value
		}
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			// ReadString hands back any partial line alongside the error.
			consume(line)
			s.err = err
			if err == io.EOF && hasData {
				s.current = serverEvent{Name: name, Data: strings.Join(dataLines, "\n")}
				return true
			}
			return false
		}

		if strings.TrimRight(line, "\r\n") == "" {
			if hasData {
				s.current = serverEvent{Name: name, Data: strings.Join(dataLines, "\n")}
				return true
			}
			name = ""
			dataLines = nil
			continue
		}
		consume(line)
	}
}

func (s *eventScanner) Event() serverEvent {
	return s.current
}

func (s *eventScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
