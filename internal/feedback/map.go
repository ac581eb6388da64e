package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Map holds the ordered messages of every flagged frame, keyed by frame index.
type Map map[int][]string

// Frames returns the frame indices in ascending order.
func (m Map) Frames() []int {
	frames := make([]int, 0, len(m))
	for t := range m {
		frames = append(frames, t)
	}
	sort.Ints(frames)
	return frames
}

// Count returns the total number of messages.
func (m Map) Count() int {
	var n int
	for _, msgs := range m {
		n += len(msgs)
	}
	return n
}

// MarshalJSON writes the map as an object keyed by the stringified frame
// index, in ascending frame order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range m.Frames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(t)))
		buf.WriteByte(':')

		msgs := m[t]
		if msgs == nil {
			msgs = []string{}
		}
		b, err := json.Marshal(msgs)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keyed by stringified frame index.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Map, len(raw))
	for k, msgs := range raw {
		t, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("feedback: non-numeric frame key %q", k)
		}
		out[t] = msgs
	}
	*m = out
	return nil
}
