package pose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Load parses detector output into a Sequence. The input is either a JSON list
// of per-frame records or an object keyed by frame index; keys are sorted
// numerically. Each record carries x{j}, y{j}, z{j}, v{j} for j in 0..32 as a
// number or a container, where an empty container marks the joint as missing.
// A non-positive fps falls back to DefaultFPS.
func Load(raw []byte, fps int) (Sequence, error) {
	if fps <= 0 {
		fps = DefaultFPS
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return Sequence{}, err
	}

	seq := Sequence{FPS: fps, Frames: make([]Frame, len(records))}
	for t, rec := range records {
		seq.Frames[t].Index = t
		for j := 0; j < NumJoints; j++ {
			kp, err := parseJoint(rec, j)
			if err != nil {
				return Sequence{}, &FormatError{Msg: fmt.Sprintf("frame %d joint %d", t, j), Err: err}
			}
			seq.Frames[t].Joints[j] = kp
		}
	}

	return seq, nil
}

// LoadFile reads and parses a keypoint JSON file.
func LoadFile(path string, fps int) (Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sequence{}, fmt.Errorf("read keypoints: %w", err)
	}
	seq, err := Load(data, fps)
	if err != nil {
		return Sequence{}, fmt.Errorf("load %s: %w", path, err)
	}
	return seq, nil
}

type record map[string]json.RawMessage

// decodeRecords checks the top-level shape before decoding any frame.
func decodeRecords(raw []byte) ([]record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &FormatError{Msg: "empty input"}
	}

	switch trimmed[0] {
	case '[':
		var records []record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &FormatError{Msg: "invalid frame list", Err: err}
		}
		return records, nil

	case '{':
		var byKey map[string]record
		if err := json.Unmarshal(trimmed, &byKey); err != nil {
			return nil, &FormatError{Msg: "invalid frame mapping", Err: err}
		}

		type keyed struct {
			index int
			rec   record
		}
		frames := make([]keyed, 0, len(byKey))
		for k, rec := range byKey {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return nil, &FormatError{Msg: fmt.Sprintf("non-numeric frame key %q", k), Err: err}
			}
			frames = append(frames, keyed{index: idx, rec: rec})
		}
		sort.Slice(frames, func(i, j int) bool {
			return frames[i].index < frames[j].index
		})

		records := make([]record, len(frames))
		for i, f := range frames {
			records[i] = f.rec
		}
		return records, nil

	default:
		return nil, &FormatError{Msg: "top-level value must be a list or a mapping"}
	}
}

// parseJoint reads the four channels of joint j. A joint is present when both
// image coordinates were observed.
func parseJoint(rec record, j int) (Keypoint, error) {
	suffix := strconv.Itoa(j)

	x, okX, err := parseScalar(rec["x"+suffix])
	if err != nil {
		return Keypoint{}, err
	}
	y, okY, err := parseScalar(rec["y"+suffix])
	if err != nil {
		return Keypoint{}, err
	}
	z, _, err := parseScalar(rec["z"+suffix])
	if err != nil {
		return Keypoint{}, err
	}
	v, _, err := parseScalar(rec["v"+suffix])
	if err != nil {
		return Keypoint{}, err
	}

	return Keypoint{X: x, Y: y, Z: z, Visibility: v, Present: okX && okY}, nil
}

// parseScalar accepts a number, null, or a container whose first element is
// a number. Absent, null and empty values report ok=false with value 0.
func parseScalar(raw json.RawMessage) (float64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}

	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return 0, false, err
		}
		if len(items) == 0 {
			return 0, false, nil
		}
		return parseScalar(items[0])
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// MarshalRecords encodes a sequence in the detector's record format. Missing
// joints are written as empty containers.
func MarshalRecords(seq Sequence) ([]byte, error) {
	empty := []float64{}
	records := make([]map[string]any, len(seq.Frames))
	for t, f := range seq.Frames {
		rec := make(map[string]any, NumJoints*4+1)
		rec["frame"] = f.Index
		for j, kp := range f.Joints {
			suffix := strconv.Itoa(j)
			if !kp.Present {
				rec["x"+suffix] = empty
				rec["y"+suffix] = empty
				rec["z"+suffix] = empty
				rec["v"+suffix] = empty
				continue
			}
			rec["x"+suffix] = kp.X
			rec["y"+suffix] = kp.Y
			rec["z"+suffix] = kp.Z
			rec["v"+suffix] = kp.Visibility
		}
		records[t] = rec
	}
	return json.Marshal(records)
}
