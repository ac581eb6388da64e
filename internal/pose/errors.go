package pose

import "fmt"

// FormatError is returned when keypoint input is structurally malformed.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keypoint format: %s: %v", e.Msg, e.Err)
	}
	return "keypoint format: " + e.Msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ShapeError is returned when two arrays that must agree in shape do not.
type ShapeError struct {
	What string
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: got %d, want %d", e.What, e.Got, e.Want)
}
