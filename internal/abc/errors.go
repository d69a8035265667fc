package abc

import (
	"errors"
	"fmt"
)

var ErrNoTune = errors.New("abc: no such tune")

// StrictError reports input that strict mode refuses to load.
type StrictError struct {
	Line int // 1-based source line, 0 when not tied to a line
	Msg  string
}

func (e *StrictError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("abc: strict mode: line %d: %s", e.Line, e.Msg)
	}
	return "abc: strict mode: " + e.Msg
}

// IsStrict reports whether err is or wraps a *StrictError.
func IsStrict(err error) bool {
	var se *StrictError
	return errors.As(err, &se)
}
