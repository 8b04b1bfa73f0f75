package protocol

import "fmt"

// MalformedMessage is returned for a line that is not valid JSON or does not
// carry exactly one known discriminator key. Such lines are skipped.
type MalformedMessage struct {
	Line   string
	Reason string
	Err    error
}

func (e *MalformedMessage) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed message %q: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed message %q: %s", e.Line, e.Reason)
}

func (e *MalformedMessage) Unwrap() error {
	return e.Err
}

func malformed(line []byte, reason string, err error) *MalformedMessage {
	const maxLine = 256
	s := string(line)
	if len(s) > maxLine {
		s = s[:maxLine] + "..."
	}
	return &MalformedMessage{Line: s, Reason: reason, Err: err}
}
