package game

import (
	"fmt"
)

// Status is the phase of a game derived from its board.
type Status int

const (
	InProgress Status = iota
	Win
	Draw
)

var statusNames = map[Status]string{
	InProgress: "in_progress",
	Win:        "win",
	Draw:       "draw",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Outcome is the result of a board. Winner is set only when Status is Win.
type Outcome struct {
	Status Status     `json:"status"`
	Winner PlayerMark `json:"winner,omitempty"`
}

// IsTerminal reports whether no further moves are legal.
func (o Outcome) IsTerminal() bool {
	return o.Status != InProgress
}

func (o Outcome) String() string {
	if o.Status == Win {
		return fmt.Sprintf("%s wins", o.Winner)
	}
	return o.Status.String()
}
