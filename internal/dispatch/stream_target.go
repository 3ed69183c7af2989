package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"hubpilot/internal/command"
)

// StreamTarget writes commands as newline-delimited JSON in the hub wire
// format. It fronts whatever carries the bytes to the hub, stdout piped
// into a Bluetooth bridge in the usual setup.
type StreamTarget struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStreamTarget creates a target writing to w. json.Encoder terminates
// every value with a newline, which is exactly the hub's framing.
func NewStreamTarget(w io.Writer) *StreamTarget {
	return &StreamTarget{enc: json.NewEncoder(w)}
}

// RunSequence writes the whole sequence, one command per line.
func (s *StreamTarget) RunSequence(ctx context.Context, cmds []command.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(c); err != nil {
			return fmt.Errorf("encode command %d (%s): %w", i, c.Kind, err)
		}
	}
	return nil
}

// Stop writes a stop command.
func (s *StreamTarget) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(command.Stop()); err != nil {
		return fmt.Errorf("encode stop: %w", err)
	}
	return nil
}
