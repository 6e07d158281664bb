// Copyright (C) 2016, Heiko Koehler

package overlay

import (
	"context"
	"fmt"

	"github.com/hkoehler/ledenik/internal/sense"
)

// DesiredStore reads and replaces the desired document of a thing.
type DesiredStore interface {
	Desired(ctx context.Context, thing string) (*sense.Desired, error)
	PostDesired(ctx context.Context, thing string, d *sense.Desired) error
}

// DisplayablesStore reads and replaces the display configuration of a thing.
type DisplayablesStore interface {
	Displayables(ctx context.Context, thing string) (*sense.Displayables, error)
	PostDisplayables(ctx context.Context, thing string, d *sense.Displayables) error
}

// Expecter records a command until the reported state confirms it.
type Expecter interface {
	Expect(thing, id string, m sense.Mode)
}

// SendCommand sets one switch: the current desired document is read, only
// id is changed and the document is submitted. On success the command is
// recorded as pending.
func SendCommand(ctx context.Context, store DesiredStore, exp Expecter, thing, id string, m sense.Mode) error {
	des, err := store.Desired(ctx, thing)
	if err != nil {
		return fmt.Errorf("read desired state of %s: %w", thing, err)
	}
	des.SetMode(id, m)
	if err := store.PostDesired(ctx, thing, des); err != nil {
		return fmt.Errorf("submit desired state of %s: %w", thing, err)
	}
	if exp != nil {
		exp.Expect(thing, id, m)
	}
	return nil
}

// SubmitPositions ends move mode and stores the moved positions in the
// thing's current display configuration.
func SubmitPositions(ctx context.Context, store DisplayablesStore, s *Session) error {
	if s.Mode != Moving {
		return ErrWrongMode
	}
	disp, err := store.Displayables(ctx, s.Thing)
	if err != nil {
		return fmt.Errorf("read displayables of %s: %w", s.Thing, err)
	}
	// the session stays in move mode when the submit fails
	saved := *s
	if err := saved.SavePositions(disp); err != nil {
		return err
	}
	if err := store.PostDisplayables(ctx, s.Thing, disp); err != nil {
		return fmt.Errorf("submit displayables of %s: %w", s.Thing, err)
	}
	*s = saved
	return nil
}
