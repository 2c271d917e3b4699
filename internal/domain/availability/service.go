package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinio/clinio/internal/platform/auth"
	"github.com/clinio/clinio/internal/platform/redisclient"
)

// Service manages a doctor's weekly availability ledger. Overlap checks and
// writes for one doctor run under a schedule lock so concurrent requests
// cannot slip a colliding window past each other.
type Service struct {
	repo   Repository
	locker redisclient.Locker
}

func NewService(repo Repository, locker redisclient.Locker) *Service {
	return &Service{repo: repo, locker: locker}
}

// WindowInput is the payload for creating or updating a window. Start and
// End are "HH:MM" strings.
type WindowInput struct {
	Day   Day    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *Service) parseInput(in WindowInput) (Day, TimeOfDay, TimeOfDay, error) {
	if !in.Day.Valid() {
		return "", 0, 0, fmt.Errorf("%w: unknown day %q", ErrValidation, in.Day)
	}
	start, err := ParseTimeOfDay(in.Start)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: start: %v", ErrValidation, err)
	}
	end, err := ParseTimeOfDay(in.End)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: end: %v", ErrValidation, err)
	}
	if start >= end {
		return "", 0, 0, fmt.Errorf("%w: start must be before end", ErrValidation)
	}
	return in.Day, start, end, nil
}

// AddWindow creates a new window in the acting doctor's schedule.
func (s *Service) AddWindow(ctx context.Context, actor auth.Actor, in WindowInput) (*Window, error) {
	if actor.Role != auth.RoleDoctor || actor.DoctorID == nil {
		return nil, ErrForbidden
	}
	day, start, end, err := s.parseInput(in)
	if err != nil {
		return nil, err
	}

	window := &Window{
		DoctorID: *actor.DoctorID,
		Day:      day,
		Start:    start,
		End:      end,
	}

	err = s.locker.WithScheduleLock(ctx, window.DoctorID, func(ctx context.Context) error {
		if err := s.checkOverlap(ctx, window, uuid.Nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, window)
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

// UpdateWindow replaces the day and times of one of the acting doctor's
// windows. The window itself is excluded from the overlap check.
func (s *Service) UpdateWindow(ctx context.Context, actor auth.Actor, id uuid.UUID, in WindowInput) (*Window, error) {
	if actor.Role != auth.RoleDoctor || actor.DoctorID == nil {
		return nil, ErrForbidden
	}
	day, start, end, err := s.parseInput(in)
	if err != nil {
		return nil, err
	}

	window, err := s.ownedWindow(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	window.Day = day
	window.Start = start
	window.End = end

	err = s.locker.WithScheduleLock(ctx, window.DoctorID, func(ctx context.Context) error {
		if err := s.checkOverlap(ctx, window, window.ID); err != nil {
			return err
		}
		return s.repo.Update(ctx, window)
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

// RemoveWindow deletes one of the acting doctor's windows.
func (s *Service) RemoveWindow(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if actor.Role != auth.RoleDoctor || actor.DoctorID == nil {
		return ErrForbidden
	}
	window, err := s.ownedWindow(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, window.ID)
}

// ListWindows returns a doctor's schedule ordered by day, then start time.
// Any authenticated user may read it; patients browse it when booking.
func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*Window, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// ownedWindow fetches a window and collapses other doctors' windows into
// ErrNotFound.
func (s *Service) ownedWindow(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Window, error) {
	window, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.OwnsDoctor(window.DoctorID) {
		return nil, ErrNotFound
	}
	return window, nil
}

// checkOverlap rejects the candidate if it shares any minute with another
// window of the same doctor on the same day. exclude skips the window being
// updated.
func (s *Service) checkOverlap(ctx context.Context, candidate *Window, exclude uuid.UUID) error {
	existing, err := s.repo.ListByDoctor(ctx, candidate.DoctorID)
	if err != nil {
		return err
	}
	for _, w := range existing {
		if w.ID == exclude {
			continue
		}
		if candidate.Overlaps(*w) {
			return &OverlapError{Existing: *w}
		}
	}
	return nil
}
