package availability

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinio/clinio/internal/platform/auth"
)

type mockRepo struct {
	mu      sync.Mutex
	windows map[uuid.UUID]*Window
}

func newMockRepo() *mockRepo {
	return &mockRepo{windows: make(map[uuid.UUID]*Window)}
}

func (m *mockRepo) Create(_ context.Context, w *Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	cp := *w
	m.windows[w.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Window
	for _, w := range m.windows {
		if w.DoctorID == doctorID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day.Order() < out[j].Day.Order()
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, w *Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[w.ID]; !ok {
		return ErrNotFound
	}
	w.UpdatedAt = time.Now()
	cp := *w
	m.windows[w.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[id]; !ok {
		return ErrNotFound
	}
	delete(m.windows, id)
	return nil
}

// mapLocker serializes per-doctor sections with in-process mutexes.
type mapLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newMapLocker() *mapLocker {
	return &mapLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *mapLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[doctorID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[doctorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, auth.Actor) {
	repo := newMockRepo()
	svc := NewService(repo, newMapLocker())
	doctorProfile := uuid.New()
	actor := auth.Actor{UserID: uuid.New(), Role: auth.RoleDoctor, DoctorID: &doctorProfile}
	return svc, repo, actor
}

func TestAddWindow_Valid(t *testing.T) {
	svc, _, doctor := newTestService()

	w, err := svc.AddWindow(context.Background(), doctor, WindowInput{
		Day: Monday, Start: "09:00", End: "12:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.DoctorID != *doctor.DoctorID {
		t.Error("window not bound to acting doctor")
	}
	if w.Start.String() != "09:00" || w.End.String() != "12:00" {
		t.Errorf("unexpected times: %s-%s", w.Start, w.End)
	}
}

func TestAddWindow_OverlapRejected(t *testing.T) {
	svc, _, doctor := newTestService()

	if _, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"}); err != nil {
		t.Fatalf("seed window: %v", err)
	}

	_, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "11:00", End: "13:00"})
	var overlapErr *OverlapError
	if !errors.As(err, &overlapErr) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if overlapErr.Existing.Start.String() != "09:00" {
		t.Errorf("expected conflict against 09:00 window, got %s", overlapErr.Existing.Start)
	}
}

func TestAddWindow_TouchingBoundaryAllowed(t *testing.T) {
	svc, _, doctor := newTestService()

	if _, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"}); err != nil {
		t.Fatalf("seed window: %v", err)
	}

	if _, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "12:00", End: "13:00"}); err != nil {
		t.Fatalf("expected touching window to be accepted, got %v", err)
	}
}

func TestAddWindow_SameTimesDifferentDay(t *testing.T) {
	svc, _, doctor := newTestService()

	if _, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"}); err != nil {
		t.Fatalf("seed window: %v", err)
	}
	if _, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Tuesday, Start: "09:00", End: "12:00"}); err != nil {
		t.Fatalf("expected same times on another day to be accepted, got %v", err)
	}
}

func TestAddWindow_OtherDoctorNotConsidered(t *testing.T) {
	svc, _, doctor := newTestService()
	otherProfile := uuid.New()
	other := auth.Actor{UserID: uuid.New(), Role: auth.RoleDoctor, DoctorID: &otherProfile}

	if _, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"}); err != nil {
		t.Fatalf("seed window: %v", err)
	}
	if _, err := svc.AddWindow(context.Background(), other, WindowInput{Day: Monday, Start: "09:00", End: "12:00"}); err != nil {
		t.Fatalf("expected another doctor's identical window to be accepted, got %v", err)
	}
}

func TestAddWindow_Validation(t *testing.T) {
	svc, _, doctor := newTestService()

	tests := []struct {
		name string
		in   WindowInput
	}{
		{"unknown day", WindowInput{Day: "funday", Start: "09:00", End: "12:00"}},
		{"bad start", WindowInput{Day: Monday, Start: "9am", End: "12:00"}},
		{"bad end", WindowInput{Day: Monday, Start: "09:00", End: "noon"}},
		{"start equals end", WindowInput{Day: Monday, Start: "09:00", End: "09:00"}},
		{"start after end", WindowInput{Day: Monday, Start: "14:00", End: "12:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddWindow(context.Background(), doctor, tt.in); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAddWindow_OnlyDoctors(t *testing.T) {
	svc, _, _ := newTestService()
	patientProfile := uuid.New()
	patient := auth.Actor{UserID: uuid.New(), Role: auth.RolePatient, PatientID: &patientProfile}
	admin := auth.Actor{UserID: uuid.New(), Role: auth.RoleAdmin}

	for _, actor := range []auth.Actor{patient, admin} {
		if _, err := svc.AddWindow(context.Background(), actor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"}); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden for %s, got %v", actor.Role, err)
		}
	}
}

func TestUpdateWindow_ExcludesSelfFromOverlap(t *testing.T) {
	svc, _, doctor := newTestService()

	w, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"})
	if err != nil {
		t.Fatalf("seed window: %v", err)
	}

	// Widening the same window must not collide with itself.
	updated, err := svc.UpdateWindow(context.Background(), doctor, w.ID, WindowInput{Day: Monday, Start: "09:00", End: "13:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.End.String() != "13:00" {
		t.Errorf("expected end 13:00, got %s", updated.End)
	}
}

func TestUpdateWindow_OverlapWithOtherWindow(t *testing.T) {
	svc, _, doctor := newTestService()

	if _, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"}); err != nil {
		t.Fatalf("seed window: %v", err)
	}
	second, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "14:00", End: "16:00"})
	if err != nil {
		t.Fatalf("seed second window: %v", err)
	}

	_, err = svc.UpdateWindow(context.Background(), doctor, second.ID, WindowInput{Day: Monday, Start: "11:00", End: "15:00"})
	var overlapErr *OverlapError
	if !errors.As(err, &overlapErr) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
}

func TestUpdateWindow_OtherDoctorsWindowIsNotFound(t *testing.T) {
	svc, _, doctor := newTestService()
	otherProfile := uuid.New()
	other := auth.Actor{UserID: uuid.New(), Role: auth.RoleDoctor, DoctorID: &otherProfile}

	w, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Monday, Start: "09:00", End: "12:00"})
	if err != nil {
		t.Fatalf("seed window: %v", err)
	}

	if _, err := svc.UpdateWindow(context.Background(), other, w.ID, WindowInput{Day: Monday, Start: "10:00", End: "11:00"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.RemoveWindow(context.Background(), other, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on remove, got %v", err)
	}
}

func TestRemoveWindow(t *testing.T) {
	svc, _, doctor := newTestService()

	w, err := svc.AddWindow(context.Background(), doctor, WindowInput{Day: Friday, Start: "08:00", End: "10:00"})
	if err != nil {
		t.Fatalf("seed window: %v", err)
	}

	if err := svc.RemoveWindow(context.Background(), doctor, w.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	windows, err := svc.ListWindows(context.Background(), *doctor.DoctorID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(windows) != 0 {
		t.Errorf("expected empty schedule, got %d windows", len(windows))
	}
}

func TestListWindows_OrderedByDayThenStart(t *testing.T) {
	svc, _, doctor := newTestService()

	inputs := []WindowInput{
		{Day: Friday, Start: "08:00", End: "10:00"},
		{Day: Monday, Start: "14:00", End: "16:00"},
		{Day: Monday, Start: "09:00", End: "12:00"},
		{Day: Wednesday, Start: "10:00", End: "11:00"},
	}
	for _, in := range inputs {
		if _, err := svc.AddWindow(context.Background(), doctor, in); err != nil {
			t.Fatalf("seed window %+v: %v", in, err)
		}
	}

	windows, err := svc.ListWindows(context.Background(), *doctor.DoctorID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []struct {
		day   Day
		start string
	}{
		{Monday, "09:00"},
		{Monday, "14:00"},
		{Wednesday, "10:00"},
		{Friday, "08:00"},
	}
	if len(windows) != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), len(windows))
	}
	for i, w := range windows {
		if w.Day != want[i].day || w.Start.String() != want[i].start {
			t.Errorf("position %d: expected %s %s, got %s %s", i, want[i].day, want[i].start, w.Day, w.Start)
		}
	}
}
