package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func issueTestToken(t *testing.T, actor Actor) string {
	t.Helper()
	issuer := NewTokenIssuer(testKey, "clinio-test", time.Hour)
	token, err := issuer.Issue(actor)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	patientID := uuid.New()
	actor := Actor{UserID: uuid.New(), Role: RolePatient, PatientID: &patientID}
	token := issueTestToken(t, actor)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Actor
	handler := func(c echo.Context) error {
		a, ok := ActorFromContext(c.Request().Context())
		if !ok {
			t.Fatal("expected actor on context")
		}
		got = a
		return c.String(http.StatusOK, "ok")
	}

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey, Issuer: "clinio-test"})
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.UserID != actor.UserID {
		t.Errorf("expected user id %s, got %s", actor.UserID, got.UserID)
	}
	if got.Role != RolePatient {
		t.Errorf("expected role patient, got %s", got.Role)
	}
	if got.PatientID == nil || *got.PatientID != patientID {
		t.Error("expected patient profile id on actor")
	}
	if got.DoctorID != nil {
		t.Error("expected no doctor profile id for patient")
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	err := mw(func(c echo.Context) error { return nil })(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: RoleAdmin}
	token := issueTestToken(t, actor)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := JWTMiddleware(JWTConfig{SigningKey: []byte("different-key")})
	err := mw(func(c echo.Context) error { return nil })(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer(testKey, "clinio-test", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.Issue(Actor{UserID: uuid.New(), Role: RoleAdmin})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	merr := mw(func(c echo.Context) error { return nil })(c)

	httpErr, ok := merr.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", merr)
	}
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	doctorID := uuid.New()
	actor := Actor{UserID: uuid.New(), Role: RoleDoctor, DoctorID: &doctorID}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := RequireRole(RoleDoctor)
	err := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_AdminBypassesCheck(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: RoleAdmin}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := RequireRole(RolePatient)
	err := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_RejectsOtherRole(t *testing.T) {
	patientID := uuid.New()
	actor := Actor{UserID: uuid.New(), Role: RolePatient, PatientID: &patientID}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := RequireRole(RoleDoctor)
	err := mw(func(c echo.Context) error { return nil })(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestActorOwnership(t *testing.T) {
	patientID := uuid.New()
	doctorID := uuid.New()

	patient := Actor{UserID: uuid.New(), Role: RolePatient, PatientID: &patientID}
	doctor := Actor{UserID: uuid.New(), Role: RoleDoctor, DoctorID: &doctorID}

	if !patient.OwnsPatient(patientID) {
		t.Error("expected patient to own its profile")
	}
	if patient.OwnsPatient(uuid.New()) {
		t.Error("expected patient not to own another profile")
	}
	if !doctor.OwnsDoctor(doctorID) {
		t.Error("expected doctor to own its profile")
	}
	if doctor.OwnsPatient(patientID) {
		t.Error("expected doctor not to own a patient profile")
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2-but-longer")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "hunter2-but-longer" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if err := CheckPassword(hash, "hunter2-but-longer"); err != nil {
		t.Errorf("expected matching password to verify, got %v", err)
	}
	if err := CheckPassword(hash, "wrong-password"); err == nil {
		t.Error("expected wrong password to return an error")
	}
}
