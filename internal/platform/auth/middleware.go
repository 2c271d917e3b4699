package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const actorKey contextKey = "actor"

// Role is the account type an actor authenticates as.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Claims is the payload carried by issued access tokens. PatientProfileID and
// DoctorProfileID are set only for the matching role.
type Claims struct {
	jwt.RegisteredClaims
	Role             string `json:"role"`
	PatientProfileID string `json:"patient_profile_id,omitempty"`
	DoctorProfileID  string `json:"doctor_profile_id,omitempty"`
}

// Actor identifies the authenticated caller for authorization decisions.
// PatientID and DoctorID point at the caller's profile row when the role has
// one; they are nil otherwise.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}

// IsAdmin reports whether the actor has unrestricted access.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// OwnsPatient reports whether the actor is the patient with the given
// profile id.
func (a Actor) OwnsPatient(patientID uuid.UUID) bool {
	return a.Role == RolePatient && a.PatientID != nil && *a.PatientID == patientID
}

// OwnsDoctor reports whether the actor is the doctor with the given
// profile id.
func (a Actor) OwnsDoctor(doctorID uuid.UUID) bool {
	return a.Role == RoleDoctor && a.DoctorID != nil && *a.DoctorID == doctorID
}

type JWTConfig struct {
	SigningKey []byte
	Issuer     string
}

// JWTMiddleware validates bearer tokens signed with the configured HMAC key
// and stores the resulting Actor on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}

			ctx := context.WithValue(c.Request().Context(), actorKey, actor)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func actorFromClaims(claims *Claims) (Actor, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, err
	}

	role := Role(claims.Role)
	if !role.Valid() {
		return Actor{}, errInvalidRole
	}

	actor := Actor{UserID: userID, Role: role}
	if claims.PatientProfileID != "" {
		id, err := uuid.Parse(claims.PatientProfileID)
		if err != nil {
			return Actor{}, err
		}
		actor.PatientID = &id
	}
	if claims.DoctorProfileID != "" {
		id, err := uuid.Parse(claims.DoctorProfileID)
		if err != nil {
			return Actor{}, err
		}
		actor.DoctorID = &id
	}
	return actor, nil
}

// ActorFromContext returns the authenticated actor stored by JWTMiddleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// WithActor returns a context carrying the given actor. Used by tests and the
// websocket upgrade path.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}
