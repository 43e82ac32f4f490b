package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "medqueue/pkg/errors"
	httputil "medqueue/pkg/http"
	"medqueue/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const PatientIDKey contextKey = "patient_id"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the access token claims issued by the login service.
type Claims struct {
	PatientID string `json:"patient_id"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PatientID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Sign issues an HS256 access token for patientID. Used by local tooling and tests.
func (v *TokenVerifier) Sign(patientID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		PatientID: patientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Authenticate rejects requests without a valid bearer token and stores the
// patient id in the request context. Paths in public bypass the check.
func Authenticate(verifier *TokenVerifier, log *logger.Logger, public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, public) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := bearerToken(r)
			if err == nil {
				var claims *Claims
				claims, err = verifier.Verify(raw)
				if err == nil {
					ctx := context.WithValue(r.Context(), PatientIDKey, claims.PatientID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			log.Warn("Authentication failed",
				"request_id", RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			httputil.WriteError(w, apperrors.Unauthorized("authentication required"))
		})
	}
}

func PatientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(PatientIDKey).(string)
	return id, ok && id != ""
}

// WithPatientID is the inverse of PatientIDFromContext.
func WithPatientID(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, PatientIDKey, patientID)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

func isPublicPath(path string, public []string) bool {
	for _, p := range public {
		if path == p {
			return true
		}
	}
	return false
}
