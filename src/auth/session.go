package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/jobs"
	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"github.com/golang-jwt/jwt/v5"
)

const SessionCookieName = "STEMSession"
const CSRFFieldName = "csrf_token"

// Session holds the backend access token a user handed to us at login. The
// token is never shown to the browser again; the cookie carries only ID.
type Session struct {
	ID          string    `db:"id"`
	AccessToken string    `db:"access_token"`
	CSRFToken   string    `db:"csrf_token"`
	ExpiresAt   time.Time `db:"expires_at"`
}

var ErrNoSession = errors.New("no session found")

type SessionStore interface {
	Create(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func makeSessionId() string {
	idBytes := make([]byte, 40)
	_, err := io.ReadFull(rand.Reader, idBytes)
	if err != nil {
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(idBytes)[:40]
}

// NewSession wraps an access token in a fresh session. If the token is a JWT
// with an exp claim the session expires with it; otherwise it lasts for the
// configured session duration. The token's signature is not checked here.
func NewSession(accessToken string, now time.Time) Session {
	expires := now.Add(config.Config.Auth.SessionDuration)
	if exp, ok := tokenExpiry(accessToken); ok {
		expires = exp
	}

	return Session{
		ID:          makeSessionId(),
		AccessToken: accessToken,
		CSRFToken:   makeSessionId(),
		ExpiresAt:   expires,
	}
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s Session) CheckCSRF(token string) bool {
	if s.CSRFToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(token)) == 1
}

// SessionToken supplies a session's access token to the API client. A nil
// session supplies no token.
type SessionToken struct {
	Session *Session
}

var _ stemapi.TokenSource = SessionToken{}

func (t SessionToken) Token(ctx context.Context) string {
	if t.Session == nil {
		return ""
	}
	return t.Session.AccessToken
}

func NewSessionCookie(session Session) *http.Cookie {
	return &http.Cookie{
		Name:  SessionCookieName,
		Value: session.ID,

		Domain:  config.Config.Auth.CookieDomain,
		Path:    "/",
		Expires: session.ExpiresAt,

		Secure:   config.Config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

var DeleteSessionCookie = &http.Cookie{
	Name:   SessionCookieName,
	Domain: config.Config.Auth.CookieDomain,
	Path:   "/",
	MaxAge: -1,
}

func PeriodicallyDeleteExpiredSessions(store SessionStore) *jobs.Job {
	return jobs.Periodic("session janitor", time.Minute, func(ctx context.Context) error {
		n, err := store.DeleteExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		if n > 0 {
			logging.ExtractLogger(ctx).Info().Int64("num deleted sessions", n).Msg("Deleted expired sessions")
		}
		return nil
	})
}
