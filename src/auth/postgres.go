package auth

import (
	"context"
	"errors"
	"time"

	"git.automatex.dev/stem/stemweb/src/db"
	"git.automatex.dev/stem/stemweb/src/oops"
)

type PgSessionStore struct {
	conn db.ConnOrTx
}

func NewPgSessionStore(conn db.ConnOrTx) *PgSessionStore {
	return &PgSessionStore{conn: conn}
}

// Migrate creates the session table if it does not exist.
func (s *PgSessionStore) Migrate(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		---- Create session table
		CREATE TABLE IF NOT EXISTS session (
			id VARCHAR(40) PRIMARY KEY,
			access_token TEXT NOT NULL,
			csrf_token VARCHAR(40) NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	if err != nil {
		return oops.New(err, "failed to create session table")
	}
	return nil
}

func (s *PgSessionStore) Create(ctx context.Context, session Session) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Create session
		INSERT INTO session (id, access_token, csrf_token, expires_at)
		VALUES ($1, $2, $3, $4)
		`,
		session.ID, session.AccessToken, session.CSRFToken, session.ExpiresAt,
	)
	if err != nil {
		return oops.New(err, "failed to persist session")
	}
	return nil
}

func (s *PgSessionStore) Get(ctx context.Context, id string) (Session, error) {
	session, err := db.QueryOne[Session](ctx, s.conn,
		`
		---- Get session
		SELECT id, access_token, csrf_token, expires_at
		FROM session
		WHERE id = $1
		`,
		id,
	)
	if errors.Is(err, db.NotFound) {
		return Session{}, ErrNoSession
	} else if err != nil {
		return Session{}, oops.New(err, "failed to get session")
	}
	return session, nil
}

// Deletes a session by id. If no session with that id exists, no
// error is returned.
func (s *PgSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.conn.Exec(ctx,
		`
		---- Delete session
		DELETE FROM session WHERE id = $1
		`,
		id,
	)
	if err != nil {
		return oops.New(err, "failed to delete session")
	}
	return nil
}

func (s *PgSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.conn.Exec(ctx,
		`
		---- Delete expired sessions
		DELETE FROM session WHERE expires_at <= $1
		`,
		now,
	)
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}
	return tag.RowsAffected(), nil
}
