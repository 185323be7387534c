// Package postgresdb provides a PostgreSQL-based implementation of the storage
// interface for persisting users and their bookmarks.
// Row-level owner scoping is enforced in every query: no operation can touch
// a bookmark whose user_id differs from the caller's.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/user"
)

// PostgresDB is a PostgreSQL-backed implementation of the bookmarks storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables dropping the whole public schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("error while `result.resetDB()` calling: %w", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("error while `goose.Up()` calling: %w", err)
	}

	return result, nil
}

// FindOrCreateUser resolves the identity reported by the OAuth provider to a
// local user, creating one on first sign-in. The provider subject is the
// stable key; the email is refreshed on every sign-in.
func (db *PostgresDB) FindOrCreateUser(ctx context.Context, usr *user.User) (string, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (subject, email)
				VALUES ($1, $2)
				ON CONFLICT (subject) DO UPDATE
				SET email = EXCLUDED.email
				RETURNING id
		`,
		usr.Subject,
		usr.Email,
	)

	var userIDFromDB string
	err := row.Scan(&userIDFromDB)
	if err != nil {
		return "", err
	}

	return userIDFromDB, nil
}

// GetUserByID fetches a user by their UUID from the database.
// If the user does not exist, it returns a user with an empty ID field.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	if userID == "" {
		return &user.User{ID: ""}, nil
	}

	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, email, subject FROM users WHERE id = $1`,
		userID,
	)

	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Email, &usr.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &user.User{ID: ""}, nil
		}
		return &user.User{ID: ""}, err
	}

	return usr, nil
}

// GetUserBookmarks returns every bookmark owned by the given user,
// newest first. Ties on created_at are broken by id so the ordering is
// stable within one response.
func (db *PostgresDB) GetUserBookmarks(ctx context.Context, ownerID string) ([]models.Bookmark, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, title, url, created_at
				FROM bookmarks
				WHERE user_id = $1
				ORDER BY created_at DESC, id DESC
		`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Bookmark{}
	for rows.Next() {
		var bookmark models.Bookmark
		err = rows.Scan(
			&bookmark.ID,
			&bookmark.OwnerID,
			&bookmark.Title,
			&bookmark.URL,
			&bookmark.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		result = append(result, bookmark)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// InsertBookmark persists a new bookmark for its owner. The server assigns
// id and created_at; both are written back into the passed struct.
func (db *PostgresDB) InsertBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO bookmarks (user_id, title, url)
				VALUES ($1, $2, $3)
				RETURNING id, created_at
		`,
		bookmark.OwnerID,
		bookmark.Title,
		bookmark.URL,
	)

	return row.Scan(&bookmark.ID, &bookmark.CreatedAt)
}

// DeleteBookmark removes the bookmark matching both id and owner.
// The owner predicate is defense in depth on top of the caller's scoping.
func (db *PostgresDB) DeleteBookmark(ctx context.Context, bookmarkID, ownerID string) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`,
		bookmarkID,
		ownerID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("error while `db.database.ExecContext()` calling: %w", err)
	}

	return nil
}
