// Package postgres is a self-hosted backing store: the solo account and both collections live in a
// PostgreSQL database reached through a pgx pool.
package postgres

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/2beens/whole2swole/internal/store"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"
	"github.com/2beens/whole2swole/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var _ store.Store = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

const invalidCredentials = "Invalid login credentials"

type table struct {
	writable []string
	// fallbacks for columns that must not end up NULL
	defaults map[string]string
	columns  []string
}

var tables = map[store.Collection]table{
	store.Workouts: {
		writable: []string{"date", "title", "duration", "notes", "exercises"},
		defaults: map[string]string{"exercises": `'[]'::jsonb`},
		columns:  []string{"id", "date", "title", "duration", "notes", "exercises", "created_at", "updated_at"},
	},
	store.BodyStats: {
		writable: []string{"date", "weight", "body_fat", "measurements", "notes"},
		defaults: map[string]string{"measurements": `'{}'::jsonb`},
		columns:  []string{"id", "date", "weight", "body_fat", "measurements", "notes", "created_at", "updated_at"},
	},
}

type Store struct {
	store.Listeners

	db *pgxpool.Pool

	mutex   sync.Mutex
	session *store.Session
}

func New(db *pgxpool.Pool) *Store {
	return &Store{
		db: db,
	}
}

// Migrate creates the tables when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertAccount creates the account, or sets a new secret for an existing one.
func (s *Store) UpsertAccount(ctx context.Context, email, secret string) (id string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.upsert_account")
	defer tracing.EndSpanWithErrCheck(span, &err)

	hash, err := pkg.HashPassword(secret)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}

	err = s.db.QueryRow(
		ctx,
		`INSERT INTO auth_account (email, password_hash) VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
			RETURNING id::text;`,
		email, hash,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert account: %w", err)
	}
	return id, nil
}

func (s *Store) GetSession(_ context.Context) (*store.Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.session == nil {
		return nil, nil
	}
	session := *s.session
	return &session, nil
}

func (s *Store) SignInWithPassword(ctx context.Context, identity, secret string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.sign_in")
	defer tracing.EndSpanWithErrCheck(span, &err)

	var userID, hash string
	err = s.db.QueryRow(
		ctx,
		`SELECT id::text, password_hash FROM auth_account WHERE email = $1;`,
		identity,
	).Scan(&userID, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return &store.Error{Op: "sign_in", Status: http.StatusBadRequest, Message: invalidCredentials}
	}
	if err != nil {
		return toStoreError("sign_in", err)
	}

	if !pkg.CheckPasswordHash(secret, hash) {
		return &store.Error{Op: "sign_in", Status: http.StatusBadRequest, Message: invalidCredentials}
	}

	token, err := newAccessToken()
	if err != nil {
		return toStoreError("sign_in", err)
	}

	// no ExpiresAt: the session lasts until sign out
	session := store.Session{
		AccessToken: token,
		UserID:      userID,
		Email:       identity,
	}
	s.mutex.Lock()
	s.session = &session
	s.mutex.Unlock()

	log.Debugf("postgres store: signed in %s", identity)
	s.Notify(ctx, store.SignedIn, &session)
	return nil
}

func (s *Store) SignOut(ctx context.Context) error {
	s.mutex.Lock()
	s.session = nil
	s.mutex.Unlock()

	s.Notify(ctx, store.SignedOut, nil)
	return nil
}

func (s *Store) SelectAll(ctx context.Context, collection store.Collection, orderBy ...store.Order) (rows []json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.select_all")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("collection", string(collection)))

	if err := s.requireSession(); err != nil {
		return nil, err
	}

	query, err := selectQuery(collection, orderBy)
	if err != nil {
		return nil, err
	}

	pgRows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, toStoreError("select", err)
	}

	texts, err := pgx.CollectRows(pgRows, pgx.RowTo[string])
	if err != nil {
		return nil, toStoreError("select", err)
	}

	rows = make([]json.RawMessage, 0, len(texts))
	for _, text := range texts {
		rows = append(rows, json.RawMessage(text))
	}
	return rows, nil
}

func (s *Store) Insert(ctx context.Context, collection store.Collection, row any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.insert")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("collection", string(collection)))

	if err := s.requireSession(); err != nil {
		return err
	}

	query, err := insertQuery(collection)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, string(payload)); err != nil {
		return toStoreError("insert", err)
	}
	return nil
}

// UpdateByID patches only the writable columns present in patch. An unknown id is not an error.
func (s *Store) UpdateByID(ctx context.Context, collection store.Collection, id string, patch any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.update_by_id")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(
		attribute.String("collection", string(collection)),
		attribute.String("id", id),
	)

	if err := s.requireSession(); err != nil {
		return err
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return &store.Error{Op: "update", Status: http.StatusBadRequest, Message: "patch must be a JSON object"}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	query, err := updateQuery(collection, keys)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, query, string(payload), id)
	if err != nil {
		return toStoreError("update", err)
	}
	log.Tracef("postgres store: update %s/%s, rows affected: %d", collection, id, tag.RowsAffected())
	return nil
}

func (s *Store) requireSession() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.session == nil {
		return store.ErrNotSignedIn
	}
	return nil
}

func lookupTable(collection store.Collection) (table, error) {
	t, ok := tables[collection]
	if !ok {
		return table{}, &store.Error{
			Op:      "lookup",
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("unknown collection: %s", collection),
		}
	}
	return t, nil
}

func selectQuery(collection store.Collection, orderBy []store.Order) (string, error) {
	t, err := lookupTable(collection)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT row_to_json(t)::text FROM ")
	b.WriteString(pgx.Identifier{string(collection)}.Sanitize())
	b.WriteString(" AS t")

	if len(orderBy) > 0 {
		parts := make([]string, 0, len(orderBy))
		for _, o := range orderBy {
			if !slices.Contains(t.columns, o.Field) {
				return "", &store.Error{
					Op:      "select",
					Status:  http.StatusBadRequest,
					Message: fmt.Sprintf("unknown column for ordering: %s", o.Field),
				}
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, "t."+pgx.Identifier{o.Field}.Sanitize()+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	b.WriteString(";")
	return b.String(), nil
}

func insertQuery(collection store.Collection) (string, error) {
	t, err := lookupTable(collection)
	if err != nil {
		return "", err
	}

	columns := make([]string, 0, len(t.writable))
	values := make([]string, 0, len(t.writable))
	for _, c := range t.writable {
		col := pgx.Identifier{c}.Sanitize()
		columns = append(columns, col)
		if def, ok := t.defaults[c]; ok {
			values = append(values, fmt.Sprintf("COALESCE(p.%s, %s)", col, def))
		} else {
			values = append(values, "p."+col)
		}
	}

	name := pgx.Identifier{string(collection)}.Sanitize()
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM jsonb_populate_record(NULL::%s, $1::jsonb) AS p;",
		name, strings.Join(columns, ", "), strings.Join(values, ", "), name,
	), nil
}

// updateQuery sets the writable columns named in keys, ignoring everything else.
func updateQuery(collection store.Collection, keys []string) (string, error) {
	t, err := lookupTable(collection)
	if err != nil {
		return "", err
	}

	var sets []string
	for _, c := range t.writable {
		if !slices.Contains(keys, c) {
			continue
		}
		col := pgx.Identifier{c}.Sanitize()
		if def, ok := t.defaults[c]; ok {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(p.%s, %s)", col, col, def))
		} else {
			sets = append(sets, fmt.Sprintf("%s = p.%s", col, col))
		}
	}
	sets = append(sets, "updated_at = now()")

	name := pgx.Identifier{string(collection)}.Sanitize()
	return fmt.Sprintf(
		"UPDATE %s AS t SET %s FROM jsonb_populate_record(NULL::%s, $1::jsonb) AS p WHERE t.id = $2::text::uuid;",
		name, strings.Join(sets, ", "), name,
	), nil
}

// toStoreError keeps the server's own message, so the user sees what postgres said.
func toStoreError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusBadRequest
		switch {
		case pkg.IsUniqueViolationError(err):
			status = http.StatusConflict
		case pkg.IsInvalidTextRepresentationError(err):
			status = http.StatusUnprocessableEntity
		}
		return &store.Error{Op: op, Status: status, Message: pgErr.Message}
	}
	return &store.Error{Op: op, Status: http.StatusServiceUnavailable, Message: err.Error()}
}

func newAccessToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
