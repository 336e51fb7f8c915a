// Package memstore is an in-process backing store, used for local runs (memory:// store URL) and tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/whole2swole/internal/store"
)

var _ store.Store = (*Store)(nil)

// fixed width, so stored timestamps sort as strings
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type Store struct {
	store.Listeners

	identity string
	secret   string
	now      func() time.Time

	mutex   sync.Mutex
	session *store.Session
	nextID  int
	rows    map[store.Collection][]map[string]any
}

func New(identity, secret string) *Store {
	return &Store{
		identity: identity,
		secret:   secret,
		now:      time.Now,
		rows:     make(map[store.Collection][]map[string]any),
	}
}

// WithClock replaces the clock used for created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
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

func (s *Store) SignInWithPassword(ctx context.Context, identity, secret string) error {
	if identity != s.identity || secret != s.secret {
		return &store.Error{Op: "sign_in", Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	}

	now := s.now()
	s.mutex.Lock()
	s.session = &store.Session{
		AccessToken: "memstore-" + strconv.FormatInt(now.UnixNano(), 36),
		UserID:      "memstore-user",
		Email:       identity,
		ExpiresAt:   now.Add(time.Hour),
	}
	session := *s.session
	s.mutex.Unlock()

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

func (s *Store) SelectAll(_ context.Context, collection store.Collection, orderBy ...store.Order) ([]json.RawMessage, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.checkSession("select"); err != nil {
		return nil, err
	}

	rows := append([]map[string]any{}, s.rows[collection]...)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orderBy {
			a, b := fmt.Sprint(rows[i][o.Field]), fmt.Sprint(rows[j][o.Field])
			if a == b {
				continue
			}
			if o.Desc {
				return a > b
			}
			return a < b
		}
		return false
	})

	result := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal %s row: %w", collection, err)
		}
		result = append(result, b)
	}
	return result, nil
}

func (s *Store) Insert(_ context.Context, collection store.Collection, row any) error {
	fields, err := toFields(row)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.checkSession("insert"); err != nil {
		return err
	}

	s.nextID++
	now := s.now().UTC().Format(timestampLayout)
	fields["id"] = fmt.Sprintf("%s-%d", collection, s.nextID)
	fields["created_at"] = now
	fields["updated_at"] = now
	s.rows[collection] = append(s.rows[collection], fields)
	return nil
}

func (s *Store) UpdateByID(_ context.Context, collection store.Collection, id string, patch any) error {
	fields, err := toFields(patch)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.checkSession("update"); err != nil {
		return err
	}

	for _, row := range s.rows[collection] {
		if row["id"] != id {
			continue
		}
		for k, v := range fields {
			if k == "id" || k == "created_at" || k == "updated_at" {
				continue
			}
			row[k] = v
		}
		row["updated_at"] = s.now().UTC().Format(timestampLayout)
		return nil
	}

	// PostgREST reports a patch matching no rows as success
	return nil
}

// Count returns the number of stored rows in a collection.
func (s *Store) Count(collection store.Collection) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.rows[collection])
}

func (s *Store) checkSession(op string) error {
	if s.session == nil {
		return &store.Error{Op: op, Status: http.StatusUnauthorized, Message: store.ErrNotSignedIn.Message}
	}
	return nil
}

func toFields(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal row: %w", err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("row must be a json object: %w", err)
	}
	return fields, nil
}
