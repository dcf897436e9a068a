// Package visits counts page views per page identity and notifies
// subscribers whenever a count changes.
package visits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ziadkadry99/markpage/internal/db"
)

// Store persists visit counts in the markpage database.
type Store struct {
	db *db.DB

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(int64)
}

// NewStore creates a Store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, subs: make(map[string]map[int]func(int64))}
}

// Hit records one visit of pageID and returns the new count.
func (s *Store) Hit(ctx context.Context, pageID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO page_visits (page_id, visits) VALUES (?, 1)
		ON CONFLICT(page_id) DO UPDATE SET visits = visits + 1, last_visit = datetime('now')
		RETURNING visits`, pageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("recording visit of %s: %w", pageID, err)
	}
	s.publish(pageID, count)
	return count, nil
}

// Count returns the visit count of pageID, zero when never visited.
func (s *Store) Count(ctx context.Context, pageID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT visits FROM page_visits WHERE page_id = ?`, pageID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading visits of %s: %w", pageID, err)
	}
	return count, nil
}

// Subscribe registers fn to receive every new count of pageID. The returned
// function removes the subscription.
func (s *Store) Subscribe(pageID string, fn func(count int64)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs[pageID] == nil {
		s.subs[pageID] = make(map[int]func(int64))
	}
	s.subs[pageID][id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[pageID], id)
			if len(s.subs[pageID]) == 0 {
				delete(s.subs, pageID)
			}
		})
	}
}

func (s *Store) publish(pageID string, count int64) {
	s.mu.Lock()
	fns := make([]func(int64), 0, len(s.subs[pageID]))
	for _, fn := range s.subs[pageID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(count)
	}
}
