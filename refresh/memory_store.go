package refresh

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	subjectID string
	tokenHash string
	createdAt time.Time
}

// MemoryStore is an in-process Store for tests and single-node development.
// Expired records are hidden on read and reclaimed by DeleteExpired.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[string]*memoryRecord
	byHash    map[string]string
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore. now may be nil.
func NewMemoryStore(retention time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records:   make(map[string]*memoryRecord),
		byHash:    make(map[string]string),
		retention: normalizeRetention(retention),
		now:       now,
	}
}

func (s *MemoryStore) live(rec *memoryRecord, now time.Time) bool {
	return now.Before(rec.createdAt.Add(s.retention))
}

// Put stores a new record for token. A live record already holding the same
// hash yields ErrDuplicateRecord; an expired one is replaced.
func (s *MemoryStore) Put(ctx context.Context, subjectID, token string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	hash := HashToken(token)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byHash[hash]; ok {
		if rec := s.records[id]; rec != nil && s.live(rec, now) {
			return Record{}, ErrDuplicateRecord
		}
		s.dropLocked(id)
	}

	id := NewRecordID(now)
	s.records[id] = &memoryRecord{subjectID: subjectID, tokenHash: hash, createdAt: now}
	s.byHash[hash] = id

	return Record{
		ID:        id,
		SubjectID: subjectID,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.retention),
	}, nil
}

// Find returns the live record for token owned by subjectID, or ErrNotFound.
func (s *MemoryStore) Find(ctx context.Context, subjectID, token string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	hash := HashToken(token)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec := s.records[id]
	if rec == nil || !s.live(rec, now) || rec.subjectID != subjectID {
		return Record{}, ErrNotFound
	}

	return Record{
		ID:        id,
		SubjectID: rec.subjectID,
		TokenHash: rec.tokenHash,
		CreatedAt: rec.createdAt,
		ExpiresAt: rec.createdAt.Add(s.retention),
	}, nil
}

// Replace swaps the token hash of recordID from currentToken to nextToken
// under the store lock. It fails with ErrNotFound when the record is gone,
// expired, or no longer holds currentToken.
func (s *MemoryStore) Replace(ctx context.Context, recordID, currentToken, nextToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	currentHash := HashToken(currentToken)
	nextHash := HashToken(nextToken)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[recordID]
	if rec == nil || !s.live(rec, now) || rec.tokenHash != currentHash {
		return ErrNotFound
	}
	if _, taken := s.byHash[nextHash]; taken {
		return ErrDuplicateRecord
	}

	delete(s.byHash, currentHash)
	rec.tokenHash = nextHash
	s.byHash[nextHash] = recordID
	return nil
}

// Delete removes the record holding token. Missing tokens are not an error.
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hash := HashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byHash[hash]; ok {
		s.dropLocked(id)
	}
	return nil
}

// DeleteExpired removes every record past its retention deadline.
func (s *MemoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.records {
		if !s.live(rec, now) {
			s.dropLocked(id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) dropLocked(id string) {
	rec := s.records[id]
	if rec == nil {
		return
	}
	if s.byHash[rec.tokenHash] == id {
		delete(s.byHash, rec.tokenHash)
	}
	delete(s.records, id)
}
