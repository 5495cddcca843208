package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	putStatusDuplicate int64 = 0
	putStatusCreated   int64 = 1

	replaceStatusNotFound  int64 = 0
	replaceStatusReplaced  int64 = 1
	replaceStatusMismatch  int64 = 2
	replaceStatusDuplicate int64 = 3
)

// KEYS: record, token index. ARGV: id, subject, hash, created_ms, ttl_ms.
const putRecordScript = `
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "sub", ARGV[2], "th", ARGV[3], "ca", ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[5])
return 1
`

// KEYS: token index. ARGV: record prefix, subject, hash.
const findRecordScript = `
local id = redis.call("GET", KEYS[1])
if not id then
  return {0}
end
local rec = redis.call("HMGET", ARGV[1] .. id, "sub", "th", "ca")
if not rec[1] or not rec[2] then
  return {0}
end
if rec[1] ~= ARGV[2] or rec[2] ~= ARGV[3] then
  return {0}
end
return {1, id, rec[3]}
`

// KEYS: record, old token index, new token index. ARGV: id, current hash, next hash.
// The new index inherits the record's remaining TTL so rotation never
// extends retention.
const replaceRecordScript = `
local th = redis.call("HGET", KEYS[1], "th")
if not th then
  return 0
end
if th ~= ARGV[2] then
  return 2
end
if redis.call("EXISTS", KEYS[3]) == 1 then
  return 3
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  return 0
end
redis.call("HSET", KEYS[1], "th", ARGV[3])
redis.call("SET", KEYS[3], ARGV[1], "PX", ttl)
redis.call("DEL", KEYS[2])
return 1
`

// KEYS: token index. ARGV: record prefix, hash.
const deleteRecordScript = `
local id = redis.call("GET", KEYS[1])
if not id then
  return 0
end
redis.call("DEL", KEYS[1])
local rk = ARGV[1] .. id
if redis.call("HGET", rk, "th") == ARGV[2] then
  redis.call("DEL", rk)
end
return 1
`

var (
	putRecordLua     = redis.NewScript(putRecordScript)
	findRecordLua    = redis.NewScript(findRecordScript)
	replaceRecordLua = redis.NewScript(replaceRecordScript)
	deleteRecordLua  = redis.NewScript(deleteRecordScript)
)

// RedisStore keeps refresh records in Redis. Retention is enforced by key
// TTLs, and every mutation is a single Lua script, so Put, Replace and Delete
// are atomic with respect to each other.
//
// Layout:
//
//	<prefix>:rec:<id>    hash {sub, th, ca}  PX retention
//	<prefix>:tok:<hash>  string id           PX remaining retention
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore creates a RedisStore. A zero retention selects DefaultRetention.
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: normalizeRetention(retention),
		now:       time.Now,
	}
}

func (s *RedisStore) recordPrefix() string { return s.prefix + ":rec:" }

func (s *RedisStore) recordKey(id string) string { return s.recordPrefix() + id }

func (s *RedisStore) tokenKey(hash string) string { return s.prefix + ":tok:" + hash }

// Put inserts a record for token.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Put(ctx context.Context, subjectID, token string) (Record, error) {
	now := s.now()
	rec := Record{
		ID:        NewRecordID(now),
		SubjectID: subjectID,
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.retention),
	}

	status, err := putRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(rec.ID), s.tokenKey(rec.TokenHash)},
		rec.ID,
		subjectID,
		rec.TokenHash,
		now.UnixMilli(),
		s.retention.Milliseconds(),
	).Int64()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case putStatusCreated:
		return rec, nil
	case putStatusDuplicate:
		return Record{}, ErrDuplicateRecord
	default:
		return Record{}, fmt.Errorf("%w: unknown put status %d", ErrUnavailable, status)
	}
}

// Find looks a record up by subject and token value.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Find(ctx context.Context, subjectID, token string) (Record, error) {
	hash := HashToken(token)
	result, err := findRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(hash)},
		s.recordPrefix(),
		subjectID,
		hash,
	).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return Record{}, fmt.Errorf("%w: invalid find script response", ErrUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return Record{}, fmt.Errorf("%w: invalid find script status", ErrUnavailable)
	}
	if code == 0 {
		return Record{}, ErrNotFound
	}
	if len(parts) < 3 {
		return Record{}, fmt.Errorf("%w: truncated find script response", ErrUnavailable)
	}

	id, _ := parts[1].(string)
	createdRaw, _ := parts[2].(string)
	createdMs, err := strconv.ParseInt(createdRaw, 10, 64)
	if id == "" || err != nil {
		return Record{}, fmt.Errorf("%w: corrupt record", ErrUnavailable)
	}
	created := time.UnixMilli(createdMs)

	return Record{
		ID:        id,
		SubjectID: subjectID,
		TokenHash: hash,
		CreatedAt: created,
		ExpiresAt: created.Add(s.retention),
	}, nil
}

// Replace swaps the record's token hash from currentToken to nextToken.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: a caller that lost the race sees ErrNotFound, never a silent overwrite.
func (s *RedisStore) Replace(ctx context.Context, recordID, currentToken, nextToken string) error {
	currentHash := HashToken(currentToken)
	nextHash := HashToken(nextToken)

	status, err := replaceRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(recordID), s.tokenKey(currentHash), s.tokenKey(nextHash)},
		recordID,
		currentHash,
		nextHash,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case replaceStatusReplaced:
		return nil
	case replaceStatusNotFound, replaceStatusMismatch:
		return ErrNotFound
	case replaceStatusDuplicate:
		return ErrDuplicateRecord
	default:
		return fmt.Errorf("%w: unknown replace status %d", ErrUnavailable, status)
	}
}

// Delete removes the record currently holding token. Missing tokens are not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	hash := HashToken(token)
	err := deleteRecordLua.Run(ctx, s.redis, []string{s.tokenKey(hash)}, s.recordPrefix(), hash).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
