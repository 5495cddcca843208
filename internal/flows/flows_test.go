package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/refresh"
)

var errNoSubject = errors.New("no subject")

func newCodecs(t *testing.T) (*jwt.Manager, *jwt.Manager) {
	t.Helper()
	access, err := jwt.NewManager(jwt.Config{Use: jwt.UseAccess, TTL: 10 * time.Minute, PrivateKey: []byte("access-secret-0123456789abcdefghijkl")})
	if err != nil {
		t.Fatalf("access manager: %v", err)
	}
	refreshCodec, err := jwt.NewManager(jwt.Config{Use: jwt.UseRefresh, TTL: time.Hour, PrivateKey: []byte("refresh-secret-0123456789abcdefghijk")})
	if err != nil {
		t.Fatalf("refresh manager: %v", err)
	}
	return access, refreshCodec
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (s failingStore) Put(context.Context, string, string) (refresh.Record, error) {
	return refresh.Record{}, s.err
}
func (s failingStore) Find(context.Context, string, string) (refresh.Record, error) {
	return refresh.Record{}, s.err
}
func (s failingStore) Replace(context.Context, string, string, string) error { return s.err }
func (s failingStore) Delete(context.Context, string) error                  { return s.err }

func newDeps(t *testing.T, store refresh.Store, lookup SubjectLookup) Deps {
	access, refreshCodec := newCodecs(t)
	if lookup == nil {
		lookup = func(_ context.Context, id string) (Subject, error) {
			return Subject{ID: id, Email: id + "@example.com", Role: "user"}, nil
		}
	}
	return Deps{
		Issue:     IssueDeps{Access: access, Refresh: refreshCodec, Store: store},
		Refresh:   RefreshDeps{Access: access, Refresh: refreshCodec, Store: store, LookupSubject: lookup, SubjectNotFound: errNoSubject},
		Revoke:    RevokeDeps{Refresh: refreshCodec, Store: store},
		Authorize: AuthorizeDeps{Access: access},
	}
}

func TestIssueClassifiesStoreFailures(t *testing.T) {
	ctx := context.Background()

	svc := New(newDeps(t, failingStore{err: refresh.ErrDuplicateRecord}, nil))
	if res := svc.Issue(ctx, Subject{ID: "u1"}); res.Failure != IssueFailureDuplicate {
		t.Fatalf("expected IssueFailureDuplicate, got %v", res.Failure)
	}

	svc = New(newDeps(t, failingStore{err: refresh.ErrUnavailable}, nil))
	if res := svc.Issue(ctx, Subject{ID: "u1"}); res.Failure != IssueFailureStore {
		t.Fatalf("expected IssueFailureStore, got %v", res.Failure)
	}

	svc = New(newDeps(t, refresh.NewMemoryStore(0, nil), nil))
	if res := svc.Issue(ctx, Subject{}); res.Failure != IssueFailureSign {
		t.Fatalf("expected IssueFailureSign for empty subject, got %v", res.Failure)
	}
}

func TestRefreshFailureKinds(t *testing.T) {
	ctx := context.Background()
	store := refresh.NewMemoryStore(0, nil)
	svc := New(newDeps(t, store, nil))

	issued := svc.Issue(ctx, Subject{ID: "u1", Email: "u1@example.com", Role: "user"})
	if issued.Failure != IssueFailureNone {
		t.Fatalf("issue: %v", issued.Err)
	}

	if res := svc.Refresh(ctx, "garbage"); res.Failure != RefreshFailureVerify {
		t.Fatalf("expected RefreshFailureVerify, got %v", res.Failure)
	}
	if res := svc.Refresh(ctx, issued.Access.Value); res.Failure != RefreshFailureVerify {
		t.Fatalf("access token accepted as refresh token: %v", res.Failure)
	}

	first := svc.Refresh(ctx, issued.Refresh.Value)
	if first.Failure != RefreshFailureNone {
		t.Fatalf("first refresh: %v (%v)", first.Failure, first.Err)
	}
	if first.RecordID != issued.RecordID {
		t.Fatalf("rotation must keep record %s, got %s", issued.RecordID, first.RecordID)
	}
	if first.Refresh.Value == issued.Refresh.Value {
		t.Fatal("rotated value must differ")
	}

	if res := svc.Refresh(ctx, issued.Refresh.Value); res.Failure != RefreshFailureRecordMissing {
		t.Fatalf("expected RefreshFailureRecordMissing on replay, got %v", res.Failure)
	}
}

func TestRefreshSubjectLookup(t *testing.T) {
	ctx := context.Background()
	store := refresh.NewMemoryStore(0, nil)

	boom := errors.New("directory offline")
	var lookupErr error
	svc := New(newDeps(t, store, func(context.Context, string) (Subject, error) {
		return Subject{}, lookupErr
	}))

	lookupErr = errNoSubject
	issued := svc.Issue(ctx, Subject{ID: "u1"})
	if res := svc.Refresh(ctx, issued.Refresh.Value); res.Failure != RefreshFailureSubjectNotFound {
		t.Fatalf("expected RefreshFailureSubjectNotFound, got %v", res.Failure)
	}

	lookupErr = boom
	if res := svc.Refresh(ctx, issued.Refresh.Value); res.Failure != RefreshFailureSubjectLookup || !errors.Is(res.Err, boom) {
		t.Fatalf("expected RefreshFailureSubjectLookup, got %v (%v)", res.Failure, res.Err)
	}
}

func TestRefreshStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	good := New(newDeps(t, refresh.NewMemoryStore(0, nil), nil))
	issued := good.Issue(ctx, Subject{ID: "u1"})

	down := New(newDeps(t, failingStore{err: refresh.ErrUnavailable}, nil))
	if res := down.Refresh(ctx, issued.Refresh.Value); res.Failure != RefreshFailureFind {
		t.Fatalf("expected RefreshFailureFind, got %v", res.Failure)
	}
}

func TestRevokeIgnoresEmptyAndUnverifiableTokens(t *testing.T) {
	ctx := context.Background()
	store := refresh.NewMemoryStore(0, nil)
	svc := New(newDeps(t, store, nil))

	if res := svc.Revoke(ctx, ""); res.Err != nil {
		t.Fatalf("empty revoke: %v", res.Err)
	}
	if res := svc.Revoke(ctx, "not-a-token"); res.Err != nil || res.SubjectID != "" {
		t.Fatalf("unexpected revoke result: %+v", res)
	}

	issued := svc.Issue(ctx, Subject{ID: "u1"})
	res := svc.Revoke(ctx, issued.Refresh.Value)
	if res.Err != nil || res.SubjectID != "u1" {
		t.Fatalf("unexpected revoke result: %+v", res)
	}
	if store.Len() != 0 {
		t.Fatalf("record not removed")
	}
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	svc := New(newDeps(t, refresh.NewMemoryStore(0, nil), nil))
	if !svc.Initialized() {
		t.Fatal("service should be initialized")
	}

	if res := svc.Authorize(ctx, ""); res.Failure != AuthorizeFailureMissing {
		t.Fatalf("expected AuthorizeFailureMissing, got %v", res.Failure)
	}
	if res := svc.Authorize(ctx, "x.y.z"); res.Failure != AuthorizeFailureInvalid {
		t.Fatalf("expected AuthorizeFailureInvalid, got %v", res.Failure)
	}

	issued := svc.Issue(ctx, Subject{ID: "u1", Email: "u1@example.com", Role: "admin"})
	res := svc.Authorize(ctx, issued.Access.Value)
	if res.Failure != AuthorizeFailureNone || res.Claims.Subject != "u1" || res.Claims.Role != "admin" {
		t.Fatalf("unexpected authorize result: %+v", res)
	}
	if res := svc.Authorize(ctx, issued.Refresh.Value); res.Failure != AuthorizeFailureInvalid {
		t.Fatal("refresh token accepted as access token")
	}
}
