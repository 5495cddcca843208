package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/refresh"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureVerify
	RefreshFailureRecordMissing
	RefreshFailureFind
	RefreshFailureSubjectNotFound
	RefreshFailureSubjectLookup
	RefreshFailureSign
	RefreshFailureSuperseded
	RefreshFailureDuplicate
	RefreshFailureReplace
)

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	SubjectID string
	RecordID  string
	Subject   Subject
	Access    jwt.Token
	Refresh   jwt.Token
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Access          TokenCodec
	Refresh         TokenCodec
	Store           refresh.Store
	LookupSubject   SubjectLookup
	SubjectNotFound error
}

// RunRefresh verifies the presented refresh token, checks it against its
// durable record, and rotates the record to a freshly minted value. Of
// several calls racing on one token, the store's compare-and-swap lets
// exactly one through; the others end in RefreshFailureSuperseded.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Refresh.Verify(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureVerify, Err: err}
	}
	res := RefreshResult{SubjectID: claims.Subject}

	rec, err := deps.Store.Find(ctx, claims.Subject, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			res.Failure, res.Err = RefreshFailureRecordMissing, err
			return res
		}
		res.Failure, res.Err = RefreshFailureFind, err
		return res
	}
	res.RecordID = rec.ID

	subject, err := deps.LookupSubject(ctx, claims.Subject)
	if err != nil {
		if deps.SubjectNotFound != nil && errors.Is(err, deps.SubjectNotFound) {
			res.Failure, res.Err = RefreshFailureSubjectNotFound, err
			return res
		}
		res.Failure, res.Err = RefreshFailureSubjectLookup, err
		return res
	}
	// The record, not the provider, is authoritative for whose token this is.
	subject.ID = claims.Subject
	res.Subject = subject

	pair, err := mintPair(subject, deps.Access, deps.Refresh)
	if err != nil {
		res.Failure, res.Err = RefreshFailureSign, err
		return res
	}

	if err := deps.Store.Replace(ctx, rec.ID, refreshToken, pair.refresh.Value); err != nil {
		switch {
		case errors.Is(err, refresh.ErrNotFound):
			res.Failure = RefreshFailureSuperseded
		case errors.Is(err, refresh.ErrDuplicateRecord):
			res.Failure = RefreshFailureDuplicate
		default:
			res.Failure = RefreshFailureReplace
		}
		res.Err = err
		return res
	}

	res.Access = pair.access
	res.Refresh = pair.refresh
	return res
}
