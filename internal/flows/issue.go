package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/refresh"
)

// IssueFailureKind classifies issue flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureSign
	IssueFailureDuplicate
	IssueFailureStore
)

// IssueResult carries either the minted pair or failure metadata.
type IssueResult struct {
	Failure  IssueFailureKind
	Err      error
	Subject  Subject
	RecordID string
	Access   jwt.Token
	Refresh  jwt.Token
}

// IssueDeps captures issue flow dependencies.
type IssueDeps struct {
	Access  TokenCodec
	Refresh TokenCodec
	Store   refresh.Store
}

// RunIssue mints an access/refresh pair for subject and records the refresh
// token.
func RunIssue(ctx context.Context, subject Subject, deps IssueDeps) IssueResult {
	res := IssueResult{Subject: subject}

	pair, err := mintPair(subject, deps.Access, deps.Refresh)
	if err != nil {
		res.Failure, res.Err = IssueFailureSign, err
		return res
	}

	rec, err := deps.Store.Put(ctx, subject.ID, pair.refresh.Value)
	if err != nil {
		if errors.Is(err, refresh.ErrDuplicateRecord) {
			res.Failure, res.Err = IssueFailureDuplicate, err
			return res
		}
		res.Failure, res.Err = IssueFailureStore, err
		return res
	}

	res.RecordID = rec.ID
	res.Access = pair.access
	res.Refresh = pair.refresh
	return res
}

type mintedPair struct {
	access  jwt.Token
	refresh jwt.Token
}

func mintPair(subject Subject, access, refreshCodec TokenCodec) (mintedPair, error) {
	a, err := access.Issue(subject.payload())
	if err != nil {
		return mintedPair{}, err
	}
	r, err := refreshCodec.Issue(jwt.Payload{Subject: subject.ID})
	if err != nil {
		return mintedPair{}, err
	}
	return mintedPair{access: a, refresh: r}, nil
}
