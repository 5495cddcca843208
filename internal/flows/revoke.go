package flows

import (
	"context"

	"github.com/MrEthical07/sessionauth/refresh"
)

// RevokeResult reports what a revoke attempt did. Err is informational: the
// caller never surfaces it.
type RevokeResult struct {
	SubjectID string
	Err       error
}

// RevokeDeps captures revoke flow dependencies.
type RevokeDeps struct {
	Refresh TokenCodec
	Store   refresh.Store
}

// RunRevoke deletes the record holding refreshToken. The token does not need
// to verify: an expired token's record must still be removable.
func RunRevoke(ctx context.Context, refreshToken string, deps RevokeDeps) RevokeResult {
	if refreshToken == "" {
		return RevokeResult{}
	}

	var res RevokeResult
	if claims, err := deps.Refresh.Verify(refreshToken); err == nil {
		res.SubjectID = claims.Subject
	}
	res.Err = deps.Store.Delete(ctx, refreshToken)
	return res
}
