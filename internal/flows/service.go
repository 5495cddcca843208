package flows

import "context"

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authorize.Access != nil && s.deps.Refresh.Store != nil
}

func (s Service) Issue(ctx context.Context, subject Subject) IssueResult {
	return RunIssue(ctx, subject, s.deps.Issue)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Revoke(ctx context.Context, refreshToken string) RevokeResult {
	return RunRevoke(ctx, refreshToken, s.deps.Revoke)
}

func (s Service) Authorize(ctx context.Context, accessToken string) AuthorizeResult {
	return RunAuthorize(ctx, accessToken, s.deps.Authorize)
}
