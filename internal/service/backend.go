package service

import (
	"context"

	"lc2gh/internal/backend"
	"lc2gh/internal/model"
)

// Backend 后端 HTTP API
type Backend interface {
	Refresh(ctx context.Context, base string, req model.RefreshRequest) (*model.RefreshResponse, error)
	CreateSubmission(ctx context.Context, base, token, idempotencyKey string, artifact *model.Artifact) (*backend.SubmissionResponse, error)
	SubmissionStatus(ctx context.Context, base, token, slug string) (*model.SubmissionStatus, error)
	Settings(ctx context.Context, base, token string) (*model.AccountSettings, error)
}

// callWithAuth 调用受保护接口，401 时刷新一次并用新令牌重试一次
func callWithAuth[T any](ctx context.Context, tokens TokenManager, call func(base, token string) (T, error)) (T, error) {
	var zero T

	base, err := tokens.APIBase(ctx)
	if err != nil {
		return zero, err
	}
	token, err := tokens.GetValidToken(ctx)
	if err != nil {
		return zero, err
	}

	result, err := call(base, token)
	if !backend.IsUnauthorized(err) {
		return result, err
	}

	token, err = tokens.RefreshAfterReject(ctx, token)
	if err != nil {
		return zero, err
	}
	result, err = call(base, token)
	if backend.IsUnauthorized(err) {
		return zero, &AuthError{Kind: AuthUnauthorized, Err: err}
	}
	return result, err
}
