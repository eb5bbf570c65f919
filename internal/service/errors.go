package service

import (
	"errors"
	"fmt"
)

// AuthErrorKind 认证失败的类别
type AuthErrorKind string

const (
	// AuthRefreshRejected 刷新令牌被拒绝，凭证已清除，需要重新关联
	AuthRefreshRejected AuthErrorKind = "refresh_rejected"
	// AuthUnauthorized 刷新后重试仍然 401
	AuthUnauthorized AuthErrorKind = "unauthorized"
	// AuthNotLinked 本地没有可用的凭证
	AuthNotLinked AuthErrorKind = "not_linked"
)

// AuthError 认证错误
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth error: %s", e.Kind)
	}
	return fmt.Sprintf("auth error: %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is 同类别的 AuthError 视为相等，便于 errors.Is 匹配哨兵错误
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrRefreshRejected = &AuthError{Kind: AuthRefreshRejected}
	ErrUnauthorized    = &AuthError{Kind: AuthUnauthorized}
	ErrNotLinked       = &AuthError{Kind: AuthNotLinked}
)

var (
	// ErrMissingJWT 刷新响应缺少访问令牌
	ErrMissingJWT = errors.New("refresh response missing jwt")
	// ErrCallbackMissingTokens 关联回调缺少令牌
	ErrCallbackMissingTokens = errors.New("missing tokens in callback")
	// ErrNonceMismatch 关联回调的 nonce 与发起时不一致
	ErrNonceMismatch = errors.New("link nonce mismatch")
	// ErrMissingRedirect 发起关联时缺少回跳地址
	ErrMissingRedirect = errors.New("redirect url is required")
)

// IsAuthError 判断是否为认证错误
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
