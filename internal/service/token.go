package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"lc2gh/internal/backend"
	"lc2gh/internal/model"
	"lc2gh/internal/repository"
	"lc2gh/pkg/logger"
)

const (
	// refreshKey 整个进程只有一个会话，所有刷新共用一个 flight
	refreshKey = "session"
	// fallbackTokenTTL 刷新响应与令牌本身都没有过期时间时使用
	fallbackTokenTTL = 15 * time.Minute
)

// TokenManager 访问令牌生命周期管理
type TokenManager interface {
	// GetValidToken 返回有效的访问令牌，失效或即将失效时先刷新
	GetValidToken(ctx context.Context) (string, error)

	// Refresh 强制换取新的访问令牌
	Refresh(ctx context.Context) (string, error)

	// RefreshAfterReject 受保护接口拒绝 rejected 后调用，已被其他调用方换新时直接返回新令牌
	RefreshAfterReject(ctx context.Context, rejected string) (string, error)

	// APIBase 当前会话的后端地址
	APIBase(ctx context.Context) (string, error)
}

// tokenService 令牌管理实现
type tokenService struct {
	sessions       repository.SessionRepository
	backend        Backend
	leeway         time.Duration
	refreshTimeout time.Duration
	group          singleflight.Group
	now            func() time.Time
}

// NewTokenService 创建令牌管理实例
func NewTokenService(sessions repository.SessionRepository, backend Backend, leeway, refreshTimeout time.Duration) TokenManager {
	return newTokenService(sessions, backend, leeway, refreshTimeout, time.Now)
}

func newTokenService(sessions repository.SessionRepository, backend Backend, leeway, refreshTimeout time.Duration, now func() time.Time) *tokenService {
	if refreshTimeout <= 0 {
		refreshTimeout = 10 * time.Second
	}
	return &tokenService{
		sessions:       sessions,
		backend:        backend,
		leeway:         leeway,
		refreshTimeout: refreshTimeout,
		now:            now,
	}
}

// GetValidToken 获取有效令牌
func (s *tokenService) GetValidToken(ctx context.Context) (string, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return "", err
	}
	if !session.IsExpired(s.now(), s.leeway) {
		return session.AccessToken, nil
	}
	return s.refresh(ctx, "")
}

// Refresh 强制刷新
func (s *tokenService) Refresh(ctx context.Context) (string, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.refresh(ctx, session.AccessToken)
}

// RefreshAfterReject 被动刷新
func (s *tokenService) RefreshAfterReject(ctx context.Context, rejected string) (string, error) {
	return s.refresh(ctx, rejected)
}

// APIBase 获取后端地址
func (s *tokenService) APIBase(ctx context.Context) (string, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return "", err
	}
	if session.APIBase == "" {
		return "", ErrNotLinked
	}
	return session.APIBase, nil
}

// refresh 加入或发起唯一的刷新 flight；调用方只等待自己的 ctx，flight 本身不随某个调用方取消
func (s *tokenService) refresh(ctx context.Context, rejected string) (string, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(refreshKey, func() (interface{}, error) {
		return s.doRefresh(flightCtx, rejected)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *tokenService) doRefresh(ctx context.Context, rejected string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	session, err := s.sessions.Load(ctx)
	if err != nil {
		return "", err
	}

	// 上一个 flight 可能已经换好了令牌
	if !session.IsExpired(s.now(), s.leeway) && session.AccessToken != rejected {
		return session.AccessToken, nil
	}
	if !session.IsLinked() {
		return "", ErrNotLinked
	}

	deviceID := session.DeviceID
	if deviceID == "" {
		if deviceID, err = s.sessions.EnsureDeviceID(ctx); err != nil {
			return "", err
		}
	}

	resp, err := s.backend.Refresh(ctx, session.APIBase, model.RefreshRequest{
		RefreshToken: session.RefreshToken,
		DeviceID:     deviceID,
	})
	if err != nil {
		var apiErr *backend.APIError
		if !errors.As(err, &apiErr) {
			logger.Warn("token refresh failed, credentials kept: %v", err)
			return "", err
		}
		logger.Error("token refresh rejected status=%d, clearing credentials", apiErr.Status)
		if clearErr := s.sessions.ClearCredentials(ctx); clearErr != nil {
			return "", fmt.Errorf("failed to clear credentials after rejected refresh: %w", clearErr)
		}
		return "", &AuthError{Kind: AuthRefreshRejected, Err: err}
	}
	if resp.JWT == "" {
		return "", ErrMissingJWT
	}

	tokens := model.TokenSet{
		AccessToken:  resp.JWT,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.Exp,
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = session.RefreshToken
	}
	if tokens.ExpiresAt == 0 {
		tokens.ExpiresAt = expiryFromJWT(resp.JWT, s.now())
	}

	if err := s.sessions.ReplaceTokens(ctx, tokens); err != nil {
		return "", err
	}
	logger.Info("token refreshed %s expires_in=%s", logger.MaskToken(tokens.AccessToken),
		time.Unix(tokens.ExpiresAt, 0).Sub(s.now()).Round(time.Second))
	return tokens.AccessToken, nil
}

// expiryFromJWT 读取 JWT 的 exp 声明（不校验签名），读不到时按默认有效期估算
func expiryFromJWT(token string, now time.Time) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Unix()
		}
	}
	return now.Add(fallbackTokenTTL).Unix()
}
