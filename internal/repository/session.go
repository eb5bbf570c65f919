package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"lc2gh/internal/model"
)

// SessionRepository 凭证与设备信息的持久化
type SessionRepository interface {
	// Load 读取当前会话，从不返回 nil
	Load(ctx context.Context) (*model.Session, error)

	// ReplaceTokens 原子地替换 jwt、refresh_token 与 exp
	ReplaceTokens(ctx context.Context, tokens model.TokenSet) error

	// SaveLink 关联账号时同时写入令牌与后端地址
	SaveLink(ctx context.Context, tokens model.TokenSet, apiBase string) error

	// ClearCredentials 清除全部凭证，保留设备ID与后端地址
	ClearCredentials(ctx context.Context) error

	// EnsureDeviceID 返回设备ID，不存在时生成并持久化
	EnsureDeviceID(ctx context.Context) (string, error)
}

// sessionRepository 基于 KVStore 的实现
type sessionRepository struct {
	store KVStore
}

// NewSessionRepository 创建会话仓储实例
func NewSessionRepository(store KVStore) SessionRepository {
	return &sessionRepository{store: store}
}

// Load 读取当前会话
func (r *sessionRepository) Load(ctx context.Context) (*model.Session, error) {
	values, err := r.store.Get(ctx,
		model.KeyAccessToken,
		model.KeyRefreshToken,
		model.KeyExpiresAt,
		model.KeyDeviceID,
		model.KeyAPIBase,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session := &model.Session{
		AccessToken:  values[model.KeyAccessToken],
		RefreshToken: values[model.KeyRefreshToken],
		DeviceID:     values[model.KeyDeviceID],
		APIBase:      values[model.KeyAPIBase],
	}
	if raw := values[model.KeyExpiresAt]; raw != "" {
		// 无法解析的过期时间按 0 处理，即视为已过期
		if exp, err := strconv.ParseInt(raw, 10, 64); err == nil {
			session.ExpiresAt = exp
		}
	}
	return session, nil
}

// ReplaceTokens 原子替换令牌
func (r *sessionRepository) ReplaceTokens(ctx context.Context, tokens model.TokenSet) error {
	if err := r.store.Update(ctx, tokenValues(tokens), nil); err != nil {
		return fmt.Errorf("failed to replace tokens: %w", err)
	}
	return nil
}

// SaveLink 写入令牌与后端地址
func (r *sessionRepository) SaveLink(ctx context.Context, tokens model.TokenSet, apiBase string) error {
	set := tokenValues(tokens)
	if apiBase != "" {
		set[model.KeyAPIBase] = apiBase
	}
	if err := r.store.Update(ctx, set, nil); err != nil {
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

// ClearCredentials 清除凭证
func (r *sessionRepository) ClearCredentials(ctx context.Context) error {
	if err := r.store.Update(ctx, nil, model.CredentialKeys); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// EnsureDeviceID 获取或生成设备ID
func (r *sessionRepository) EnsureDeviceID(ctx context.Context) (string, error) {
	id, err := r.store.SetIfAbsent(ctx, model.KeyDeviceID, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("failed to ensure device id: %w", err)
	}
	return id, nil
}

func tokenValues(tokens model.TokenSet) map[string]string {
	return map[string]string{
		model.KeyAccessToken:  tokens.AccessToken,
		model.KeyRefreshToken: tokens.RefreshToken,
		model.KeyExpiresAt:    strconv.FormatInt(tokens.ExpiresAt, 10),
	}
}
