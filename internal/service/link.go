package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lc2gh/internal/backend"
	"lc2gh/internal/model"
	"lc2gh/internal/repository"
	"lc2gh/pkg/logger"
)

// LinkStart 发起关联的结果
type LinkStart struct {
	URL   string `json:"url"`
	Nonce string `json:"nonce"`
}

// LinkService 账号关联
type LinkService interface {
	// Start 生成 GitHub 关联地址
	Start(ctx context.Context, redirect string) (*LinkStart, error)

	// Complete 从回跳地址的 fragment 中读取令牌并保存
	Complete(ctx context.Context, callbackURL, nonce string) (*model.AccountView, error)

	// Account 当前连接状态，已关联时附带 GitHub 账号信息
	Account(ctx context.Context) (*model.AccountView, error)

	// Logout 清除本地凭证
	Logout(ctx context.Context) error
}

// linkService 账号关联实现
type linkService struct {
	sessions repository.SessionRepository
	tokens   TokenManager
	backend  Backend
	apiBase  string

	mu     sync.Mutex
	nonces map[string]struct{}
}

// NewLinkService 创建账号关联实例，apiBase 为新关联使用的后端地址
func NewLinkService(sessions repository.SessionRepository, tokens TokenManager, backend Backend, apiBase string) LinkService {
	return &linkService{
		sessions: sessions,
		tokens:   tokens,
		backend:  backend,
		apiBase:  strings.TrimRight(apiBase, "/"),
		nonces:   make(map[string]struct{}),
	}
}

// Start 发起关联
func (s *linkService) Start(ctx context.Context, redirect string) (*LinkStart, error) {
	if strings.TrimSpace(redirect) == "" {
		return nil, ErrMissingRedirect
	}
	if _, err := s.sessions.EnsureDeviceID(ctx); err != nil {
		return nil, err
	}

	nonce := uuid.NewString()
	s.mu.Lock()
	s.nonces[nonce] = struct{}{}
	s.mu.Unlock()

	return &LinkStart{
		URL:   backend.GitHubStartURL(s.apiBase, redirect, nonce),
		Nonce: nonce,
	}, nil
}

// Complete 完成关联
func (s *linkService) Complete(ctx context.Context, callbackURL, nonce string) (*model.AccountView, error) {
	s.mu.Lock()
	_, ok := s.nonces[nonce]
	delete(s.nonces, nonce)
	s.mu.Unlock()
	if !ok {
		return nil, ErrNonceMismatch
	}

	tokens, err := ParseCallback(callbackURL)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.EnsureDeviceID(ctx); err != nil {
		return nil, err
	}
	if err := s.sessions.SaveLink(ctx, *tokens, s.apiBase); err != nil {
		return nil, err
	}
	logger.Info("account linked %s api=%s", logger.MaskToken(tokens.AccessToken), s.apiBase)

	return s.Account(ctx)
}

// Account 获取连接状态
func (s *linkService) Account(ctx context.Context) (*model.AccountView, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}

	view := &model.AccountView{
		Linked:   session.IsLinked(),
		APIBase:  session.APIBase,
		DeviceID: session.DeviceID,
	}
	if !view.Linked {
		return view, nil
	}

	settings, err := callWithAuth(ctx, s.tokens, func(base, token string) (*model.AccountSettings, error) {
		return s.backend.Settings(ctx, base, token)
	})
	if err != nil {
		return view, fmt.Errorf("failed to fetch settings: %w", err)
	}
	view.Account = settings
	view.RepoURL = settings.RepoURL()
	return view, nil
}

// Logout 清除凭证
func (s *linkService) Logout(ctx context.Context) error {
	if err := s.sessions.ClearCredentials(ctx); err != nil {
		return err
	}
	logger.Info("credentials cleared")
	return nil
}

// ParseCallback 解析回跳地址 fragment 中的 jwt、refresh、exp
func ParseCallback(callbackURL string) (*model.TokenSet, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse callback url: %w", err)
	}
	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to parse callback fragment: %w", err)
	}

	tokens := &model.TokenSet{
		AccessToken:  params.Get("jwt"),
		RefreshToken: params.Get("refresh"),
	}
	if exp, err := strconv.ParseInt(params.Get("exp"), 10, 64); err == nil {
		tokens.ExpiresAt = exp
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.ExpiresAt <= 0 {
		return nil, ErrCallbackMissingTokens
	}
	return tokens, nil
}
