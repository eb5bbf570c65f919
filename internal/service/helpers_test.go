package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lc2gh/internal/backend"
	"lc2gh/internal/backend/backendtest"
	"lc2gh/internal/model"
	"lc2gh/internal/repository"
)

const testLeeway = 90 * time.Second

type fixture struct {
	srv      *backendtest.Server
	sessions repository.SessionRepository
	client   *backend.Client
	tokens   *tokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := backendtest.New(t)
	sessions := repository.NewSessionRepository(repository.NewMemoryKVStore())
	client := backend.NewClient(5 * time.Second)
	return &fixture{
		srv:      srv,
		sessions: sessions,
		client:   client,
		tokens:   newTokenService(sessions, client, testLeeway, 5*time.Second, time.Now),
	}
}

// link 写入一组由假后端签发的凭证，ttl 为访问令牌剩余有效期
func (f *fixture) link(t *testing.T, ttl time.Duration) (string, string) {
	t.Helper()
	token, exp := f.srv.MintToken(ttl)
	rt := f.srv.IssueRefreshToken()
	if err := f.sessions.SaveLink(context.Background(), model.TokenSet{
		AccessToken:  token,
		RefreshToken: rt,
		ExpiresAt:    exp,
	}, f.srv.URL); err != nil {
		t.Fatalf("SaveLink: %v", err)
	}
	return token, rt
}

func (f *fixture) session(t *testing.T) *model.Session {
	t.Helper()
	session, err := f.sessions.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return session
}

// stubTokens 固定返回同一个令牌
type stubTokens struct {
	base  string
	token string
}

func (s *stubTokens) GetValidToken(context.Context) (string, error) { return s.token, nil }
func (s *stubTokens) Refresh(context.Context) (string, error)       { return s.token, nil }
func (s *stubTokens) RefreshAfterReject(context.Context, string) (string, error) {
	return "", ErrUnauthorized
}
func (s *stubTokens) APIBase(context.Context) (string, error) { return s.base, nil }

// stubBackend 状态查询可按 slug 挂起，用于构造乱序返回
type stubBackend struct {
	mu       sync.Mutex
	statuses map[string]model.SubmissionStatus
	gates    map[string]chan struct{}
	fail     map[string]bool
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		statuses: make(map[string]model.SubmissionStatus),
		gates:    make(map[string]chan struct{}),
		fail:     make(map[string]bool),
	}
}

func (b *stubBackend) hold(slug string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	b.gates[slug] = gate
	return gate
}

func (b *stubBackend) Refresh(context.Context, string, model.RefreshRequest) (*model.RefreshResponse, error) {
	return nil, errors.New("not implemented")
}

func (b *stubBackend) CreateSubmission(context.Context, string, string, string, *model.Artifact) (*backend.SubmissionResponse, error) {
	return nil, errors.New("not implemented")
}

func (b *stubBackend) SubmissionStatus(ctx context.Context, _, _, slug string) (*model.SubmissionStatus, error) {
	b.mu.Lock()
	gate := b.gates[slug]
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[slug] {
		return nil, &backend.APIError{Status: 500, Message: "boom"}
	}
	status := b.statuses[slug]
	return &status, nil
}

func (b *stubBackend) Settings(context.Context, string, string) (*model.AccountSettings, error) {
	return nil, errors.New("not implemented")
}

// recordingPublisher 记录发布的快照
type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []model.StatusSnapshot
}

func (p *recordingPublisher) Publish(snap model.StatusSnapshot) {
	p.mu.Lock()
	p.snapshots = append(p.snapshots, snap)
	p.mu.Unlock()
}

func (p *recordingPublisher) last() model.StatusSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return model.StatusSnapshot{}
	}
	return p.snapshots[len(p.snapshots)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

// refreshRecorder 记录状态刷新请求
type refreshRecorder struct {
	mu    sync.Mutex
	slugs []string
}

func (r *refreshRecorder) RefreshStatus(slug string) <-chan model.StatusSnapshot {
	r.mu.Lock()
	r.slugs = append(r.slugs, slug)
	r.mu.Unlock()
	return resolved(model.StatusSnapshot{Slug: slug})
}

func (r *refreshRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.slugs...)
}

func waitSnapshot(t *testing.T, ch <-chan model.StatusSnapshot) model.StatusSnapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for status result")
		return model.StatusSnapshot{}
	}
}
