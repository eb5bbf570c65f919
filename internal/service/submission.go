package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lc2gh/internal/backend"
	"lc2gh/internal/model"
	"lc2gh/internal/repository"
	"lc2gh/pkg/logger"
)

// StatusRefresher 提交结束后触发状态刷新
type StatusRefresher interface {
	RefreshStatus(slug string) <-chan model.StatusSnapshot
}

// SubmissionService 提交编排
type SubmissionService interface {
	// Submit 去重后把 artifact 发往后端，重复内容在未强制时直接跳过
	Submit(ctx context.Context, artifact *model.Artifact, opts model.SubmitOptions) (*model.SubmissionResult, error)
}

// submissionService 提交编排实现
type submissionService struct {
	tokens  TokenManager
	backend Backend
	dedup   repository.DedupCache
	status  StatusRefresher
	newKey  func() string
}

// NewSubmissionService 创建提交编排实例，status 可为 nil
func NewSubmissionService(tokens TokenManager, backend Backend, dedup repository.DedupCache, status StatusRefresher) SubmissionService {
	return &submissionService{
		tokens:  tokens,
		backend: backend,
		dedup:   dedup,
		status:  status,
		newKey:  uuid.NewString,
	}
}

// Submit 提交
func (s *submissionService) Submit(ctx context.Context, artifact *model.Artifact, opts model.SubmitOptions) (*model.SubmissionResult, error) {
	if artifact == nil {
		return nil, model.ErrMissingSlug
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	fp := artifact.Fingerprint()
	result := &model.SubmissionResult{Slug: artifact.Slug, Fingerprint: fp}

	// 插入先于网络请求，同内容的并发触发只有一个能通过
	fresh, err := s.dedup.MarkSeen(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to check dedup cache: %w", err)
	}
	if !fresh && !opts.Force {
		logger.Info("duplicate skipped slug=%s fp=%s", artifact.Slug, fp.Short())
		result.Outcome = model.OutcomeDuplicate
		return result, nil
	}

	key := s.newKey()
	result.IdempotencyKey = key
	defer s.refreshStatus(artifact.Slug)

	resp, err := callWithAuth(ctx, s.tokens, func(base, token string) (*backend.SubmissionResponse, error) {
		return s.backend.CreateSubmission(ctx, base, token, key, artifact)
	})
	if err != nil {
		result.Outcome = model.OutcomeFailed
		result.Message = err.Error()
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			result.StatusCode = apiErr.Status
			result.Body = apiErr.Body
			result.Message = apiErr.Message
		}
		logger.Error("submission failed slug=%s fp=%s key=%s: %v", artifact.Slug, fp.Short(), key, err)
		return result, err
	}

	result.Outcome = model.OutcomeAccepted
	result.StatusCode = resp.Status
	result.Body = resp.Body
	logger.Info("submission accepted slug=%s fp=%s key=%s status=%d force=%t",
		artifact.Slug, fp.Short(), key, resp.Status, opts.Force)
	return result, nil
}

func (s *submissionService) refreshStatus(slug string) {
	if s.status != nil {
		s.status.RefreshStatus(slug)
	}
}
