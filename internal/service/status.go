package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"lc2gh/internal/model"
	"lc2gh/pkg/logger"
)

var (
	acceptedPattern = regexp.MustCompile(`(?i)(^|\b)Accepted(\b|$)`)
	runtimePattern  = regexp.MustCompile(`(?i)Runtime:\s*([0-9.]+\s*ms)`)
	memoryPattern   = regexp.MustCompile(`(?i)Memory:\s*([0-9.]+\s*MB)`)
)

// Publisher 状态快照的订阅方
type Publisher interface {
	Publish(snapshot model.StatusSnapshot)
}

// DetectSignal 从页面文本中识别通过信号
func DetectSignal(pageText string) model.PageSignal {
	signal := model.PageSignal{Accepted: acceptedPattern.MatchString(pageText)}
	if m := runtimePattern.FindStringSubmatch(pageText); m != nil {
		signal.Runtime = strings.TrimSpace(m[1])
	}
	if m := memoryPattern.FindStringSubmatch(pageText); m != nil {
		signal.Memory = strings.TrimSpace(m[1])
	}
	return signal
}

// StatusService 当前题目的提交状态机
type StatusService struct {
	tokens       TokenManager
	backend      Backend
	publisher    Publisher
	queryTimeout time.Duration

	mu         sync.Mutex
	slug       string
	generation uint64
	state      model.StatusState
	htmlFile   string
	accepted   bool
	override   bool
}

// NewStatusService 创建状态机，publisher 可为 nil
func NewStatusService(tokens TokenManager, backend Backend, publisher Publisher, queryTimeout time.Duration) *StatusService {
	if queryTimeout <= 0 {
		queryTimeout = 15 * time.Second
	}
	return &StatusService{
		tokens:       tokens,
		backend:      backend,
		publisher:    publisher,
		queryTimeout: queryTimeout,
		state:        model.StatusUnknown,
	}
}

// Navigate 切换到 slug，换题时清空状态与替换许可，并在后台查询状态
func (s *StatusService) Navigate(slug string) <-chan model.StatusSnapshot {
	slug = strings.TrimSpace(slug)

	s.mu.Lock()
	if slug != s.slug {
		s.slug = slug
		s.state = model.StatusUnknown
		s.htmlFile = ""
		s.accepted = false
		s.override = false
	}
	s.generation++
	gen := s.generation
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	if slug == "" {
		return resolved(snap)
	}
	logger.Debug("status query scheduled slug=%s generation=%d", slug, gen)
	return s.query(slug, gen)
}

// RefreshStatus 重新查询 slug 的状态，slug 不是当前题目时不做任何事
func (s *StatusService) RefreshStatus(slug string) <-chan model.StatusSnapshot {
	s.mu.Lock()
	if slug == "" || slug != s.slug {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return resolved(snap)
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	return s.query(slug, gen)
}

// ObservePage 记录页面上的通过信号，slug 为空表示当前题目
func (s *StatusService) ObservePage(slug string, signal model.PageSignal) model.StatusSnapshot {
	s.mu.Lock()
	if slug != "" && slug != s.slug {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		logger.Debug("signal for stale slug=%s ignored", slug)
		return snap
	}
	observed := signal.Observed()
	changed := observed != s.accepted
	s.accepted = observed
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		if observed {
			logger.Info("accepted signal observed slug=%s runtime=%q memory=%q", snap.Slug, signal.Runtime, signal.Memory)
		} else {
			logger.Info("accepted signal cleared slug=%s", snap.Slug)
		}
		s.publish(snap)
	}
	return snap
}

// DecideManual 判定一次手动提交/替换，缺少确认时返回需要的确认类型
func (s *StatusService) DecideManual(action model.ManualAction) model.ManualDecision {
	s.mu.Lock()
	if !s.accepted && !action.ConfirmWithoutAccepted {
		s.mu.Unlock()
		return model.ManualDecision{Confirmation: model.ConfirmAcceptedMissing}
	}
	if s.state == model.StatusSubmitted && !action.ConfirmReplace {
		s.mu.Unlock()
		return model.ManualDecision{Confirmation: model.ConfirmReplaceExisting}
	}

	// 只有确认替换已存在的提交才跳过去重
	force := action.ConfirmReplace && s.state == model.StatusSubmitted
	changed := false
	if (action.ConfirmWithoutAccepted || action.ConfirmReplace) && !s.override {
		s.override = true
		changed = true
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.publish(snap)
	}
	return model.ManualDecision{Proceed: true, Options: model.SubmitOptions{Force: force}}
}

// Snapshot 当前状态快照
func (s *StatusService) Snapshot() model.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *StatusService) query(slug string, gen uint64) <-chan model.StatusSnapshot {
	done := make(chan model.StatusSnapshot, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
		defer cancel()

		status, err := callWithAuth(ctx, s.tokens, func(base, token string) (*model.SubmissionStatus, error) {
			return s.backend.SubmissionStatus(ctx, base, token, slug)
		})

		s.mu.Lock()
		if s.slug != slug || s.generation != gen {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			logger.Debug("stale status result ignored slug=%s generation=%d", slug, gen)
			done <- snap
			return
		}
		if err != nil || status == nil || !status.Exists {
			s.state = model.StatusNotSubmitted
			s.htmlFile = ""
		} else {
			s.state = model.StatusSubmitted
			s.htmlFile = status.HTMLFile
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()

		if err != nil {
			logger.Warn("status query failed slug=%s, showing not submitted: %v", slug, err)
		}
		s.publish(snap)
		done <- snap
	}()
	return done
}

func (s *StatusService) snapshotLocked() model.StatusSnapshot {
	return model.StatusSnapshot{
		Slug:           s.slug,
		State:          s.state,
		HTMLFile:       s.htmlFile,
		Accepted:       s.accepted,
		ReplaceAllowed: s.accepted || s.override,
		Generation:     s.generation,
	}
}

func (s *StatusService) publish(snap model.StatusSnapshot) {
	if s.publisher != nil {
		s.publisher.Publish(snap)
	}
}

func resolved(snap model.StatusSnapshot) <-chan model.StatusSnapshot {
	ch := make(chan model.StatusSnapshot, 1)
	ch <- snap
	return ch
}
