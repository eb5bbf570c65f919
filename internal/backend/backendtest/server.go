// Package backendtest 提供测试用的假后端，签发真实的 HS256 令牌并记录调用次数
package backendtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"lc2gh/internal/model"
)

const bearerSchema = "Bearer "

// Submission 假后端收到的一次写入
type Submission struct {
	IdempotencyKey string
	Token          string
	Artifact       model.Artifact
}

// Server 假后端
type Server struct {
	*httptest.Server

	secret   []byte
	tokenTTL time.Duration

	mu                sync.Mutex
	refreshTokens     map[string]bool
	statuses          map[string]model.SubmissionStatus
	submissions       []Submission
	settings          model.AccountSettings
	refreshStatus     int
	refreshDelay      time.Duration
	omitExp           bool
	keepRefreshToken  bool
	submissionStatus  int
	rejectSubmissions int
	revoked           map[string]bool

	refreshCalls    int32
	submissionCalls int32
	statusCalls     int32
	settingsCalls   int32
}

// New 启动假后端，测试结束时自动关闭
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:        []byte("backendtest-secret"),
		tokenTTL:      time.Hour,
		refreshTokens: make(map[string]bool),
		statuses:      make(map[string]model.SubmissionStatus),
		revoked:       make(map[string]bool),
		settings: model.AccountSettings{
			Login:     "octocat",
			AvatarURL: "https://avatars.example/octocat.png",
			FullName:  "octocat/leetcode",
		},
	}

	router := gin.New()
	router.POST("/auth/refresh", s.handleRefresh)
	protected := router.Group("/v1", s.requireBearer)
	{
		protected.POST("/submissions", s.handleCreateSubmission)
		protected.GET("/submissions/status", s.handleStatus)
		protected.GET("/settings", s.handleSettings)
	}

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// MintToken 签发一个访问令牌
func (s *Server) MintToken(ttl time.Duration) (string, int64) {
	exp := time.Now().Add(ttl).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "octocat",
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
		"exp": exp,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed, exp
}

// IssueRefreshToken 签发一个有效的刷新令牌
func (s *Server) IssueRefreshToken() string {
	rt := "rt-" + uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[rt] = true
	s.mu.Unlock()
	return rt
}

// Revoke 让某个访问令牌在签名有效的情况下也返回 401
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
}

// SetRefreshStatus 让刷新接口固定返回该状态码，0 表示恢复正常
func (s *Server) SetRefreshStatus(status int) {
	s.mu.Lock()
	s.refreshStatus = status
	s.mu.Unlock()
}

// SetRefreshDelay 刷新接口的响应延迟
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// SetRefreshResponseShape 控制刷新响应是否省略 exp 或 refresh_token
func (s *Server) SetRefreshResponseShape(omitExp, keepRefreshToken bool) {
	s.mu.Lock()
	s.omitExp = omitExp
	s.keepRefreshToken = keepRefreshToken
	s.mu.Unlock()
}

// SetStatus 设置某题的提交状态
func (s *Server) SetStatus(slug string, status model.SubmissionStatus) {
	s.mu.Lock()
	s.statuses[slug] = status
	s.mu.Unlock()
}

// SetSubmissionStatus 让写入接口固定返回该状态码，0 表示恢复正常
func (s *Server) SetSubmissionStatus(status int) {
	s.mu.Lock()
	s.submissionStatus = status
	s.mu.Unlock()
}

// RejectNextSubmissions 让接下来 n 次写入返回 401
func (s *Server) RejectNextSubmissions(n int) {
	s.mu.Lock()
	s.rejectSubmissions = n
	s.mu.Unlock()
}

// Submissions 已收到的写入
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// RefreshCalls 刷新接口被调用的次数
func (s *Server) RefreshCalls() int { return int(atomic.LoadInt32(&s.refreshCalls)) }

// SubmissionCalls 写入接口被调用的次数（含 401）
func (s *Server) SubmissionCalls() int { return int(atomic.LoadInt32(&s.submissionCalls)) }

// StatusCalls 状态接口被调用的次数
func (s *Server) StatusCalls() int { return int(atomic.LoadInt32(&s.statusCalls)) }

// SettingsCalls 设置接口被调用的次数
func (s *Server) SettingsCalls() int { return int(atomic.LoadInt32(&s.settingsCalls)) }

func (s *Server) handleRefresh(c *gin.Context) {
	atomic.AddInt32(&s.refreshCalls, 1)

	s.mu.Lock()
	delay := s.refreshDelay
	forced := s.refreshStatus
	omitExp := s.omitExp
	keepRefresh := s.keepRefreshToken
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != 0 {
		c.JSON(forced, gin.H{"error": "refresh rejected"})
		return
	}

	var req model.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing device_id"})
		return
	}

	s.mu.Lock()
	valid := s.refreshTokens[req.RefreshToken]
	s.mu.Unlock()
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	token, exp := s.MintToken(s.tokenTTL)
	resp := gin.H{"jwt": token}
	if !omitExp {
		resp["exp"] = exp
	}
	if !keepRefresh {
		next := s.IssueRefreshToken()
		s.mu.Lock()
		delete(s.refreshTokens, req.RefreshToken)
		s.mu.Unlock()
		resp["refresh_token"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// requireBearer 校验 Authorization 头中的访问令牌
func (s *Server) requireBearer(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerSchema) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	token := strings.TrimPrefix(header, bearerSchema)

	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	s.mu.Lock()
	revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
		return
	}

	c.Set("token", token)
	c.Next()
}

func (s *Server) handleCreateSubmission(c *gin.Context) {
	atomic.AddInt32(&s.submissionCalls, 1)

	s.mu.Lock()
	if s.rejectSubmissions > 0 {
		s.rejectSubmissions--
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
		return
	}
	forced := s.submissionStatus
	s.mu.Unlock()

	var artifact model.Artifact
	if err := json.NewDecoder(c.Request.Body).Decode(&artifact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if forced != 0 {
		c.JSON(forced, gin.H{"message": "backend unavailable"})
		return
	}

	key := c.GetHeader("Idempotency-Key")
	s.mu.Lock()
	s.submissions = append(s.submissions, Submission{
		IdempotencyKey: key,
		Token:          c.GetString("token"),
		Artifact:       artifact,
	})
	htmlFile := "https://github.com/octocat/leetcode/blob/main/" + artifact.Slug + ".html"
	s.statuses[artifact.Slug] = model.SubmissionStatus{Exists: true, HTMLFile: htmlFile}
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"ok": true, "slug": artifact.Slug, "html_file": htmlFile})
}

func (s *Server) handleStatus(c *gin.Context) {
	atomic.AddInt32(&s.statusCalls, 1)

	slug := c.Query("slug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing slug"})
		return
	}

	s.mu.Lock()
	status := s.statuses[slug]
	s.mu.Unlock()
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleSettings(c *gin.Context) {
	atomic.AddInt32(&s.settingsCalls, 1)

	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()
	c.JSON(http.StatusOK, settings)
}
