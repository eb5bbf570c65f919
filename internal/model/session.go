package model

import "time"

// 持久化键名，与扩展端 chrome.storage.local 的键保持一致
const (
	KeyAccessToken  = "jwt"
	KeyRefreshToken = "refresh_token"
	KeyExpiresAt    = "exp"
	KeyAPIBase      = "apiBase"
	KeyDeviceID     = "ext_instance_id"
)

// CredentialKeys 刷新失败时需要一起清除的三个键
var CredentialKeys = []string{KeyAccessToken, KeyRefreshToken, KeyExpiresAt}

// Session 本机唯一的凭证会话
type Session struct {
	AccessToken  string `json:"jwt"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"exp"` // epoch 秒
	DeviceID     string `json:"ext_instance_id"`
	APIBase      string `json:"apiBase"`
}

// TokenSet 一次刷新或链接得到的令牌三元组
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// IsLinked 是否持有可用于刷新的凭证
func (s *Session) IsLinked() bool {
	return s != nil && s.RefreshToken != "" && s.APIBase != ""
}

// IsExpired 访问令牌缺失或距离过期不足 leeway 即视为失效
func (s *Session) IsExpired(now time.Time, leeway time.Duration) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	return now.Unix() >= s.ExpiresAt-int64(leeway/time.Second)
}

// ExpiresIn 距离过期的剩余时间
func (s *Session) ExpiresIn(now time.Time) time.Duration {
	if s == nil || s.ExpiresAt == 0 {
		return 0
	}
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}
