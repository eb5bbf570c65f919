package model

// AccountSettings /v1/settings 返回的账号信息
type AccountSettings struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	FullName  string `json:"full_name"`
}

// RepoURL 关联仓库地址
func (s *AccountSettings) RepoURL() string {
	if s == nil || s.FullName == "" {
		return ""
	}
	return "https://github.com/" + s.FullName
}

// RefreshRequest 刷新请求体
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceID     string `json:"device_id"`
}

// RefreshResponse 刷新响应体
type RefreshResponse struct {
	JWT          string `json:"jwt"`
	RefreshToken string `json:"refresh_token"`
	Exp          int64  `json:"exp"`
}

// AccountView 本地展示用的连接状态
type AccountView struct {
	Linked   bool             `json:"linked"`
	APIBase  string           `json:"api_base,omitempty"`
	DeviceID string           `json:"device_id,omitempty"`
	Account  *AccountSettings `json:"account,omitempty"`
	RepoURL  string           `json:"repo_url,omitempty"`
}
