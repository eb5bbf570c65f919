package model

import "encoding/json"

// SubmissionOutcome 一次提交调用的结果类型
type SubmissionOutcome string

const (
	OutcomeAccepted  SubmissionOutcome = "accepted"
	OutcomeDuplicate SubmissionOutcome = "duplicate"
	OutcomeFailed    SubmissionOutcome = "failed"
)

// SubmissionResult 提交结果
type SubmissionResult struct {
	Outcome        SubmissionOutcome `json:"outcome"`
	Slug           string            `json:"slug"`
	Fingerprint    Fingerprint       `json:"fingerprint"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	StatusCode     int               `json:"status_code,omitempty"`
	Body           json.RawMessage   `json:"body,omitempty"`
	Message        string            `json:"message,omitempty"`
}

// Skipped 是否因重复被跳过
func (r *SubmissionResult) Skipped() bool {
	return r != nil && r.Outcome == OutcomeDuplicate
}

// SubmitOptions 单次提交参数
type SubmitOptions struct {
	// Force 跳过去重检查，由用户确认替换时设置
	Force bool `json:"force"`
}

// SubmissionStatus 后端记录的提交状态
type SubmissionStatus struct {
	Exists   bool   `json:"exists"`
	HTMLFile string `json:"html_file,omitempty"`
}
