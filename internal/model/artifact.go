package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Artifact 捕获到的一次通过提交
type Artifact struct {
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	URL        string `json:"url"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
	Runtime    string `json:"runtime"`
	Memory     string `json:"memory"`
	Timestamp  string `json:"timestamp"`
	Code       string `json:"code"`
}

// Fingerprint 提交内容指纹
type Fingerprint string

// Short 日志用短前缀
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Fingerprint 计算 (slug, language, code) 的 sha256 摘要
func (a *Artifact) Fingerprint() Fingerprint {
	sum := sha256.Sum256([]byte(a.Slug + "|" + a.Language + "|" + a.Code))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Validate 校验必填字段
func (a *Artifact) Validate() error {
	if strings.TrimSpace(a.Slug) == "" {
		return ErrMissingSlug
	}
	if a.Code == "" {
		return ErrMissingCode
	}
	return nil
}
