package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

var (
	// 这些变量会在编译时通过ldflags注入
	Version   = "0.1.0"   // 版本号
	BuildTime = "unknown" // 构建时间
)

// VersionInfo 版本信息结构
type VersionInfo struct {
	Version   string `json:"version"`    // 版本号
	BuildTime string `json:"build_time"` // 构建时间
	GoVersion string `json:"go_version"` // Go版本
	OS        string `json:"os"`         // 操作系统
	Arch      string `json:"arch"`       // 系统架构
}

// GetVersion 获取版本号
func GetVersion() string {
	return Version
}

// GetVersionInfo 获取详细版本信息
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
}

// CheckLatestVersion 从 GitHub releases 接口获取最新版本
func CheckLatestVersion(ctx context.Context, releasesURL string) (*VersionInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check latest version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to check latest version: status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// 移除版本号前缀的'v'
	return &VersionInfo{Version: strings.TrimPrefix(release.TagName, "v")}, nil
}

// IsOutdated 检查当前版本是否过期
func IsOutdated(ctx context.Context, releasesURL string) (bool, string, error) {
	latest, err := CheckLatestVersion(ctx, releasesURL)
	if err != nil {
		return false, "", err
	}

	if latest.Version != "" && Version != latest.Version {
		return true, latest.Version, nil
	}

	return false, "", nil
}
