package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lc2gh/internal/model"
)

func TestRenderStatus_Linked(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	session := &model.Session{
		AccessToken:  "jwt",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(10 * time.Minute).Unix(),
		DeviceID:     "device-1",
		APIBase:      "http://backend.test",
	}
	view := &model.AccountView{
		Linked:  true,
		Account: &model.AccountSettings{Login: "octocat", FullName: "octocat/leetcode"},
		RepoURL: "https://github.com/octocat/leetcode",
	}

	var buf bytes.Buffer
	renderStatus(&buf, session, view, now)

	out := buf.String()
	for _, want := range []string{"yes", "http://backend.test", "device-1", "expires in 10m0s", "octocat", "github.com/octocat/leetcode"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderStatus_Unlinked(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, &model.Session{DeviceID: "device-1"}, nil, time.Now())

	out := buf.String()
	if !strings.Contains(out, "no") {
		t.Fatalf("expected unlinked marker:\n%s", out)
	}
	if strings.Contains(out, "Login") {
		t.Fatalf("unexpected account rows:\n%s", out)
	}
}

func TestRenderStatus_Expired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	session := &model.Session{AccessToken: "jwt", ExpiresAt: now.Add(-time.Minute).Unix()}

	var buf bytes.Buffer
	renderStatus(&buf, session, nil, now)
	if !strings.Contains(buf.String(), "expired") {
		t.Fatalf("expected expired marker:\n%s", buf.String())
	}
}

func TestRenderResult(t *testing.T) {
	result := &model.SubmissionResult{
		Outcome:     model.OutcomeFailed,
		Slug:        "two-sum",
		Fingerprint: model.Fingerprint(strings.Repeat("ab", 32)),
		StatusCode:  500,
		Message:     "backend unavailable",
	}

	var buf bytes.Buffer
	renderResult(&buf, result)

	out := buf.String()
	for _, want := range []string{"failed", "two-sum", "abababababab", "500", "backend unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestReadArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	body := `{"title":"Two Sum","slug":"two-sum","language":"go","code":"package main"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	artifact, err := readArtifact(path)
	if err != nil {
		t.Fatalf("readArtifact: %v", err)
	}
	if artifact.Slug != "two-sum" || artifact.Code != "package main" {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}
	if artifact.Timestamp == "" {
		t.Fatal("expected timestamp to be filled")
	}
}

func TestReadArtifact_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := readArtifact(path); err == nil {
		t.Fatal("expected parse error")
	}
}
