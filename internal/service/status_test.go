package service

import (
	"testing"

	"lc2gh/internal/model"
)

func newStatusFixture() (*StatusService, *stubBackend, *recordingPublisher) {
	backend := newStubBackend()
	publisher := &recordingPublisher{}
	svc := NewStatusService(&stubTokens{base: "http://api", token: "tok"}, backend, publisher, 0)
	return svc, backend, publisher
}

var observedSignal = model.PageSignal{Accepted: true, Runtime: "4 ms", Memory: "3.1 MB"}

func TestStatus_NavigateSubmitted(t *testing.T) {
	svc, backend, publisher := newStatusFixture()
	backend.statuses["two-sum"] = model.SubmissionStatus{Exists: true, HTMLFile: "https://github.com/o/r/two-sum.html"}

	snap := waitSnapshot(t, svc.Navigate("two-sum"))
	if snap.State != model.StatusSubmitted || snap.HTMLFile != "https://github.com/o/r/two-sum.html" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if publisher.last() != snap {
		t.Fatal("expected resolved snapshot to be published")
	}
}

func TestStatus_NavigateShowsUnknownUntilResolved(t *testing.T) {
	svc, backend, publisher := newStatusFixture()
	gate := backend.hold("two-sum")

	done := svc.Navigate("two-sum")
	if got := svc.Snapshot(); got.State != model.StatusUnknown || got.Slug != "two-sum" {
		t.Fatalf("expected unknown while querying, got %+v", got)
	}
	if publisher.last().State != model.StatusUnknown {
		t.Fatal("expected navigation to publish the reset state")
	}

	close(gate)
	if snap := waitSnapshot(t, done); snap.State != model.StatusNotSubmitted {
		t.Fatalf("expected not submitted, got %+v", snap)
	}
}

func TestStatus_QueryFailureFallsBackToNotSubmitted(t *testing.T) {
	svc, backend, _ := newStatusFixture()
	backend.fail["two-sum"] = true

	snap := waitSnapshot(t, svc.Navigate("two-sum"))
	if snap.State != model.StatusNotSubmitted || snap.HTMLFile != "" {
		t.Fatalf("expected not submitted on failure, got %+v", snap)
	}
}

func TestStatus_StaleResultIgnored(t *testing.T) {
	svc, backend, _ := newStatusFixture()
	backend.statuses["first"] = model.SubmissionStatus{Exists: true, HTMLFile: "https://example/first.html"}
	backend.statuses["second"] = model.SubmissionStatus{Exists: false}
	gate := backend.hold("first")

	stale := svc.Navigate("first")
	current := waitSnapshot(t, svc.Navigate("second"))
	if current.Slug != "second" || current.State != model.StatusNotSubmitted {
		t.Fatalf("unexpected current snapshot: %+v", current)
	}

	close(gate)
	late := waitSnapshot(t, stale)
	if late.Slug != "second" || late.State != model.StatusNotSubmitted {
		t.Fatalf("late result for previous slug leaked into state: %+v", late)
	}
	if got := svc.Snapshot(); got.HTMLFile != "" || got.State != model.StatusNotSubmitted {
		t.Fatalf("state changed by stale result: %+v", got)
	}
}

func TestStatus_NavigationResetsReplaceGate(t *testing.T) {
	svc, _, _ := newStatusFixture()
	waitSnapshot(t, svc.Navigate("first"))

	snap := svc.ObservePage("first", observedSignal)
	if !snap.Accepted || !snap.ReplaceAllowed {
		t.Fatalf("expected replace allowed after accepted signal, got %+v", snap)
	}

	// 同一题目重复导航不清空
	waitSnapshot(t, svc.Navigate("first"))
	if !svc.Snapshot().ReplaceAllowed {
		t.Fatal("same-slug navigation must keep the gate")
	}

	waitSnapshot(t, svc.Navigate("second"))
	if got := svc.Snapshot(); got.Accepted || got.ReplaceAllowed {
		t.Fatalf("expected gate reset on new slug, got %+v", got)
	}
}

func TestStatus_IncompleteSignalDoesNotOpenGate(t *testing.T) {
	svc, _, _ := newStatusFixture()
	waitSnapshot(t, svc.Navigate("two-sum"))

	snap := svc.ObservePage("", model.PageSignal{Accepted: true, Runtime: "4 ms"})
	if snap.Accepted || snap.ReplaceAllowed {
		t.Fatalf("signal without memory figure must be ignored, got %+v", snap)
	}

	snap = svc.ObservePage("other-slug", observedSignal)
	if snap.Accepted {
		t.Fatal("signal for another slug must be ignored")
	}
}

func TestStatus_SignalLossClosesGate(t *testing.T) {
	svc, _, publisher := newStatusFixture()
	waitSnapshot(t, svc.Navigate("two-sum"))

	snap := svc.ObservePage("two-sum", observedSignal)
	if !snap.Accepted || !snap.ReplaceAllowed {
		t.Fatalf("expected gate open, got %+v", snap)
	}
	published := publisher.count()

	snap = svc.ObservePage("two-sum", DetectSignal("Wrong Answer\nRuntime: 4 ms"))
	if snap.Accepted || snap.ReplaceAllowed {
		t.Fatalf("expected gate closed once the signal is gone, got %+v", snap)
	}
	if publisher.count() != published+1 {
		t.Fatal("expected a snapshot for the closed gate")
	}

	// 显式确认在导航前一直有效
	svc.DecideManual(model.ManualAction{ConfirmWithoutAccepted: true})
	svc.ObservePage("two-sum", model.PageSignal{})
	if !svc.Snapshot().ReplaceAllowed {
		t.Fatal("explicit confirmation must keep the gate open")
	}
}

func TestStatus_RefreshStatusIgnoresOtherSlug(t *testing.T) {
	svc, backend, _ := newStatusFixture()
	waitSnapshot(t, svc.Navigate("current"))
	backend.statuses["current"] = model.SubmissionStatus{Exists: true}

	snap := waitSnapshot(t, svc.RefreshStatus("elsewhere"))
	if snap.Slug != "current" || snap.State != model.StatusNotSubmitted {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	snap = waitSnapshot(t, svc.RefreshStatus("current"))
	if snap.State != model.StatusSubmitted {
		t.Fatalf("expected refresh to pick up new status, got %+v", snap)
	}
}

func TestStatus_DecideManual(t *testing.T) {
	svc, backend, _ := newStatusFixture()
	backend.statuses["two-sum"] = model.SubmissionStatus{Exists: true}
	waitSnapshot(t, svc.Navigate("two-sum"))

	decision := svc.DecideManual(model.ManualAction{})
	if decision.Proceed || decision.Confirmation != model.ConfirmAcceptedMissing {
		t.Fatalf("expected accepted_missing confirmation, got %+v", decision)
	}

	decision = svc.DecideManual(model.ManualAction{ConfirmWithoutAccepted: true})
	if decision.Proceed || decision.Confirmation != model.ConfirmReplaceExisting {
		t.Fatalf("expected replace_existing confirmation, got %+v", decision)
	}

	decision = svc.DecideManual(model.ManualAction{ConfirmWithoutAccepted: true, ConfirmReplace: true})
	if !decision.Proceed || !decision.Options.Force {
		t.Fatalf("expected forced proceed, got %+v", decision)
	}
	if !svc.Snapshot().ReplaceAllowed {
		t.Fatal("explicit confirmation must open the replace gate")
	}

	// 确认只对当次调用有效
	decision = svc.DecideManual(model.ManualAction{})
	if decision.Proceed || decision.Confirmation != model.ConfirmAcceptedMissing {
		t.Fatalf("confirmation must not carry over, got %+v", decision)
	}
}

func TestStatus_DecideManualWithAcceptedSignal(t *testing.T) {
	svc, _, _ := newStatusFixture()
	waitSnapshot(t, svc.Navigate("two-sum"))
	svc.ObservePage("two-sum", observedSignal)

	decision := svc.DecideManual(model.ManualAction{})
	if !decision.Proceed || decision.Confirmation != model.ConfirmNone {
		t.Fatalf("expected proceed without confirmation, got %+v", decision)
	}
	if decision.Options.Force {
		t.Fatal("manual submit without an existing submission must keep dedup")
	}

	// 未提交时即使带了替换确认也不跳过去重
	decision = svc.DecideManual(model.ManualAction{ConfirmReplace: true})
	if !decision.Proceed || decision.Options.Force {
		t.Fatalf("expected non-forced proceed, got %+v", decision)
	}
}

func TestDetectSignal(t *testing.T) {
	cases := []struct {
		name string
		text string
		want model.PageSignal
	}{
		{
			name: "full result",
			text: "Accepted\n63 / 63 testcases passed\nRuntime: 4 ms\nMemory: 3.1 MB",
			want: model.PageSignal{Accepted: true, Runtime: "4 ms", Memory: "3.1 MB"},
		},
		{
			name: "case insensitive",
			text: "accepted runtime: 12.5ms memory: 40 mb",
			want: model.PageSignal{Accepted: true, Runtime: "12.5ms", Memory: "40 mb"},
		},
		{
			name: "wrong answer",
			text: "Wrong Answer\nRuntime: 4 ms",
			want: model.PageSignal{Runtime: "4 ms"},
		},
		{
			name: "word boundary",
			text: "Unaccepted",
			want: model.PageSignal{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectSignal(tc.text); got != tc.want {
				t.Fatalf("DetectSignal = %+v, want %+v", got, tc.want)
			}
		})
	}
}
