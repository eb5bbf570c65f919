package model

// StatusState 状态机的提交状态
type StatusState string

const (
	StatusUnknown      StatusState = "unknown"
	StatusNotSubmitted StatusState = "not_submitted"
	StatusSubmitted    StatusState = "submitted"
)

// StatusSnapshot 状态机对外快照
type StatusSnapshot struct {
	Slug           string      `json:"slug"`
	State          StatusState `json:"state"`
	HTMLFile       string      `json:"html_file,omitempty"`
	Accepted       bool        `json:"accepted"`
	ReplaceAllowed bool        `json:"replace_allowed"`
	Generation     uint64      `json:"generation"`
}

// PageSignal 页面上观察到的通过信号
type PageSignal struct {
	Accepted bool   `json:"accepted"`
	Runtime  string `json:"runtime,omitempty"`
	Memory   string `json:"memory,omitempty"`
}

// Observed 通过文本与运行时间、内存数值同时出现才算有效信号
func (p PageSignal) Observed() bool {
	return p.Accepted && p.Runtime != "" && p.Memory != ""
}

// Confirmation 手动提交需要的确认类型
type Confirmation string

const (
	ConfirmNone            Confirmation = ""
	ConfirmAcceptedMissing Confirmation = "accepted_missing"
	ConfirmReplaceExisting Confirmation = "replace_existing"
)

// ManualAction 用户手动提交/替换操作携带的一次性确认
type ManualAction struct {
	ConfirmWithoutAccepted bool `json:"confirm_without_accepted"`
	ConfirmReplace         bool `json:"confirm_replace"`
}

// ManualDecision 手动操作的判定结果
type ManualDecision struct {
	Proceed      bool          `json:"proceed"`
	Confirmation Confirmation  `json:"confirmation,omitempty"`
	Options      SubmitOptions `json:"options"`
}
