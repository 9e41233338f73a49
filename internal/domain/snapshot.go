package domain

// Snapshot 会话状态的只读快照，供渲染层使用。
type Snapshot struct {
	Initialized    bool        `json:"initialized"`
	Address        Address     `json:"address"`
	Countdown      int         `json:"countdown"`
	CountdownLabel string      `json:"countdownLabel"`
	ExpiryLevel    ExpiryLevel `json:"expiryLevel"`
	AutoRefresh    bool        `json:"autoRefresh"`
	Theme          Theme       `json:"theme"`
	Inbox          []Message   `json:"inbox"`
	InboxLabel     string      `json:"inboxLabel"`
	Busy           []Command   `json:"busy"`
	HistorySize    int         `json:"historySize"`
}
