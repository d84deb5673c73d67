package event

// Kafka topic 名称
const (
	TopicBroadcast = "wallet_events_broadcast"
	TopicMemoless  = "wallet_events_memoless"
)

// TransactionBroadcastEvent 交易广播成功事件
// Topic: wallet_events_broadcast
type TransactionBroadcastEvent struct {
	WalletID string `json:"wallet_id"`
	TxHash   string `json:"tx_hash"`
	Asset    string `json:"asset"`
	Amount   string `json:"amount"` // Decimal string
	Memo     string `json:"memo,omitempty"`
	Deposit  bool   `json:"deposit"`
}

// MemolessRegisteredEvent memoless 注册交易广播事件
// Topic: wallet_events_memoless
type MemolessRegisteredEvent struct {
	SessionID string `json:"session_id"`
	Asset     string `json:"asset"`
	TxHash    string `json:"tx_hash"`
	Memo      string `json:"memo"`
}
