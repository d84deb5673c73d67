package model

import (
	"time"

	"gorm.io/gorm"
)

// Wallet 钱包表
// 私钥材料只以加密后的 Keystore JSON 形式落库
type Wallet struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"` // UUID
	Name        string         `gorm:"type:varchar(255);not null;unique" json:"name"`
	Address     string         `gorm:"type:varchar(90);not null;index" json:"address"`
	Fingerprint string         `gorm:"type:varchar(16);not null" json:"fingerprint"` // identicon 种子
	Keystore    []byte         `gorm:"type:text;not null" json:"-"`                  // 加密的 Keystore JSON, 不返回
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TransactionRecord 广播记录表
type TransactionRecord struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletID  string         `gorm:"type:varchar(36);not null;index" json:"wallet_id"`
	TxHash    string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"tx_hash"`
	Asset     string         `gorm:"type:varchar(40);not null" json:"asset"`
	Amount    string         `gorm:"type:varchar(40);not null" json:"amount"` // Decimal string
	Recipient string         `gorm:"type:varchar(90)" json:"recipient"`
	Memo      string         `gorm:"type:text" json:"memo"`
	Deposit   bool           `gorm:"not null;default:false" json:"deposit"` // MsgDeposit 还是 MsgSend
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// OutboxMessage 本地消息表 (Transactional Outbox)
type OutboxMessage struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string         `gorm:"type:varchar(255);not null" json:"topic"`
	Key       string         `gorm:"type:varchar(255)" json:"key"` // 分区键
	Payload   []byte         `gorm:"type:text;not null" json:"payload"`
	Status    string         `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"` // PENDING, SENT, FAILED
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Wallet) TableName() string {
	return "wallets"
}

func (TransactionRecord) TableName() string {
	return "transaction_records"
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
