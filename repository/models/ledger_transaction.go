package models

import "time"

// LedgerTransaction records the blockchain reference of a committed
// request for off-chain auditing
type LedgerTransaction struct {
	TxHash      string    `gorm:"column:tx_hash;type:varchar(66)"`
	RequestID   string    `gorm:"column:request_id;type:varchar(64);primaryKey"`
	Path        string    `gorm:"column:path;type:varchar(255)"`
	Method      string    `gorm:"column:method;type:varchar(10)"`
	BlockHeight int64     `gorm:"column:block_height;not null"`
	Status      string    `gorm:"column:status;type:varchar(20);default:'confirmed'"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
