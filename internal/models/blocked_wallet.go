package models

import (
	"time"
)

// BlockedWallet is consulted before every state-changing operation. Rows are
// toggled rather than deleted so the block history survives.
type BlockedWallet struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	WalletAddress string    `gorm:"size:64;not null;uniqueIndex" json:"wallet_address"`
	Reason        string    `gorm:"size:256" json:"reason"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (BlockedWallet) TableName() string {
	return "blocked_wallets"
}
