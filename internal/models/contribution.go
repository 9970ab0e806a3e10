package models

import (
	"time"
)

// Contribution is one confirmed deposit into a launch escrow wallet. Rows are
// created only after the funding transfer is verified on-chain, mutated once
// when claimed, and deleted (with the aggregate decrement) on refund.
type Contribution struct {
	ID            uint    `gorm:"primarykey" json:"id"`
	LaunchID      uint    `gorm:"not null;index:idx_contributions_launch_wallet" json:"launch_id"`
	WalletAddress string  `gorm:"size:64;not null;index:idx_contributions_launch_wallet" json:"wallet_address"`
	Amount        float64 `gorm:"not null" json:"amount"`

	// TxHash of the on-chain transfer that funded this row. The unique index
	// doubles as duplicate-request suppression.
	TxHash string `gorm:"size:128;not null;uniqueIndex" json:"tx_hash"`

	Claimed     bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt   *time.Time `json:"claimed_at"`
	ClaimTxHash string     `gorm:"size:128" json:"claim_tx_hash,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Contribution) TableName() string {
	return "contributions"
}
