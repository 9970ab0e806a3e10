package models

import (
	"time"
)

// Launch statuses. Transitions are enforced by the business state machine;
// rows never move backward and are never physically deleted.
const (
	LaunchStatusPendingContributions = "pending_contributions"
	LaunchStatusReadyToLaunch        = "ready_to_launch"
	LaunchStatusLaunching            = "launching"
	LaunchStatusCreated              = "created"
	LaunchStatusFailed               = "failed"
	LaunchStatusCancelled            = "cancelled"
)

type Launch struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	Name          string `gorm:"size:64;not null" json:"name"`
	Symbol        string `gorm:"size:16;not null" json:"symbol"`
	CreatorWallet string `gorm:"size:64;not null" json:"creator_wallet"`

	// Economics. Hardcap is fixed at creation; total_contributed only grows
	// while accepting and only shrinks via refunds.
	Hardcap          float64 `gorm:"not null;default:11" json:"hardcap"`
	PerWalletCap     float64 `gorm:"not null;default:1" json:"per_wallet_cap"`
	TotalContributed float64 `gorm:"not null;default:0" json:"total_contributed"`
	ContributorCount int     `gorm:"not null;default:0" json:"contributor_count"`

	// Token allocation pools, in whole tokens. Only the contributor pool is
	// divided pro-rata; the rest are fixed feature allocations.
	ContributorPool  float64 `gorm:"not null;default:150000000" json:"contributor_pool"`
	StakePool        float64 `gorm:"not null;default:250000000" json:"stake_pool"`
	RacePool         float64 `gorm:"not null;default:150000000" json:"race_pool"`
	BurnPool         float64 `gorm:"not null;default:150000000" json:"burn_pool"`
	SocialPool       float64 `gorm:"not null;default:100000000" json:"social_pool"`
	DevLockPool      float64 `gorm:"not null;default:150000000" json:"dev_lock_pool"`
	CompensationPool float64 `gorm:"not null;default:50000000" json:"compensation_pool"`
	TokenDecimals    uint8   `gorm:"not null;default:6" json:"token_decimals"`

	// Custody. The secret key is AES-256-GCM encrypted with the server-held
	// escrow key before it ever reaches this row, and is never serialized.
	DepositWalletAddress string `gorm:"size:64;not null;uniqueIndex" json:"deposit_wallet_address"`
	EncryptedPrivateKey  string `gorm:"size:512;not null" json:"-"`
	KeyVersion           int    `gorm:"not null;default:1" json:"-"`

	Status         string `gorm:"size:32;not null;default:'pending_contributions';index" json:"status"`
	TokenMint      string `gorm:"size:64" json:"token_mint"`
	CreationTxHash string `gorm:"size:128" json:"creation_tx_hash"`
	FailReason     string `gorm:"size:256" json:"fail_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Launch) TableName() string {
	return "launches"
}

// TotalSupply returns the full token supply minted at creation, in whole tokens.
func (l *Launch) TotalSupply() float64 {
	return l.ContributorPool + l.StakePool + l.RacePool + l.BurnPool +
		l.SocialPool + l.DevLockPool + l.CompensationPool
}

// LaunchFundTransferRecord is the audit row for every SOL or token movement
// through a launch escrow wallet. Refund retries key off unsent rows
// (purpose=refund, empty tx_hash) so the ledger decrement never re-runs.
type LaunchFundTransferRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	LaunchID     uint      `gorm:"not null;index" json:"launch_id"`
	Direction    string    `gorm:"size:8;not null" json:"direction"` // "in" or "out"
	Purpose      string    `gorm:"size:32;not null" json:"purpose"`  // "contribution", "refund", "claim", "creation_fee"
	Mint         string    `gorm:"size:64;not null;default:'sol'" json:"mint"`
	Amount       float64   `gorm:"not null" json:"amount"`
	Counterparty string    `gorm:"size:64;not null;index" json:"counterparty"`
	TxHash       string    `gorm:"size:128;index" json:"tx_hash"`
	Confirmed    bool      `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (LaunchFundTransferRecord) TableName() string {
	return "launch_fund_transfer_records"
}

// Fund record purposes.
const (
	TransferPurposeContribution = "contribution"
	TransferPurposeRefund       = "refund"
	TransferPurposeClaim        = "claim"
	TransferPurposeCreationFee  = "creation_fee"
)
