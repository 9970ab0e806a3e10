package models

import (
	"time"
)

// Withdrawal request statuses.
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
)

// Withdrawal features. Launch claims share the table with the staking, race,
// burn and social payout paths.
const (
	FeatureLaunchClaim = "launch_claim"
	FeatureStake       = "stake"
	FeatureRace        = "race"
	FeatureBurn        = "burn"
	FeatureSocial      = "social"
)

// WithdrawalRequest enforces the at-most-one in-flight payout rule per
// (wallet, pool, feature). A new request must be rejected while a prior one
// for the same tuple is pending or processing; the existence check runs in
// the same transaction as the insert.
type WithdrawalRequest struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	WalletAddress string    `gorm:"size:64;not null;index:idx_withdrawals_wallet_pool" json:"wallet_address"`
	PoolID        uint      `gorm:"not null;index:idx_withdrawals_wallet_pool" json:"pool_id"`
	Feature       string    `gorm:"size:32;not null;index:idx_withdrawals_wallet_pool" json:"feature"`
	Amount        float64   `gorm:"not null" json:"amount"`
	Status        string    `gorm:"size:16;not null;default:'pending';index" json:"status"`
	TxHash        string    `gorm:"size:128" json:"tx_hash"`
	RejectReason  string    `gorm:"size:256" json:"reject_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// InFlight reports whether the request still blocks a new one for its tuple.
func (w *WithdrawalRequest) InFlight() bool {
	return w.Status == WithdrawalStatusPending || w.Status == WithdrawalStatusProcessing
}
