package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"launchcontrol/internal/launcherr"
)

const (
	defaultConfirmAttempts = 30
	confirmPollInterval    = time.Second

	// Submissions are rate limited so a burst of claims cannot exhaust the
	// RPC provider quota.
	submitRatePerSecond = 5
)

// TxStatus is the resolved status of a submitted transaction.
type TxStatus struct {
	Confirmed bool
	Failed    bool
	Err       string
}

// Client wraps the Solana RPC endpoint with rate limiting and bounded
// confirmation polling.
type Client struct {
	rpc             *rpc.Client
	limiter         *rate.Limiter
	confirmAttempts int
}

// NewClient builds a client from DEFAULT_SOLANA_RPC. The confirmation window
// can be tuned with SOLANA_CONFIRM_ATTEMPTS.
func NewClient() *Client {
	endpoint := os.Getenv("DEFAULT_SOLANA_RPC")
	if endpoint == "" {
		endpoint = rpc.MainNetBeta_RPC
	}

	attempts := defaultConfirmAttempts
	if v := os.Getenv("SOLANA_CONFIRM_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			attempts = n
		}
	}

	return &Client{
		rpc:             rpc.New(endpoint),
		limiter:         rate.NewLimiter(rate.Limit(submitRatePerSecond), submitRatePerSecond),
		confirmAttempts: attempts,
	}
}

// GetBalance returns the lamport balance of an address.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}

	res, err := c.rpc.GetBalance(ctx, pub, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return res.Value, nil
}

// GetTransactionStatus resolves the current status of a signature. A missing
// status means the transaction is still unconfirmed (or unknown to the node).
func (c *Client) GetTransactionStatus(ctx context.Context, signature string) (*TxStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature format: %w", err)
	}

	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}

	if len(res.Value) == 0 || res.Value[0] == nil {
		return &TxStatus{}, nil
	}

	status := res.Value[0]
	if status.Err != nil {
		errJSON, _ := json.Marshal(status.Err)
		return &TxStatus{Failed: true, Err: string(errJSON)}, nil
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return &TxStatus{Confirmed: true}, nil
	default:
		return &TxStatus{}, nil
	}
}

// SubmitTransaction sends a signed transaction, respecting the submit rate
// limit. Returns the signature as base58.
func (c *Client) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", launcherr.ErrSubmissionFailed, err)
	}
	return sig.String(), nil
}

// WaitForConfirmation polls the signature status until it confirms, fails, or
// the attempt budget runs out. Timeouts resolve to ErrConfirmationTimeout so
// callers can retry; on-chain errors resolve to ErrSubmissionFailed and are
// terminal for that transaction.
func (c *Client) WaitForConfirmation(ctx context.Context, signature string) error {
	for i := 0; i < c.confirmAttempts; i++ {
		status, err := c.GetTransactionStatus(ctx, signature)
		if err != nil {
			log.Warnf("confirmation poll %d/%d for %s failed: %v", i+1, c.confirmAttempts, signature, err)
		} else if status.Failed {
			return fmt.Errorf("%w: %s", launcherr.ErrSubmissionFailed, status.Err)
		} else if status.Confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", launcherr.ErrConfirmationTimeout, ctx.Err())
		case <-time.After(confirmPollInterval):
		}
	}

	return fmt.Errorf("%w: signature %s after %d attempts", launcherr.ErrConfirmationTimeout, signature, c.confirmAttempts)
}

// LatestBlockhash fetches a recent blockhash for transaction building.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return bh.Value.Blockhash, nil
}
