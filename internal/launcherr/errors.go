package launcherr

import "errors"

// Sentinel errors returned by the ledger, state machine, and settlement code.
// Handlers map these to HTTP statuses; the worker uses them to decide between
// requeueing a job (retryable) and marking a launch failed (terminal).
var (
	// ErrWalletBlocked is returned when the calling wallet is on the active blocklist.
	ErrWalletBlocked = errors.New("wallet is blocked")

	// ErrLaunchNotAccepting is returned when a contribution or refund targets a
	// launch that is no longer in the pending_contributions state.
	ErrLaunchNotAccepting = errors.New("launch is not accepting contributions")

	// ErrPerWalletCapExceeded is returned when a contribution would push the
	// wallet's total for the launch past the per-wallet cap, or the amount is
	// not positive.
	ErrPerWalletCapExceeded = errors.New("per-wallet contribution cap exceeded")

	// ErrHardcapExceeded is returned when the guarded aggregate update finds no
	// headroom left under the launch hardcap.
	ErrHardcapExceeded = errors.New("launch hardcap exceeded")

	// ErrTransferUnconfirmed is returned when the funding transfer cannot be
	// independently confirmed against the deposit wallet.
	ErrTransferUnconfirmed = errors.New("funding transfer unconfirmed")

	// ErrDuplicateSubmission is returned when a tx hash has already been
	// registered as a contribution.
	ErrDuplicateSubmission = errors.New("transaction already registered")

	// ErrClaimInProgress is returned when a claim or withdrawal request exists
	// in pending or processing state for the same wallet, pool, and feature.
	ErrClaimInProgress = errors.New("claim already in progress")

	// ErrAlreadyClaimed is returned when the contribution's tokens were already
	// paid out.
	ErrAlreadyClaimed = errors.New("contribution already claimed")

	// ErrNoContribution is returned when the wallet has no (remaining)
	// contribution for the launch.
	ErrNoContribution = errors.New("no contribution found for wallet")

	// ErrInvalidState is returned on an illegal launch state transition.
	ErrInvalidState = errors.New("invalid launch state transition")

	// ErrEncryptionKeyMissing is returned when the escrow encryption key is not
	// configured. Wallet creation fails closed in that case.
	ErrEncryptionKeyMissing = errors.New("escrow encryption key not configured")

	// ErrSigningFailed is returned when the escrow secret cannot be decrypted
	// or the transaction cannot be signed.
	ErrSigningFailed = errors.New("transaction signing failed")

	// ErrSubmissionFailed is returned on a permanent on-chain rejection.
	// Terminal for the transaction attempt.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrConfirmationTimeout is returned when a submitted transaction did not
	// confirm within the polling window. Retryable with the same parameters.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// Retryable reports whether the caller may retry the operation with the same
// parameters. Only confirmation timeouts qualify; everything else is terminal
// for the request that produced it.
func Retryable(err error) bool {
	return errors.Is(err, ErrConfirmationTimeout)
}
