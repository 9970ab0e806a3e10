package solana

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"launchcontrol/internal/launcherr"
)

const LamportsPerSol = 1_000_000_000

// SolToLamports converts a SOL amount to lamports, rounding to the nearest
// lamport to absorb float noise from the ledger columns.
func SolToLamports(amount float64) uint64 {
	return uint64(math.Round(amount * LamportsPerSol))
}

// VerifyIncomingTransfer checks that the transaction identified by txHash is
// confirmed on-chain, succeeded, and credited the deposit wallet with exactly
// the claimed amount. Contributions are only trusted after this passes.
func (c *Client) VerifyIncomingTransfer(ctx context.Context, txHash, depositAddress string, amount float64) error {
	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return fmt.Errorf("%w: invalid signature %q", launcherr.ErrTransferUnconfirmed, txHash)
	}
	deposit, err := solana.PublicKeyFromBase58(depositAddress)
	if err != nil {
		return fmt.Errorf("invalid deposit address: %w", err)
	}

	if err := c.WaitForConfirmation(ctx, txHash); err != nil {
		return fmt.Errorf("%w: %v", launcherr.ErrTransferUnconfirmed, err)
	}

	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to fetch transaction: %v", launcherr.ErrTransferUnconfirmed, err)
	}
	if out == nil || out.Meta == nil {
		return fmt.Errorf("%w: transaction %s has no metadata", launcherr.ErrTransferUnconfirmed, txHash)
	}
	if out.Meta.Err != nil {
		return fmt.Errorf("%w: transaction %s failed on-chain", launcherr.ErrTransferUnconfirmed, txHash)
	}

	parsed, err := out.Transaction.GetTransaction()
	if err != nil {
		return fmt.Errorf("%w: failed to decode transaction: %v", launcherr.ErrTransferUnconfirmed, err)
	}

	// The deposit wallet's lamport delta must match the claimed amount.
	depositIndex := -1
	for i, key := range parsed.Message.AccountKeys {
		if key.Equals(deposit) {
			depositIndex = i
			break
		}
	}
	if depositIndex < 0 || depositIndex >= len(out.Meta.PostBalances) {
		return fmt.Errorf("%w: deposit wallet not funded by %s", launcherr.ErrTransferUnconfirmed, txHash)
	}

	received := int64(out.Meta.PostBalances[depositIndex]) - int64(out.Meta.PreBalances[depositIndex])
	expected := int64(SolToLamports(amount))
	if received != expected {
		return fmt.Errorf("%w: transfer %s credited %d lamports, expected %d",
			launcherr.ErrTransferUnconfirmed, txHash, received, expected)
	}

	return nil
}

// EscrowPayer signs and submits payouts from launch escrow wallets. The
// secret is decrypted per call and discarded as soon as signing completes.
type EscrowPayer struct {
	Client *Client
	Keys   *EscrowKeyManager
}

func NewEscrowPayer(client *Client, keys *EscrowKeyManager) *EscrowPayer {
	return &EscrowPayer{Client: client, Keys: keys}
}

// SendSOL transfers amount SOL from the escrow wallet to the target wallet
// and waits for confirmation.
func (p *EscrowPayer) SendSOL(ctx context.Context, encryptedSecret, to string, amount float64) (string, error) {
	toPub, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid target address: %w", err)
	}

	var signature string
	err = p.Keys.WithSigner(encryptedSecret, func(priv solana.PrivateKey) error {
		ix := system.NewTransferInstruction(SolToLamports(amount), priv.PublicKey(), toPub).Build()

		sig, err := p.signAndSubmit(ctx, priv, []solana.Instruction{ix}, nil)
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	if err != nil {
		return signature, err
	}

	if err := p.Client.WaitForConfirmation(ctx, signature); err != nil {
		return signature, err
	}

	log.WithFields(log.Fields{"to": to, "amount": amount, "signature": signature}).
		Info("Escrow SOL transfer confirmed")
	return signature, nil
}

// SendToken transfers token base units from the escrow wallet's associated
// token account to the target wallet, creating the target ATA when missing.
func (p *EscrowPayer) SendToken(ctx context.Context, encryptedSecret, mint, to string, amount uint64, decimals uint8) (string, error) {
	mintPub, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("invalid mint: %w", err)
	}
	toPub, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid target address: %w", err)
	}

	targetATA, _, err := solana.FindAssociatedTokenAddress(toPub, mintPub)
	if err != nil {
		return "", fmt.Errorf("failed to derive target ATA: %w", err)
	}

	var signature string
	err = p.Keys.WithSigner(encryptedSecret, func(priv solana.PrivateKey) error {
		escrowATA, _, err := solana.FindAssociatedTokenAddress(priv.PublicKey(), mintPub)
		if err != nil {
			return fmt.Errorf("failed to derive escrow ATA: %w", err)
		}

		var ixs []solana.Instruction
		info, _ := p.Client.rpc.GetAccountInfo(ctx, targetATA)
		if info == nil || info.Value == nil {
			ixs = append(ixs, associatedtokenaccount.NewCreateInstruction(priv.PublicKey(), toPub, mintPub).Build())
		}
		ixs = append(ixs, token.NewTransferCheckedInstruction(
			amount, decimals, escrowATA, mintPub, targetATA, priv.PublicKey(), nil,
		).Build())

		sig, err := p.signAndSubmit(ctx, priv, ixs, nil)
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	if err != nil {
		return signature, err
	}

	if err := p.Client.WaitForConfirmation(ctx, signature); err != nil {
		return signature, err
	}

	log.WithFields(log.Fields{"to": to, "mint": mint, "amount": amount, "signature": signature}).
		Info("Escrow token transfer confirmed")
	return signature, nil
}

// Confirm resolves an already-submitted transfer, so retries never
// double-send while a prior signature may still land.
func (p *EscrowPayer) Confirm(ctx context.Context, txHash string) error {
	return p.Client.WaitForConfirmation(ctx, txHash)
}

// signAndSubmit builds a transaction paid by the escrow key, signs it with
// the escrow key plus any extra signers, and submits it.
func (p *EscrowPayer) signAndSubmit(ctx context.Context, payer solana.PrivateKey, ixs []solana.Instruction, extraSigners []solana.PrivateKey) (string, error) {
	bh, err := p.Client.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := solana.NewTransaction(ixs, bh, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		for i := range extraSigners {
			if key.Equals(extraSigners[i].PublicKey()) {
				return &extraSigners[i]
			}
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("%w: %v", launcherr.ErrSigningFailed, err)
	}

	return p.Client.SubmitTransaction(ctx, tx)
}
