package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

// SPL mint account size in bytes.
const mintAccountSize = 82

// CreatedToken describes the outcome of a launch token creation.
type CreatedToken struct {
	Mint      string
	Signature string

	// RentLamports is what the escrow paid to rent-exempt the mint account,
	// recorded as the launch's creation fee.
	RentLamports uint64
}

// CreateLaunchToken creates the launch's SPL mint funded by the escrow wallet
// and mints the full supply into the escrow's associated token account. The
// escrow key pays fees and acts as mint authority; the mint keypair is fresh
// and discarded after signing.
func (p *EscrowPayer) CreateLaunchToken(ctx context.Context, encryptedSecret string, supply uint64, decimals uint8) (*CreatedToken, error) {
	mintWallet := solana.NewWallet()

	rentLamports, err := p.Client.rpc.GetMinimumBalanceForRentExemption(ctx, mintAccountSize, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get rent exemption: %w", err)
	}

	var signature string
	err = p.Keys.WithSigner(encryptedSecret, func(priv solana.PrivateKey) error {
		escrow := priv.PublicKey()
		mint := mintWallet.PublicKey()

		escrowATA, _, err := solana.FindAssociatedTokenAddress(escrow, mint)
		if err != nil {
			return fmt.Errorf("failed to derive escrow ATA: %w", err)
		}

		ixs := []solana.Instruction{
			system.NewCreateAccountInstruction(
				rentLamports,
				mintAccountSize,
				token.ProgramID,
				escrow,
				mint,
			).Build(),
			token.NewInitializeMintInstruction(
				decimals,
				mint,
				escrow,
				solana.PublicKey{}, // no freeze authority
				solana.SysVarRentPubkey,
			).Build(),
			associatedtokenaccount.NewCreateInstruction(escrow, escrow, mint).Build(),
			token.NewMintToInstruction(supply, mint, escrowATA, escrow, nil).Build(),
		}

		sig, err := p.signAndSubmit(ctx, priv, ixs, []solana.PrivateKey{mintWallet.PrivateKey})
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := p.Client.WaitForConfirmation(ctx, signature); err != nil {
		// Return the mint and signature so the watchdog can resolve the
		// pending transaction instead of double-submitting.
		return &CreatedToken{Mint: mintWallet.PublicKey().String(), Signature: signature, RentLamports: rentLamports}, err
	}

	log.WithFields(log.Fields{
		"mint":      mintWallet.PublicKey().String(),
		"supply":    supply,
		"signature": signature,
	}).Info("Launch token created")

	return &CreatedToken{Mint: mintWallet.PublicKey().String(), Signature: signature, RentLamports: rentLamports}, nil
}
