package holders

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// Layout of an xNFT install account: discriminator, three pubkeys, a u64
// and a 64 byte signature. The xNFT key sits right after the authority.
const (
	installAccountSize = 8 + 32*3 + 8 + 64
	xnftKeyOffset      = 8 + 32
)

// ProgramAccountsGetter is the subset of *rpc.Client used by ScanSource.
type ProgramAccountsGetter interface {
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// ScanSource lists the install accounts of one xNFT.
type ScanSource struct {
	client    ProgramAccountsGetter
	programID string
	mint      string
}

// NewScanSource builds a source against an RPC endpoint. An empty endpoint
// is reported by Holders as missing configuration.
func NewScanSource(rpcEndpoint, programID, mint string) *ScanSource {
	var client ProgramAccountsGetter
	if rpcEndpoint != "" {
		client = rpc.New(rpcEndpoint)
	}
	return NewScanSourceWithClient(client, programID, mint)
}

func NewScanSourceWithClient(client ProgramAccountsGetter, programID, mint string) *ScanSource {
	return &ScanSource{client: client, programID: programID, mint: mint}
}

// XNFTAddress derives the xNFT account from its mint: PDA("xnft", mint).
func XNFTAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("xnft"), mint.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive xnft address: %w", err)
	}
	return addr, nil
}

// Filters returns the getProgramAccounts filters selecting installs of xnft.
func Filters(xnft solana.PublicKey) []rpc.RPCFilter {
	return []rpc.RPCFilter{
		{DataSize: installAccountSize},
		{Memcmp: &rpc.RPCFilterMemcmp{
			Offset: xnftKeyOffset,
			Bytes:  solana.Base58(xnft.Bytes()),
		}},
	}
}

func (s *ScanSource) Holders(ctx context.Context) ([]domain.HolderID, error) {
	switch {
	case s.client == nil:
		return nil, fmt.Errorf("%w: RPC is not defined", domain.ErrMissingConfig)
	case s.programID == "":
		return nil, fmt.Errorf("%w: XNFT_PROGRAM_ID is not defined", domain.ErrMissingConfig)
	case s.mint == "":
		return nil, fmt.Errorf("%w: MINT is not defined", domain.ErrMissingConfig)
	}

	programID, err := solana.PublicKeyFromBase58(s.programID)
	if err != nil {
		return nil, fmt.Errorf("%w: XNFT_PROGRAM_ID %q: %v", domain.ErrInvalidConfig, s.programID, err)
	}
	mint, err := solana.PublicKeyFromBase58(s.mint)
	if err != nil {
		return nil, fmt.Errorf("%w: MINT %q: %v", domain.ErrInvalidConfig, s.mint, err)
	}

	xnft, err := XNFTAddress(programID, mint)
	if err != nil {
		return nil, err
	}

	accounts, err := s.client.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters:    Filters(xnft),
	})
	if err != nil {
		return nil, fmt.Errorf("get program accounts: %w", err)
	}

	holders := make([]domain.HolderID, 0, len(accounts))
	for _, acc := range accounts {
		if acc == nil {
			continue
		}
		holders = append(holders, domain.HolderID(acc.Pubkey.String()))
	}
	return holders, nil
}

var _ Source = (*ScanSource)(nil)
