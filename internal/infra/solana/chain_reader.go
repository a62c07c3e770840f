// internal/infra/solana/chain_reader.go
package solana

import (
	"context"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/rpc"

	identitydom "presale/internal/domain/identity"
)

// ChainReader implements identity.ChainReader on top of the Solana RPC.
// Read-only: it fetches confirmed transactions and metadata accounts,
// nothing else.
type ChainReader struct {
	c *client.Client
}

// インターフェース実装チェック
var _ identitydom.ChainReader = (*ChainReader)(nil)

// NewChainReader creates a reader against the given RPC endpoint. Empty
// endpoint falls back to the public mainnet RPC.
func NewChainReader(endpoint string) *ChainReader {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = rpc.MainnetRPCEndpoint
	}
	return &ChainReader{c: client.NewClient(ep)}
}

// GetParsedTransaction fetches the confirmed transaction and maps its
// pre/post token balances into the domain view. Returns (nil, nil) when
// the signature is unknown to the chain.
func (r *ChainReader) GetParsedTransaction(ctx context.Context, signature string) (*identitydom.ParsedTransaction, error) {
	if r == nil || r.c == nil {
		return nil, fmt.Errorf("solana: chain reader not configured")
	}
	tx, err := r.c.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("solana: getTransaction %s: %w", signature, err)
	}
	if tx == nil || tx.Meta == nil {
		return nil, nil
	}

	out := &identitydom.ParsedTransaction{Signature: signature}
	out.PreTokenBalances = mapTokenBalances(tx.Meta.PreTokenBalances)
	out.PostTokenBalances = mapTokenBalances(tx.Meta.PostTokenBalances)
	return out, nil
}

// GetMetadataURI derives the canonical Metaplex metadata PDA for the mint
// (program id + "metadata" + mint), fetches the account and returns the
// decoded uri field. NUL padding is left to the caller, matching the
// on-chain byte layout.
func (r *ChainReader) GetMetadataURI(ctx context.Context, mint string) (string, error) {
	if r == nil || r.c == nil {
		return "", fmt.Errorf("solana: chain reader not configured")
	}
	mintPk := common.PublicKeyFromString(strings.TrimSpace(mint))
	pda, err := token_metadata.GetTokenMetaPubkey(mintPk)
	if err != nil {
		return "", fmt.Errorf("solana: metadata pda for %s: %w", mint, err)
	}

	info, err := r.c.GetAccountInfo(ctx, pda.ToBase58())
	if err != nil {
		return "", fmt.Errorf("solana: getAccountInfo %s: %w", pda.ToBase58(), err)
	}
	if len(info.Data) == 0 {
		return "", fmt.Errorf("solana: metadata account %s is empty", pda.ToBase58())
	}

	meta, err := token_metadata.MetadataDeserialize(info.Data)
	if err != nil {
		return "", fmt.Errorf("solana: deserialize metadata %s: %w", pda.ToBase58(), err)
	}
	return meta.Data.Uri, nil
}

func mapTokenBalances(in []rpc.TransactionMetaTokenBalance) []identitydom.TokenBalance {
	out := make([]identitydom.TokenBalance, 0, len(in))
	for _, b := range in {
		out = append(out, identitydom.TokenBalance{
			AccountIndex: int(b.AccountIndex),
			Mint:         b.Mint,
			Amount:       b.UITokenAmount.Amount,
			Decimals:     int(b.UITokenAmount.Decimals),
		})
	}
	return out
}
