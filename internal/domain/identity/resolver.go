// internal/domain/identity/resolver.go
package identity

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tierdom "presale/internal/domain/tier"
)

// ------------------------------------------------------
// ChainReader port
// ------------------------------------------------------

// TokenBalance is one pre/post token balance entry of a parsed
// transaction. Amount stays a string integer as the RPC reports it.
type TokenBalance struct {
	AccountIndex int    `json:"accountIndex"`
	Mint         string `json:"mint"`
	Amount       string `json:"amount"`
	Decimals     int    `json:"decimals"`
}

// ParsedTransaction is the token-balance view of a confirmed transaction,
// which is all the deriver needs.
type ParsedTransaction struct {
	Signature         string         `json:"signature"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
}

// ChainReader is the minimal chain access the resolver depends on.
// Implemented by infra/solana; faked in tests. Calls are idempotent, so
// retries are safe and left to the caller.
type ChainReader interface {
	// GetParsedTransaction returns nil (no error) when the signature is
	// unknown to the chain.
	GetParsedTransaction(ctx context.Context, signature string) (*ParsedTransaction, error)

	// GetMetadataURI resolves the canonical metadata PDA for the mint and
	// returns the decoded uri field as stored on chain (NUL padding not
	// yet trimmed).
	GetMetadataURI(ctx context.Context, mint string) (string, error)
}

// Resolver derives a DerivedIdentity from a recorded mint reference by
// reading the chain. It holds no mutable state and performs no writes.
type Resolver struct {
	Chain ChainReader
}

func NewResolver(chain ChainReader) *Resolver {
	return &Resolver{Chain: chain}
}

// serialBeforeJSON matches the trailing digit run immediately before
// ".json", with an optional query suffix.
var serialBeforeJSON = regexp.MustCompile(`([0-9]+)\.json(\?.*)?$`)

// ResolveFromMintReference resolves a mint reference into the full derived
// identity:
//
//  1. fetch the parsed transaction and scan token-balance deltas for the
//     single mint that is new in post-balances (narrowing to NFT-shaped
//     candidates, decimals 0 / amount "1", when ambiguous)
//  2. fetch the metadata account behind the canonical PDA and decode its
//     uri, trimming NUL padding
//  3. extract the serial from the trailing digit run before ".json"
//  4. compute the design key from the reference's tier and design choice
//  5. assemble tier code and collector ID
//
// Any failure yields a typed error and nothing else; persistence of a
// successful result is the caller's job.
func (r *Resolver) ResolveFromMintReference(ctx context.Context, ref MintReference) (*DerivedIdentity, error) {
	if r == nil || r.Chain == nil {
		return nil, fmt.Errorf("identity: resolver not configured")
	}
	sig := strings.TrimSpace(ref.TxSignature)
	if sig == "" {
		return nil, ErrInvalidReference
	}
	t, err := tierdom.FromOrdinal(ref.TierID)
	if err != nil {
		return nil, err
	}

	tx, err := r.Chain.GetParsedTransaction(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("identity: get transaction %s: %w", sig, err)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction %s not found", ErrMintNotFound, sig)
	}

	mint, err := findNewMint(tx)
	if err != nil {
		return nil, err
	}

	rawURI, err := r.Chain.GetMetadataURI(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("identity: get metadata for %s: %w", mint, err)
	}
	uri := strings.TrimRight(strings.TrimSpace(rawURI), "\x00")
	if uri == "" {
		return nil, fmt.Errorf("%w: mint %s", ErrEmptyURI, mint)
	}

	m := serialBeforeJSON.FindStringSubmatch(uri)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrBadURIFormat, uri)
	}
	ser, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil || ser < 1 {
		return nil, fmt.Errorf("%w: serial %q", ErrBadURIFormat, m[1])
	}
	serial := uint32(ser)

	designKey, err := t.DesignKey(serial, ref.DesignChoice)
	if err != nil {
		if t == tierdom.TreeSteel {
			return nil, fmt.Errorf("%w: %v", ErrBadDesignChoice, err)
		}
		return nil, err
	}
	code, err := t.ResolveCode(ref.DesignChoice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDesignChoice, err)
	}

	return &DerivedIdentity{
		Mint:        mint,
		MetadataURI: uri,
		TierCode:    code,
		Serial:      serial,
		DesignKey:   designKey,
		CollectorID: FormatCollectorID(t, code, serial, designKey),
	}, nil
}

// findNewMint returns the single token mint present in post-balances but
// absent from pre-balances. With several candidates it narrows to
// NFT-shaped ones (decimals 0, amount "1"); anything but exactly one
// survivor is an error.
func findNewMint(tx *ParsedTransaction) (string, error) {
	pre := make(map[string]struct{}, len(tx.PreTokenBalances))
	for _, b := range tx.PreTokenBalances {
		pre[b.Mint] = struct{}{}
	}

	seen := make(map[string]struct{})
	var candidates []TokenBalance
	for _, b := range tx.PostTokenBalances {
		if b.Mint == "" {
			continue
		}
		if _, ok := pre[b.Mint]; ok {
			continue
		}
		if _, ok := seen[b.Mint]; ok {
			continue
		}
		seen[b.Mint] = struct{}{}
		candidates = append(candidates, b)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: signature %s", ErrMintNotFound, tx.Signature)
	}
	if len(candidates) > 1 {
		var nftShaped []TokenBalance
		for _, b := range candidates {
			if b.Decimals == 0 && b.Amount == "1" {
				nftShaped = append(nftShaped, b)
			}
		}
		if len(nftShaped) != 1 {
			return "", fmt.Errorf("%w: %d candidates in %s", ErrAmbiguousMint, len(candidates), tx.Signature)
		}
		candidates = nftShaped
	}
	return candidates[0].Mint, nil
}
