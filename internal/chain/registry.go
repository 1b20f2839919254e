package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// erc721ABI is the fragment of the ERC-721 interface the registry needs.
// transferFrom succeeds only when the transaction sender (the custodian) is
// the owner, an approved operator, or approved for the specific token.
const erc721ABI = `[
	{"name":"transferFrom","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],
	 "outputs":[]},
	{"name":"ownerOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

// Registry implements domain.AssetRegistry against ERC-721 contracts. Each
// Transfer is one transferFrom transaction signed by the custodian; sellers
// must have approved the custodian before listing.
type Registry struct {
	client *Client
	abi    abi.ABI
}

// NewRegistry creates a Registry over the given chain client.
func NewRegistry(client *Client) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc721 abi: %w", err)
	}
	return &Registry{client: client, abi: parsed}, nil
}

// Transfer moves tokenID on the assetRef contract from from to to. The
// contract rejects the call when the custodian lacks authorization over the
// token, which surfaces as a reverted transaction.
func (r *Registry) Transfer(ctx context.Context, assetRef common.Address, assetID *big.Int, from, to common.Address) error {
	data, err := r.abi.Pack("transferFrom", from, to, assetID)
	if err != nil {
		return fmt.Errorf("chain: pack transferFrom: %w", err)
	}
	if err := r.client.submit(ctx, assetRef, nil, data); err != nil {
		return fmt.Errorf("chain: transfer asset %s/%s: %w", assetRef.Hex(), assetID, err)
	}
	return nil
}

// OwnerOf reads the current on-chain holder of a token. Used by operators
// to audit escrow custody against engine state.
func (r *Registry) OwnerOf(ctx context.Context, assetRef common.Address, assetID *big.Int) (common.Address, error) {
	data, err := r.abi.Pack("ownerOf", assetID)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: pack ownerOf: %w", err)
	}
	out, err := r.client.call(ctx, assetRef, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain: ownerOf %s/%s: %w", assetRef.Hex(), assetID, err)
	}
	results, err := r.abi.Unpack("ownerOf", out)
	if err != nil || len(results) != 1 {
		return common.Address{}, fmt.Errorf("chain: unpack ownerOf: %w", err)
	}
	owner, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("chain: ownerOf returned unexpected type %T", results[0])
	}
	return owner, nil
}

// Compile-time interface checks.
var (
	_ domain.AssetRegistry  = (*Registry)(nil)
	_ domain.AssetInspector = (*Registry)(nil)
)
