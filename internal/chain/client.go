// Package chain implements the engine's asset-registry and value-ledger
// capabilities against an EVM chain: ERC-721 custody transfers and native
// value payouts, signed with the custodian key and submitted over JSON-RPC.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds connection and signing parameters for the chain client.
type ClientConfig struct {
	// RPCURL is the JSON-RPC endpoint of the chain node.
	RPCURL string
	// ChainID of the target network.
	ChainID int64
	// Key resolves the custodian's signing key (raw hex or encrypted file).
	Key KeyConfig
	// GasLimit caps gas per transaction; 0 uses node estimation.
	GasLimit uint64
}

// Client wraps an ethclient connection plus the custodian signing identity.
// It serializes nonce allocation so the registry and ledger adapters can
// share one account.
type Client struct {
	eth     *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	gasCap  uint64
	logger  *slog.Logger

	nonceMu sync.Mutex
}

// Dial connects to the chain node, resolves the signing key, and verifies
// the node reports the configured chain ID.
func Dial(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	keyHex, err := LoadKey(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("chain: resolve key: %w", err)
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("chain: parse key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain: node reports chain id %d, config expects %d", chainID.Int64(), cfg.ChainID)
	}

	c := &Client{
		eth:     eth,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		gasCap:  cfg.GasLimit,
		logger:  logger.With(slog.String("component", "chain")),
	}

	c.logger.Info("chain: connected",
		slog.String("rpc", cfg.RPCURL),
		slog.Int64("chain_id", chainID.Int64()),
		slog.String("custodian", c.address.Hex()),
	)
	return c, nil
}

// Custodian returns the address assets are escrowed under on chain.
func (c *Client) Custodian() common.Address {
	return c.address
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// nextNonce returns the pending nonce for the custodian account. Serialized
// so two adapters never race for the same nonce.
func (c *Client) nextNonce(ctx context.Context) (uint64, error) {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	nonce, err := c.eth.PendingNonceAt(ctx, c.address)
	if err != nil {
		return 0, fmt.Errorf("chain: pending nonce: %w", err)
	}
	return nonce, nil
}
