package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// submit builds, signs, sends, and waits for a dynamic-fee transaction from
// the custodian account. It returns an error if the transaction reverts.
func (c *Client) submit(ctx context.Context, to common.Address, value *big.Int, data []byte) error {
	nonce, err := c.nextNonce(ctx)
	if err != nil {
		return err
	}

	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("chain: suggest tip cap: %w", err)
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("chain: head header: %w", err)
	}
	// feeCap = 2*baseFee + tip leaves headroom for base-fee growth while the
	// transaction is pending.
	feeCap := new(big.Int).Add(
		new(big.Int).Mul(head.BaseFee, big.NewInt(2)),
		tipCap,
	)

	gas := c.gasCap
	if gas == 0 {
		est, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  c.address,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return fmt.Errorf("chain: estimate gas: %w", err)
		}
		gas = est
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return fmt.Errorf("chain: sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("chain: send tx: %w", err)
	}

	c.logger.DebugContext(ctx, "chain: tx submitted",
		slog.String("hash", signed.Hash().Hex()),
		slog.String("to", to.Hex()),
		slog.Uint64("nonce", nonce),
	)

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return fmt.Errorf("chain: wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("chain: tx %s reverted", signed.Hash().Hex())
	}
	return nil
}

// call executes a read-only contract call from the custodian account.
func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{
		From: c.address,
		To:   &to,
		Data: data,
	}, nil)
}
