package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call carries the caller identity and the value attached to a single engine
// invocation. The execution context (HTTP layer, chain relayer, tests)
// constructs it; the engine never derives identity from ambient state.
type Call struct {
	Caller common.Address
	Value  *big.Int
}

// AttachedValue returns the value attached to the call, treating a nil
// amount as zero.
func (c Call) AttachedValue() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}
