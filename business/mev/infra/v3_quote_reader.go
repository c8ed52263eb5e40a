package infra

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mevbacktest/backtester/internal/circuitbreaker"
	"github.com/mevbacktest/backtester/internal/logger"
)

// quoterV2ABI is the ABI for Uniswap V3's QuoterV2 contract, trimmed to the
// single method this reader calls.
const quoterV2ABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "quoteExactInputSingle",
		"outputs": [
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
			{"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
			{"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
			{"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// V3QuoteReader is a thin read-only caller against Uniswap V3's QuoterV2,
// pinned to historical blocks. It exists only to annotate a detected V2
// opportunity with a V3 reference price for human review; nothing in the
// solver path consumes its output.
type V3QuoteReader struct {
	client     *ethclient.Client
	quoter     common.Address
	quoterABI  abi.ABI
	defaultFee int64
	cb         *circuitbreaker.CircuitBreaker[[]byte]
	logger     logger.LoggerInterface
}

// NewV3QuoteReader parses the QuoterV2 ABI and returns a reader bound to
// quoter for the given fee tier.
func NewV3QuoteReader(client *ethclient.Client, quoter common.Address, defaultFeeTier int64, log logger.LoggerInterface) (*V3QuoteReader, error) {
	parsed, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse QuoterV2 ABI: %w", err)
	}
	return &V3QuoteReader{
		client:     client,
		quoter:     quoter,
		quoterABI:  parsed,
		defaultFee: defaultFeeTier,
		cb:         circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("v3-quoter")),
		logger:     log,
	}, nil
}

// Quote returns the V3 QuoterV2 amountOut for swapping amountIn of tokenIn
// into tokenOut, evaluated as of blockNumber. A non-nil error here is
// routine (the pool for this pair/fee tier may not exist at this block) and
// should only ever be logged, never treated as a backtest fault.
func (r *V3QuoteReader) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, blockNumber uint64) (*big.Int, error) {
	callData, err := r.quoterABI.Pack("quoteExactInputSingle", quoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(r.defaultFee),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode quoteExactInputSingle call: %w", err)
	}

	blockNum := new(big.Int).SetUint64(blockNumber)
	result, err := r.cb.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, ethereum.CallMsg{
			To:   &r.quoter,
			Data: callData,
		}, blockNum)
	})
	if err != nil {
		return nil, fmt.Errorf("quoter call failed at block %d: %w", blockNumber, err)
	}

	outputs, err := r.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode quoteExactInputSingle result: %w", err)
	}
	if len(outputs) < 1 {
		return nil, fmt.Errorf("unexpected quoter output length: %d", len(outputs))
	}

	amountOut, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected quoter output type for amountOut")
	}
	return amountOut, nil
}
