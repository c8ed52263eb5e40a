package infra

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mevbacktest/backtester/business/mev/domain"
	"github.com/mevbacktest/backtester/internal/apperror"
)

func callMsg(to common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{To: &to, Data: data}
}

// v2PairABIJSON covers only the three read-only calls a pre-block reserve
// snapshot needs: the pair's two token addresses and its current reserves.
const v2PairABIJSON = `[
{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"type":"function"},
{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"type":"function"},
{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"type":"function"}
]`

// v2FeeNumerator/v2FeeDenominator is the fixed 0.3% swap fee every
// Uniswap-V2-shaped pair in the pool universe charges.
var (
	v2FeeNumerator   = big.NewInt(997)
	v2FeeDenominator = big.NewInt(1000)
)

// PoolReader reads the on-chain state of a Uniswap-V2-shaped pair at a
// specific historical block, the seed a backtest range needs before it can
// replay a block's Sync timeline against preBlockReserves.
type PoolReader struct {
	client  *ethclient.Client
	pairABI abi.ABI
}

// NewPoolReader parses the pair ABI once; the resulting reader is stateless
// and safe for concurrent use.
func NewPoolReader(client *ethclient.Client) (*PoolReader, error) {
	parsed, err := abi.JSON(strings.NewReader(v2PairABIJSON))
	if err != nil {
		return nil, apperror.New(apperror.CodeDecodeError, apperror.WithCause(err), apperror.WithContext("parsing V2 pair ABI"))
	}
	return &PoolReader{client: client, pairABI: parsed}, nil
}

// ReadPool reads token0, token1 and reserves for pairAddress as of
// blockNumber, wrapping the result in a domain.PoolSnapshot with the
// standard V2 997/1000 fee.
func (r *PoolReader) ReadPool(ctx context.Context, pairAddress common.Address, blockNumber uint64) (*domain.PoolSnapshot, error) {
	blockArg := new(big.Int).SetUint64(blockNumber)

	token0, err := r.callAddress(ctx, pairAddress, blockArg, "token0")
	if err != nil {
		return nil, err
	}
	token1, err := r.callAddress(ctx, pairAddress, blockArg, "token1")
	if err != nil {
		return nil, err
	}

	data, err := r.pairABI.Pack("getReserves")
	if err != nil {
		return nil, apperror.New(apperror.CodeDecodeError, apperror.WithCause(err), apperror.WithContext("packing getReserves call"))
	}
	out, err := r.client.CallContract(ctx, callMsg(pairAddress, data), blockArg)
	if err != nil {
		return nil, apperror.New(apperror.CodeRPCError, apperror.WithCause(err), apperror.WithContext("calling getReserves"))
	}
	values, err := r.pairABI.Unpack("getReserves", out)
	if err != nil {
		return nil, apperror.New(apperror.CodeDecodeError, apperror.WithCause(err), apperror.WithContext("unpacking getReserves"))
	}
	reserve0 := values[0].(*big.Int)
	reserve1 := values[1].(*big.Int)
	timestampLast := values[2].(uint32)

	return domain.NewPoolSnapshot(pairAddress, token0, token1, reserve0, reserve1,
		v2FeeNumerator, v2FeeDenominator, blockNumber, int64(timestampLast))
}

func (r *PoolReader) callAddress(ctx context.Context, pair common.Address, blockArg *big.Int, method string) (common.Address, error) {
	data, err := r.pairABI.Pack(method)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeDecodeError, apperror.WithCause(err), apperror.WithContext("packing "+method+" call"))
	}
	out, err := r.client.CallContract(ctx, callMsg(pair, data), blockArg)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeRPCError, apperror.WithCause(err), apperror.WithContext("calling "+method))
	}
	values, err := r.pairABI.Unpack(method, out)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeDecodeError, apperror.WithCause(err), apperror.WithContext("unpacking "+method))
	}
	return values[0].(common.Address), nil
}
