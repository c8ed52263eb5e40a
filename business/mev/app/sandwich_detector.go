package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapLeg records that a transaction swapped some amount of Token, either
// selling it (Sold=true) or buying it.
type SwapLeg struct {
	Token common.Address
	Sold  bool
}

// TxGasSummary is the slice of a transaction's fields the sandwich heuristic
// needs: sender, effective gas price, and its single relevant swap leg (nil
// if the transaction made none or more than one is ambiguous for this
// heuristic).
type TxGasSummary struct {
	Hash common.Hash
	From common.Address
	EGP  *big.Int
	Swap *SwapLeg
}

// EffectiveGasPrice computes min(maxFeePerGas, baseFee+maxPriorityFeePerGas)
// for a fee-market transaction, or returns gasPrice unchanged for a legacy
// one.
func EffectiveGasPrice(baseFee, maxFeePerGas, maxPriorityFeePerGas, gasPrice *big.Int, legacy bool) *big.Int {
	if legacy {
		return gasPrice
	}
	candidate := new(big.Int).Add(baseFee, maxPriorityFeePerGas)
	if candidate.Cmp(maxFeePerGas) > 0 {
		return new(big.Int).Set(maxFeePerGas)
	}
	return candidate
}

// SandwichMatch is a rolling 3-tx window that cleared the sandwich
// heuristic's minimum bar of two matched sub-conditions.
type SandwichMatch struct {
	Tx0, Tx1, Tx2 common.Hash
	TokenX        common.Address
	Confidence    float64
}

// sandwichConfidence scores a 3-tx window against four independently
// checked sub-conditions: (1) tx0 and tx2 share a sender distinct from
// tx1's, (2) tx0 and tx2 swap the same token in opposite directions, (3)
// tx1 also swaps that token, (4) tx0 and tx2's effective gas price both
// exceed tx1's. 4/4 matches scores 0.95, 3/4 scores 0.8, 2/4 scores 0.5;
// fewer than 2 is not a candidate.
func sandwichConfidence(tx0, tx1, tx2 TxGasSummary) (confidence float64, tokenX common.Address, ok bool) {
	matches := 0

	bracketedBySameSender := tx0.From == tx2.From && tx0.From != tx1.From
	if bracketedBySameSender {
		matches++
	}

	oppositeDirection := false
	tx1SwapsSameToken := false
	var token common.Address
	if tx0.Swap != nil && tx2.Swap != nil && tx0.Swap.Token == tx2.Swap.Token {
		token = tx0.Swap.Token
		if tx0.Swap.Sold != tx2.Swap.Sold {
			oppositeDirection = true
		}
		if tx1.Swap != nil && tx1.Swap.Token == token {
			tx1SwapsSameToken = true
		}
	}
	if oppositeDirection {
		matches++
	}
	if tx1SwapsSameToken {
		matches++
	}

	egpOrdering := tx0.EGP != nil && tx1.EGP != nil && tx2.EGP != nil &&
		tx0.EGP.Cmp(tx1.EGP) > 0 && tx2.EGP.Cmp(tx1.EGP) > 0
	if egpOrdering {
		matches++
	}

	switch matches {
	case 4:
		return 0.95, token, true
	case 3:
		return 0.8, token, true
	case 2:
		return 0.5, token, true
	default:
		return 0, common.Address{}, false
	}
}

// DetectSandwiches rolls a 3-tx window over an ordered transaction list and
// returns every window clearing the sandwich heuristic's bar. Overlapping
// triples are deduplicated greedily: once a window matches, later windows
// sharing any of its three transaction hashes are skipped.
func DetectSandwiches(txs []TxGasSummary) []SandwichMatch {
	var matches []SandwichMatch
	used := make(map[common.Hash]bool)

	for i := 0; i+2 < len(txs); i++ {
		tx0, tx1, tx2 := txs[i], txs[i+1], txs[i+2]
		if used[tx0.Hash] || used[tx1.Hash] || used[tx2.Hash] {
			continue
		}
		confidence, token, ok := sandwichConfidence(tx0, tx1, tx2)
		if !ok {
			continue
		}
		matches = append(matches, SandwichMatch{
			Tx0: tx0.Hash, Tx1: tx1.Hash, Tx2: tx2.Hash,
			TokenX: token, Confidence: confidence,
		})
		used[tx0.Hash], used[tx1.Hash], used[tx2.Hash] = true, true, true
	}
	return matches
}
