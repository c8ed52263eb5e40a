package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
)

const unreachable = 1 << 30

// TransferGraphClassifier turns a transaction's ERC-20 transfer graph into a
// cyclic-arbitrage classification: the strongly connected component closest
// to the transaction's sender/recipient, and the vertex within it that
// accrued a strictly positive net balance of some token.
//
// SCC selection takes the cyclic SCC with the smallest hop distance from
// either tx.from or tx.to, breaking ties by the hop distance from tx.from.
// Within the chosen SCC, the profiteer is ranked first by hop distance from
// tx.from, then from tx.to, then by address, so the choice is deterministic.
type TransferGraphClassifier struct{}

// NewTransferGraphClassifier constructs a stateless classifier.
func NewTransferGraphClassifier() *TransferGraphClassifier {
	return &TransferGraphClassifier{}
}

type txGraph struct {
	addrs   []common.Address
	ids     map[common.Address]int
	adj     [][]int // adjacency by vertex id, directed
	edgeTok [][]common.Address
	edgeAmt [][]*big.Int
	edgeTo  [][]int
}

func buildTxGraph(g *domain.TxTransferGraph) *txGraph {
	tg := &txGraph{ids: make(map[common.Address]int)}

	intern := func(a common.Address) int {
		if id, ok := tg.ids[a]; ok {
			return id
		}
		id := len(tg.addrs)
		tg.ids[a] = id
		tg.addrs = append(tg.addrs, a)
		return id
	}

	intern(g.From)
	intern(g.To)
	for _, tr := range g.Transfers {
		intern(tr.From)
		intern(tr.To)
	}

	n := len(tg.addrs)
	tg.adj = make([][]int, n)
	for _, tr := range g.Transfers {
		from := intern(tr.From)
		to := intern(tr.To)
		tg.adj[from] = append(tg.adj[from], to)
	}
	return tg
}

// tarjanSCC computes strongly connected components over a directed graph
// given as an adjacency list, iteratively (an explicit work stack stands in
// for the call stack) to avoid recursion depth limits on pathological
// transactions. Components are returned in the order Tarjan's algorithm
// discovers them, which is a valid reverse topological order.
func tarjanSCC(adj [][]int) [][]int {
	n := len(adj)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var vertexStack []int
	var sccs [][]int
	counter := 0

	type frame struct {
		v, pi int
	}

	for start := 0; start < n; start++ {
		if index[start] != -1 {
			continue
		}
		work := []frame{{v: start}}

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.v

			if top.pi == 0 {
				index[v] = counter
				lowlink[v] = counter
				counter++
				vertexStack = append(vertexStack, v)
				onStack[v] = true
			}

			pushed := false
			for top.pi < len(adj[v]) {
				w := adj[v][top.pi]
				top.pi++
				if index[w] == -1 {
					work = append(work, frame{v: w})
					pushed = true
					break
				} else if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
			if pushed {
				continue
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowlink[v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[v]
				}
			}

			if lowlink[v] == index[v] {
				var scc []int
				for {
					w := vertexStack[len(vertexStack)-1]
					vertexStack = vertexStack[:len(vertexStack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				sccs = append(sccs, scc)
			}
		}
	}
	return sccs
}

func isCyclic(adj [][]int, scc []int) bool {
	if len(scc) > 1 {
		return true
	}
	v := scc[0]
	for _, w := range adj[v] {
		if w == v {
			return true
		}
	}
	return false
}

// bfsDistances returns hop-count distance from source to every vertex
// reachable by directed edges; unreachable vertices carry the unreachable
// sentinel.
func bfsDistances(adj [][]int, source int) []int {
	n := len(adj)
	dist := make([]int, n)
	for i := range dist {
		dist[i] = unreachable
	}
	dist[source] = 0
	queue := []int{source}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if dist[w] == unreachable {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}
	return dist
}

// Classify runs Tarjan SCC over g's transfer graph, selects the cyclic SCC
// closest to {tx.From, tx.To}, and returns the profiteer classification
// within it. ok is false when no cyclic SCC exists.
func (c *TransferGraphClassifier) Classify(g *domain.TxTransferGraph) (domain.AddressClassification, bool) {
	tg := buildTxGraph(g)
	sccs := tarjanSCC(tg.adj)

	var cyclic [][]int
	for _, scc := range sccs {
		if isCyclic(tg.adj, scc) {
			cyclic = append(cyclic, scc)
		}
	}
	if len(cyclic) == 0 {
		return domain.AddressClassification{}, false
	}

	fromID := tg.ids[g.From]
	toID := tg.ids[g.To]
	distFrom := bfsDistances(tg.adj, fromID)
	distTo := bfsDistances(tg.adj, toID)

	sccDist := func(scc []int) (minFrom, minTo int) {
		minFrom, minTo = unreachable, unreachable
		for _, v := range scc {
			if distFrom[v] < minFrom {
				minFrom = distFrom[v]
			}
			if distTo[v] < minTo {
				minTo = distTo[v]
			}
		}
		return
	}

	bestIdx := 0
	bestFrom, bestTo := sccDist(cyclic[0])
	bestMin := minInt(bestFrom, bestTo)
	for i := 1; i < len(cyclic); i++ {
		df, dt := sccDist(cyclic[i])
		m := minInt(df, dt)
		if m < bestMin || (m == bestMin && df < bestFrom) {
			bestIdx, bestFrom, bestTo, bestMin = i, df, dt, m
		}
	}
	chosen := cyclic[bestIdx]

	inSCC := make(map[int]bool, len(chosen))
	for _, v := range chosen {
		inSCC[v] = true
	}

	// net[vertex][token] = incoming - outgoing, restricted to edges with
	// both endpoints inside the chosen SCC.
	net := make(map[int]map[common.Address]*big.Int)
	ensure := func(v int, token common.Address) *big.Int {
		m, ok := net[v]
		if !ok {
			m = make(map[common.Address]*big.Int)
			net[v] = m
		}
		b, ok := m[token]
		if !ok {
			b = big.NewInt(0)
			m[token] = b
		}
		return b
	}

	for _, tr := range g.Transfers {
		fromID, toID := tg.ids[tr.From], tg.ids[tr.To]
		if !inSCC[fromID] || !inSCC[toID] {
			continue
		}
		ensure(fromID, tr.Token).Sub(ensure(fromID, tr.Token), tr.Amount)
		ensure(toID, tr.Token).Add(ensure(toID, tr.Token), tr.Amount)
	}

	// Profiteer: among vertices in the SCC with at least one strictly
	// positive token balance, the one closest to tx.from (ties: tx.to, then
	// address ordering).
	profiteerID := -1
	profiteerDistFrom, profiteerDistTo := unreachable, unreachable
	for _, v := range chosen {
		balances := net[v]
		hasPositive := false
		for _, amt := range balances {
			if amt.Sign() > 0 {
				hasPositive = true
				break
			}
		}
		if !hasPositive {
			continue
		}
		better := profiteerID == -1 ||
			distFrom[v] < profiteerDistFrom ||
			(distFrom[v] == profiteerDistFrom && distTo[v] < profiteerDistTo) ||
			(distFrom[v] == profiteerDistFrom && distTo[v] == profiteerDistTo && tg.addrs[v].Cmp(tg.addrs[profiteerID]) < 0)
		if better {
			profiteerID = v
			profiteerDistFrom, profiteerDistTo = distFrom[v], distTo[v]
		}
	}
	if profiteerID == -1 {
		return domain.AddressClassification{}, false
	}

	positiveBalances := make(map[common.Address]*big.Int)
	for token, amt := range net[profiteerID] {
		if amt.Sign() > 0 {
			positiveBalances[token] = amt
		}
	}

	return domain.AddressClassification{
		TxHash:     g.TxHash,
		Profiteer:  tg.addrs[profiteerID],
		NetBalance: positiveBalances,
	}, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
