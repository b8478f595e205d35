package analysis

import (
	"math"
	"sort"
)

// Graph is a small undirected graph over string nodes. Nodes keep insertion
// order so that rankings over uniform scores stay deterministic.
type Graph struct {
	nodes []string
	index map[string]int
	adj   []map[int]struct{}
}

func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

func (g *Graph) AddNode(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, name)
	g.index[name] = i
	g.adj = append(g.adj, make(map[int]struct{}))
	return i
}

// AddEdge connects two distinct nodes. Edges are binary; adding the same pair
// twice is a no-op.
func (g *Graph) AddEdge(a, b string) {
	if a == b {
		return
	}
	i, j := g.AddNode(a), g.AddNode(b)
	g.adj[i][j] = struct{}{}
	g.adj[j][i] = struct{}{}
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) HasEdge(a, b string) bool {
	i, iok := g.index[a]
	j, jok := g.index[b]
	if !iok || !jok {
		return false
	}
	_, ok := g.adj[i][j]
	return ok
}

// PageRank computes importance scores with the standard power iteration
// (damping 0.85). Dangling nodes redistribute their mass uniformly. An empty
// graph yields an empty score slice.
func (g *Graph) PageRank() []float64 {
	n := len(g.nodes)
	if n == 0 {
		return nil
	}
	const (
		damping = 0.85
		maxIter = 100
		tol     = 1e-6
	)

	ranks := make([]float64, n)
	for i := range ranks {
		ranks[i] = 1.0 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < maxIter; iter++ {
		var dangling float64
		for i := range next {
			next[i] = (1 - damping) / float64(n)
		}
		for i, neighbors := range g.adj {
			if len(neighbors) == 0 {
				dangling += ranks[i]
				continue
			}
			share := damping * ranks[i] / float64(len(neighbors))
			for j := range neighbors {
				next[j] += share
			}
		}
		if dangling > 0 {
			spread := damping * dangling / float64(n)
			for i := range next {
				next[i] += spread
			}
		}

		var delta float64
		for i := range ranks {
			delta += math.Abs(next[i] - ranks[i])
		}
		copy(ranks, next)
		if delta < tol {
			break
		}
	}
	return ranks
}

// EigenvectorCentrality computes eigenvector centrality by power iteration.
// On a graph with no edges the scores are uniform; callers rank uniform scores
// by node insertion order, which keeps the result deterministic.
func (g *Graph) EigenvectorCentrality() []float64 {
	n := len(g.nodes)
	if n == 0 {
		return nil
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}

	var hasEdges bool
	for _, neighbors := range g.adj {
		if len(neighbors) > 0 {
			hasEdges = true
			break
		}
	}
	if !hasEdges {
		return scores
	}

	const (
		maxIter = 100
		tol     = 1e-6
	)
	next := make([]float64, n)
	for iter := 0; iter < maxIter; iter++ {
		for i := range next {
			next[i] = 0
		}
		for i, neighbors := range g.adj {
			for j := range neighbors {
				next[j] += scores[i]
			}
		}

		var norm float64
		for _, v := range next {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			return scores
		}

		var delta float64
		for i := range next {
			next[i] /= norm
			delta += math.Abs(next[i] - scores[i])
		}
		copy(scores, next)
		if delta < tol {
			break
		}
	}
	return scores
}

// Betweenness computes betweenness centrality with Brandes' algorithm over
// unweighted shortest paths. Isolated nodes score zero; an edgeless graph is
// all zeros (uniform), resolved by insertion order at ranking time.
func (g *Graph) Betweenness() []float64 {
	n := len(g.nodes)
	scores := make([]float64, n)
	if n == 0 {
		return nil
	}

	for s := 0; s < n; s++ {
		stack := make([]int, 0, n)
		preds := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for w := range g.adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				scores[w] += delta[w]
			}
		}
	}

	// undirected: every pair is counted twice
	for i := range scores {
		scores[i] /= 2
	}
	return scores
}

// TopN returns up to n node names ranked by score descending; equal scores
// keep insertion order (stable sort).
func (g *Graph) TopN(scores []float64, n int) []string {
	idx := make([]int, len(g.nodes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if n > len(idx) {
		n = len(idx)
	}
	top := make([]string, 0, n)
	for _, i := range idx[:n] {
		top = append(top, g.nodes[i])
	}
	return top
}

// WeightedEdge is one co-occurrence edge with its accumulated weight, used as
// renderer payload for the keyword graph visualization.
type WeightedEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}
