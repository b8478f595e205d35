package analysis

import (
	"math"
	"reflect"
	"testing"
)

func TestGraph_AddEdge(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b") // idempotent
	g.AddEdge("a", "a") // self loop dropped

	if got := g.NodeCount(); got != 2 {
		t.Errorf("NodeCount() = %d; want 2", got)
	}
	if !g.HasEdge("a", "b") || !g.HasEdge("b", "a") {
		t.Error("expected undirected edge a-b")
	}
	if g.HasEdge("a", "a") {
		t.Error("self loop should not exist")
	}
}

func TestGraph_PageRank(t *testing.T) {
	// star: hub connected to 3 leaves
	g := NewGraph()
	g.AddEdge("hub", "l1")
	g.AddEdge("hub", "l2")
	g.AddEdge("hub", "l3")

	ranks := g.PageRank()
	hub := ranks[0]
	for i := 1; i < len(ranks); i++ {
		if hub <= ranks[i] {
			t.Errorf("hub rank %f not greater than leaf rank %f", hub, ranks[i])
		}
	}

	var sum float64
	for _, r := range ranks {
		sum += r
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("ranks sum = %f; want ~1", sum)
	}
}

func TestGraph_PageRank_empty(t *testing.T) {
	if got := NewGraph().PageRank(); got != nil {
		t.Errorf("PageRank() on empty graph = %v; want nil", got)
	}
}

func TestGraph_EigenvectorCentrality_noEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")
	g.AddNode("d")

	scores := g.EigenvectorCentrality()
	for i, s := range scores {
		if math.Abs(s-0.25) > 1e-9 {
			t.Errorf("scores[%d] = %f; want uniform 0.25", i, s)
		}
	}
	// uniform scores rank by insertion order
	if got := g.TopN(scores, 2); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("TopN() = %v; want [a b]", got)
	}
}

func TestGraph_EigenvectorCentrality(t *testing.T) {
	// path a-b-c: the middle node dominates
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	scores := g.EigenvectorCentrality()
	if scores[1] <= scores[0] || scores[1] <= scores[2] {
		t.Errorf("middle node score %f not dominant in %v", scores[1], scores)
	}
}

func TestGraph_Betweenness(t *testing.T) {
	// path a-b-c: only b lies on a shortest path between two other nodes
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	scores := g.Betweenness()
	if math.Abs(scores[0]) > 1e-9 || math.Abs(scores[2]) > 1e-9 {
		t.Errorf("endpoints should score 0; got %v", scores)
	}
	if math.Abs(scores[1]-1) > 1e-9 {
		t.Errorf("middle node = %f; want 1", scores[1])
	}
}

func TestGraph_Betweenness_noEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")

	for i, s := range g.Betweenness() {
		if s != 0 {
			t.Errorf("scores[%d] = %f; want 0", i, s)
		}
	}
}

func TestGraph_TopN(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")

	// ties keep insertion order
	got := g.TopN([]float64{1, 1, 2}, 3)
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopN() = %v; want %v", got, want)
	}

	// n larger than node count
	if got := g.TopN([]float64{1, 1, 2}, 10); len(got) != 3 {
		t.Errorf("TopN(10) returned %d nodes; want 3", len(got))
	}
}
