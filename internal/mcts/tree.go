package mcts

import (
	"math"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

const noParent = -1

// node is one position in the search tree. Nodes live in tree.nodes and
// refer to each other by index; parent is a back-reference only, ownership
// runs from the root down.
type node struct {
	move     model.Move
	parent   int32
	children []int32
	// untried holds the legal moves not yet expanded into children. It is
	// filled the first time the node is reached.
	untried  []model.Move
	expanded bool
	terminal bool
	visits   int
	wins     float64
}

// value is the mean result seen from the player who moved into this node.
func (n *node) value() float64 {
	if n.visits == 0 {
		return 0
	}
	return n.wins / float64(n.visits)
}

type tree struct {
	nodes    []node
	maxNodes int
}

func newTree(root *model.GameState, maxNodes int) *tree {
	t := &tree{
		nodes:    make([]node, 0, min(maxNodes, 1024)),
		maxNodes: maxNodes,
	}
	t.nodes = append(t.nodes, node{parent: noParent, terminal: root.IsOver()})
	return t
}

func (t *tree) full() bool {
	return len(t.nodes) >= t.maxNodes
}

func (t *tree) addChild(parent int32, m model.Move, terminal bool) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{move: m, parent: parent, terminal: terminal})
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

// uct scores a child for selection. Unvisited children come first.
func uct(child *node, parentVisits int, c float64) float64 {
	if child.visits == 0 {
		return math.Inf(1)
	}
	exploit := child.wins / float64(child.visits)
	explore := c * math.Sqrt(math.Log(float64(parentVisits))/float64(child.visits))
	return exploit + explore
}

func (t *tree) bestUCTChild(idx int32, c float64) int32 {
	parent := &t.nodes[idx]
	best, bestScore := int32(noParent), math.Inf(-1)
	for _, ci := range parent.children {
		score := uct(&t.nodes[ci], parent.visits, c)
		if score > bestScore {
			best, bestScore = ci, score
		}
	}
	return best
}

// backpropagate walks from leaf to root. result is from the point of view
// of the player who moved into leaf and flips at every ply.
func (t *tree) backpropagate(leaf int32, result float64) {
	for idx := leaf; idx != noParent; idx = t.nodes[idx].parent {
		n := &t.nodes[idx]
		n.visits++
		n.wins += result
		result = 1 - result
	}
}

// mostVisitedChild returns the root child with the most visits. Ties go to
// the earlier child.
func (t *tree) mostVisitedChild() (int32, bool) {
	root := &t.nodes[0]
	best, bestVisits := int32(noParent), -1
	for _, ci := range root.children {
		if v := t.nodes[ci].visits; v > bestVisits {
			best, bestVisits = ci, v
		}
	}
	return best, best != noParent
}
