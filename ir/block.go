package ir

import "strconv"

// Block is an ordered sequence of nodes, a unique name within the owning
// function, and a monotonically increasing local counter used to mint fresh
// variable names.
type Block struct {
	Name    string
	Nodes   []*Node
	counter int
}

// NewBlock creates an empty block with the given name.
func NewBlock(name string) *Block {
	return &Block{Name: name}
}

// Push appends a node; it must not follow a terminator.
func (b *Block) Push(n *Node) {
	if len(b.Nodes) > 0 && b.Nodes[len(b.Nodes)-1].IsTerminator() {
		panic("ir: Push after block terminator in " + b.Name)
	}
	b.Nodes = append(b.Nodes, n)
}

// FreshVarName yields a decimal counter, bumped after each call.
func (b *Block) FreshVarName() string {
	name := strconv.Itoa(b.counter)
	b.counter++
	return name
}

// Terminator returns the block's terminating node, if the block has one.
func (b *Block) Terminator() (*Node, bool) {
	if len(b.Nodes) == 0 {
		return nil, false
	}
	last := b.Nodes[len(b.Nodes)-1]
	if last.IsTerminator() {
		return last, true
	}
	return nil, false
}

// IsVarUsedAfter performs a linear scan from node's successor position,
// reporting whether var is referenced by any later node in this block. This
// is the foundation for dead-code elision during selection.
func (b *Block) IsVarUsedAfter(node *Node, v Variable) bool {
	idx := -1
	for i, n := range b.Nodes {
		if n == node {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	for _, n := range b.Nodes[idx+1:] {
		for _, in := range n.InputVars() {
			if in.Name == v.Name {
				return true
			}
		}
	}
	return false
}

// Successors returns the blocks this block may branch to, per its
// terminator (or none if unterminated/returns).
func (b *Block) Successors() []*Block {
	term, ok := b.Terminator()
	if !ok {
		return nil
	}
	switch term.Op {
	case OpBr:
		return []*Block{term.Target}
	case OpBrCond:
		return []*Block{term.Target, term.ElseTarget}
	case OpSwitch:
		out := []*Block{term.Target}
		for _, c := range term.SwitchCases {
			out = append(out, c.Target)
		}
		return out
	default:
		return nil
	}
}

// FormatHeader returns the debug label line for this block.
func (b *Block) FormatHeader() string { return b.Name + ":" }
