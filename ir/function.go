package ir

import "fmt"

// Arg is one named, typed argument of a function signature.
type Arg struct {
	Name string
	Typ  Type
}

// Signature is a function's typed signature: ordered arguments, one return
// descriptor, and a variadic flag.
type Signature struct {
	Args     []Arg
	Ret      Type
	Variadic bool
}

// Function is a typed signature, a non-empty ordered list of blocks (the
// first is the entry), and an inline hint.
type Function struct {
	Name   string
	Sig    Signature
	Blocks []*Block
	Inline bool

	byName    map[string]*Block
	calleeSig func(name string) (Signature, bool)
}

// SetCalleeResolver installs the lookup Module.Verify uses to resolve
// sibling function signatures for call-site argument checking, without
// Function holding an owning back-pointer to its Module.
func (f *Function) SetCalleeResolver(resolve func(name string) (Signature, bool)) {
	f.calleeSig = resolve
}

// NewFunction creates an empty function (no blocks yet).
func NewFunction(name string, sig Signature) *Function {
	return &Function{Name: name, Sig: sig, byName: map[string]*Block{}}
}

// AppendBlock creates and appends a new block; names must be unique within
// the function.
func (f *Function) AppendBlock(name string) *Block {
	if f.byName == nil {
		f.byName = map[string]*Block{}
	}
	if _, dup := f.byName[name]; dup {
		panic("ir: duplicate block name " + name + " in function " + f.Name)
	}
	b := NewBlock(name)
	f.byName[name] = b
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the function's entry block (the first block), if any.
func (f *Function) Entry() (*Block, bool) {
	if len(f.Blocks) == 0 {
		return nil, false
	}
	return f.Blocks[0], true
}

// Block looks up a block by name within this function.
func (f *Function) Block(name string) (*Block, bool) {
	b, ok := f.byName[name]
	return b, ok
}

// KeepBlocks filters f.Blocks down to those keep reports true for, updating
// the name lookup table to match; used by dead-block elimination, which
// only has the exported Blocks slice to reason about otherwise.
func (f *Function) KeepBlocks(keep func(*Block) bool) (removed bool) {
	var kept []*Block
	for _, b := range f.Blocks {
		if keep(b) {
			kept = append(kept, b)
		} else {
			delete(f.byName, b.Name)
			removed = true
		}
	}
	f.Blocks = kept
	return removed
}

// AllVariables enumerates every variable defined anywhere in this function,
// in block then intra-block order.
func (f *Function) AllVariables() []Variable {
	var out []Variable
	for _, b := range f.Blocks {
		for _, n := range b.Nodes {
			if n.Out != nil {
				out = append(out, *n.Out)
			}
		}
	}
	return out
}

// DefiningNode locates the node that defines variable name, scanning every
// block of this function.
func (f *Function) DefiningNode(name string) (*Node, *Block, bool) {
	for _, b := range f.Blocks {
		for _, n := range b.Nodes {
			if n.Out != nil && n.Out.Name == name {
				return n, b, true
			}
		}
	}
	return nil, nil, false
}

func (f *Function) String() string {
	return fmt.Sprintf("function %s", f.Name)
}
