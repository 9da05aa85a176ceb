package ir

// Variable is a name plus a type descriptor. Variables are SSA: every
// textual variable is produced by exactly one defining node within its
// function. The name is opaque; ordering is insertion-order inside a block.
type Variable struct {
	Name string
	Typ  Type
}

func (v Variable) String() string { return "%" + v.Name }

// Operand is an IR-level operand: either a typed constant or a variable
// reference. It is a tagged struct rather than an interface so that node
// visitors can switch on IsConst without a type assertion.
type Operand struct {
	IsConst bool
	Const   Const
	Var     Variable
}

// OperandFromConst wraps a Const as an Operand.
func OperandFromConst(c Const) Operand { return Operand{IsConst: true, Const: c} }

// OperandFromVar wraps a Variable as an Operand.
func OperandFromVar(v Variable) Operand { return Operand{IsConst: false, Var: v} }

// Type returns the type descriptor carried by this operand, constant or not.
func (o Operand) Type() Type {
	if o.IsConst {
		return o.Const.Typ
	}
	return o.Var.Typ
}

func (o Operand) String() string {
	if o.IsConst {
		return o.Const.Typ.String() + " " + o.Const.String()
	}
	return o.Var.String()
}

// Equal reports structural equality between two operands.
func (o Operand) Equal(other Operand) bool {
	if o.IsConst != other.IsConst {
		return false
	}
	if o.IsConst {
		return o.Const.Typ.Equal(other.Const.Typ) && o.Const.Bits == other.Const.Bits
	}
	return o.Var.Name == other.Var.Name && o.Var.Typ.Equal(other.Var.Typ)
}
