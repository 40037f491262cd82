package selector

import (
	"strconv"
	"strings"
)

// Key identifies the element attribute an atom matches against.
type Key string

// Recognized atom keys.
const (
	KeyRole      Key = "role"
	KeyName      Key = "name"
	KeyID        Key = "id"
	KeyNativeID  Key = "nativeid"
	KeyClassName Key = "classname"
	KeyText      Key = "text"
	KeyPos       Key = "pos"
	KeyVisible   Key = "visible"
)

// knownKeys is the closed set of atom keys accepted by the parser.
var knownKeys = map[Key]bool{
	KeyRole:      true,
	KeyName:      true,
	KeyID:        true,
	KeyNativeID:  true,
	KeyClassName: true,
	KeyText:      true,
	KeyPos:       true,
	KeyVisible:   true,
}

// Relation identifies a positional operator.
type Relation string

// Positional relations.
const (
	RelRightOf Relation = "rightof"
	RelLeftOf  Relation = "leftof"
	RelAbove   Relation = "above"
	RelBelow   Relation = "below"
	RelNear    Relation = "near"
)

var knownRelations = map[Relation]bool{
	RelRightOf: true,
	RelLeftOf:  true,
	RelAbove:   true,
	RelBelow:   true,
	RelNear:    true,
}

// Node is a filter expression evaluated against a single element.
type Node interface {
	write(sb *strings.Builder)
}

// Atom matches one element attribute.
// For name and text keys, Contains selects case-insensitive substring
// matching; otherwise matching is exact case-insensitive equality.
type Atom struct {
	Key      Key
	Value    string
	Contains bool
}

func (a *Atom) write(sb *strings.Builder) {
	sb.WriteString(string(a.Key))
	sb.WriteByte(':')

	if a.Contains {
		sb.WriteString("contains:")
	}

	sb.WriteString(a.Value)
}

// Compound is the legacy compact form "role:Button|name:OK": every atom must
// match the same element.
type Compound struct {
	Atoms []*Atom
}

func (c *Compound) write(sb *strings.Builder) {
	for index, atom := range c.Atoms {
		if index > 0 {
			sb.WriteByte('|')
		}

		atom.write(sb)
	}
}

// And requires both operands to match the same element.
type And struct {
	LHS Node
	RHS Node
}

func (a *And) write(sb *strings.Builder) {
	writeOperand(sb, a.LHS)
	sb.WriteString(" && ")
	writeOperand(sb, a.RHS)
}

// Or requires either operand to match.
type Or struct {
	LHS Node
	RHS Node
}

func (o *Or) write(sb *strings.Builder) {
	writeOperand(sb, o.LHS)
	sb.WriteString(" || ")
	writeOperand(sb, o.RHS)
}

// writeOperand parenthesizes nested boolean nodes so mixed operators always
// print with explicit grouping (the only form the parser accepts back).
func writeOperand(sb *strings.Builder, n Node) {
	switch n.(type) {
	case *And, *Or:
		sb.WriteByte('(')
		n.write(sb)
		sb.WriteByte(')')
	default:
		n.write(sb)
	}
}

// Positional filters candidates by geometry relative to an anchor element
// resolved from Inner.
type Positional struct {
	Relation Relation
	Inner    *Selector
}

func (p *Positional) write(sb *strings.Builder) {
	sb.WriteString(string(p.Relation))
	sb.WriteByte(':')

	inner := p.Inner.String()
	if len(p.Inner.Steps) > 1 || strings.ContainsAny(inner, " |") {
		sb.WriteByte('(')
		sb.WriteString(inner)
		sb.WriteByte(')')
	} else {
		sb.WriteString(inner)
	}
}

// Index selects a single element from a step's match set: Nth from the start,
// or Nth from the end when FromEnd is set (nth-1 is the last match).
type Index struct {
	Nth     int
	FromEnd bool
}

func (i *Index) write(sb *strings.Builder) {
	if i.FromEnd {
		sb.WriteString("nth-")
		sb.WriteString(strconv.Itoa(i.Nth))

		return
	}

	sb.WriteString("nth:")
	sb.WriteString(strconv.Itoa(i.Nth))
}

// Step is one stage of a chain. Either Parent is set (a ".." navigation), or
// Expr filters the candidate pool expanded from the previous step's matches.
// A nil Expr matches every candidate. Index, when present, applies after all
// boolean filtering.
type Step struct {
	Expr   Node
	Index  *Index
	Parent bool
}

func (s *Step) write(sb *strings.Builder) {
	if s.Parent {
		sb.WriteString("..")

		return
	}

	wrote := false

	if s.Expr != nil {
		s.Expr.write(sb)

		wrote = true
	}

	if s.Index != nil {
		if wrote {
			sb.WriteByte(' ')
		}

		s.Index.write(sb)
	}
}

// Selector is a parsed selector: a pipeline of steps evaluated left to right.
type Selector struct {
	Steps []Step
}

// String renders the selector in canonical form. Parsing the result yields an
// equal tree.
func (s *Selector) String() string {
	var sb strings.Builder

	for index := range s.Steps {
		if index > 0 {
			sb.WriteString(" >> ")
		}

		s.Steps[index].write(&sb)
	}

	return sb.String()
}

// UsesNativeID reports whether any step of the selector queries the nativeid
// key. The locator raises the descent depth for such selectors to support
// deep browser content trees.
func (s *Selector) UsesNativeID() bool {
	for index := range s.Steps {
		if nodeUsesKey(s.Steps[index].Expr, KeyNativeID) {
			return true
		}
	}

	return false
}

func nodeUsesKey(n Node, key Key) bool {
	switch node := n.(type) {
	case nil:
		return false
	case *Atom:
		return node.Key == key
	case *Compound:
		for _, atom := range node.Atoms {
			if atom.Key == key {
				return true
			}
		}

		return false
	case *And:
		return nodeUsesKey(node.LHS, key) || nodeUsesKey(node.RHS, key)
	case *Or:
		return nodeUsesKey(node.LHS, key) || nodeUsesKey(node.RHS, key)
	case *Positional:
		return false
	default:
		return false
	}
}

// stepAtoms collects the atoms that must hold for every match of the step's
// expression (conjunctive atoms only; Or branches contribute nothing).
func stepAtoms(n Node) []*Atom {
	switch node := n.(type) {
	case *Atom:
		return []*Atom{node}
	case *Compound:
		return node.Atoms
	case *And:
		return append(stepAtoms(node.LHS), stepAtoms(node.RHS)...)
	default:
		return nil
	}
}

// ShallowEligible reports whether the step queries for a named toplevel
// container (role Window/Pane/Application/Document plus a name atom), which
// allows the locator to downgrade descent depth.
func (s *Step) ShallowEligible() bool {
	if s.Parent {
		return false
	}

	var hasTopRole, hasName bool

	for _, atom := range stepAtoms(s.Expr) {
		switch atom.Key {
		case KeyRole:
			switch strings.ToLower(atom.Value) {
			case "window", "pane", "application", "document":
				hasTopRole = true
			}
		case KeyName:
			hasName = true
		}
	}

	return hasTopRole && hasName
}
