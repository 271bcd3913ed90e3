package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Scope tree: lexical bindings and deferred register cleanup
// ---------------------------------------------------------------------------

// FunctionIdentity holds the symbolic ids minted for a function the first
// time it is registered. CallID is the call target, ExitID the return target.
type FunctionIdentity struct {
	CallID       string
	ExitID       string
	ReturnsValue bool
}

// cleanupEntry is one register awaiting emission of a clear instruction.
// Name is the variable name for diagnostics; empty for unnamed temporaries.
type cleanupEntry struct {
	register string
	name     string
}

// Scope is one node of the lexical scope tree. A scope owns its children;
// the parent reference is used only for upward lookup and never keeps the
// parent alive. Only the path from the root to the current scope exists at
// any time: closed scopes are pruned.
type Scope struct {
	parent   *Scope
	children []*Scope

	registerMap       map[string]string            // variable name -> register
	bindOrder         []string                     // registerMap insertion order
	internalRegisters []string                     // unnamed temporaries
	functionMap       map[string]*FunctionIdentity // function name -> identity
	registersToClean  []cleanupEntry               // pending cleanup, insertion order
}

func newScope(parent *Scope) *Scope {
	return &Scope{
		parent:      parent,
		registerMap: make(map[string]string),
		functionMap: make(map[string]*FunctionIdentity),
	}
}

// bind records a name -> register association in this scope.
// A rebinding of an existing name keeps the old register alive as an unnamed
// temporary so its cleanup is not lost.
func (sc *Scope) bind(name, register string) {
	if old, ok := sc.registerMap[name]; ok {
		sc.internalRegisters = append(sc.internalRegisters, old)
		sc.registerMap[name] = register
		return
	}
	sc.registerMap[name] = register
	sc.bindOrder = append(sc.bindOrder, name)
}

// lookupRegister resolves a variable name across the ancestor chain.
// The innermost binding wins.
func (sc *Scope) lookupRegister(name string) (string, bool) {
	for s := sc; s != nil; s = s.parent {
		if reg, ok := s.registerMap[name]; ok {
			return reg, true
		}
	}
	return "", false
}

// lookupName is the reverse lookup: register -> variable name.
func (sc *Scope) lookupName(register string) (string, bool) {
	for s := sc; s != nil; s = s.parent {
		for name, reg := range s.registerMap {
			if reg == register {
				return name, true
			}
		}
	}
	return "", false
}

// lookupFunction resolves a function name across the ancestor chain.
func (sc *Scope) lookupFunction(name string) (*FunctionIdentity, bool) {
	for s := sc; s != nil; s = s.parent {
		if id, ok := s.functionMap[name]; ok {
			return id, true
		}
	}
	return nil, false
}

// ownCleanup computes this scope's own cleanup list: named bindings in
// insertion order first, then unnamed temporaries.
func (sc *Scope) ownCleanup() []cleanupEntry {
	out := make([]cleanupEntry, 0, len(sc.bindOrder)+len(sc.internalRegisters))
	for _, name := range sc.bindOrder {
		out = append(out, cleanupEntry{register: sc.registerMap[name], name: name})
	}
	for _, reg := range sc.internalRegisters {
		out = append(out, cleanupEntry{register: reg})
	}
	return out
}

// reset clears the scope's bindings and pending cleanup after a flush.
func (sc *Scope) reset() {
	sc.registerMap = make(map[string]string)
	sc.bindOrder = nil
	sc.internalRegisters = nil
	sc.registersToClean = nil
}

// detachChild removes child from sc's children, reporting whether it was
// actually present.
func (sc *Scope) detachChild(child *Scope) bool {
	for i, c := range sc.children {
		if c == child {
			sc.children = append(sc.children[:i], sc.children[i+1:]...)
			return true
		}
	}
	return false
}

func (sc *Scope) String() string {
	return fmt.Sprintf("Scope(vars=%d fns=%d pending=%d children=%d)",
		len(sc.registerMap), len(sc.functionMap), len(sc.registersToClean), len(sc.children))
}
