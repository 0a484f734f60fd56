package vm

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/values"
)

func bigFromInt64(n int64) *big.Int { return big.NewInt(n) }

// boxConstant materializes a Function.Constants pool entry onto the
// heap (spec.md §3.4's constant-pool escape hatch for literals that
// don't fit an inline operand: strings, bignum decimals, regexp source).
func (v *VM) boxConstant(c bytecode.Constant) values.Value {
	switch c.Kind {
	case bytecode.ConstString:
		return v.newString(c.Str)
	case bytecode.ConstBigIntDecimal:
		n := new(big.Int)
		n.SetString(c.Str, 10)
		return v.boxBigInt(n)
	case bytecode.ConstRegexpSource:
		idx, obj := v.Heap.Allocate(heap.KindRegexp)
		obj.Regexp = &heap.RegexpPayload{Source: c.Str}
		cls, _ := v.Classes.Get("Regexp")
		obj.Class = cls
		return values.FromHeapPointer(idx)
	case bytecode.ConstSymbolName:
		id := v.Symbols.Intern(c.Str)
		return values.Symbol(id)
	}
	return values.Nil()
}

func (v *VM) newString(s string) values.Value {
	idx, obj := v.Heap.Allocate(heap.KindString)
	obj.Str = &heap.StringPayload{Bytes: []byte(s)}
	cls, _ := v.Classes.Get("String")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

func (v *VM) stringOf(val values.Value) (string, bool) {
	if val.IsHeap() {
		if obj := v.Heap.At(val.AsHeapIndex()); obj != nil && obj.Kind == heap.KindString && obj.Str != nil {
			return string(obj.Str.Bytes), true
		}
	}
	return "", false
}

func (v *VM) arrayElements(val values.Value) []values.Value {
	if val.IsHeap() {
		if obj := v.Heap.At(val.AsHeapIndex()); obj != nil {
			switch obj.Kind {
			case heap.KindArray:
				if obj.Array != nil {
					return obj.Array.Elements
				}
			case heap.KindSplat:
				return v.arrayElements(obj.Splat)
			}
		}
	}
	return nil
}

func (v *VM) createArray(elems []values.Value) values.Value {
	flat := v.flattenSplats(elems)
	idx, obj := v.Heap.Allocate(heap.KindArray)
	obj.Array = &heap.ArrayPayload{Elements: flat}
	cls, _ := v.Classes.Get("Array")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

// flattenSplats expands any heap.KindSplat markers (pushed by OpSplat)
// in place, the argument-assembly step spec.md §4.3 describes for
// `*arr` used in an argument list or array literal.
func (v *VM) flattenSplats(vals []values.Value) []values.Value {
	out := make([]values.Value, 0, len(vals))
	for _, val := range vals {
		if val.IsHeap() {
			if obj := v.Heap.At(val.AsHeapIndex()); obj != nil && obj.Kind == heap.KindSplat {
				out = append(out, v.arrayElements(obj.Splat)...)
				continue
			}
		}
		out = append(out, val)
	}
	return out
}

func (v *VM) createHash(pairs []values.Value) values.Value {
	var keys, vals []values.Value
	for i := 0; i+1 < len(pairs); i += 2 {
		keys = append(keys, pairs[i])
		vals = append(vals, pairs[i+1])
	}
	idx, obj := v.Heap.Allocate(heap.KindHash)
	obj.Hash = &heap.HashPayload{Keys: keys, Vals: vals}
	cls, _ := v.Classes.Get("Hash")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

func (v *VM) createRange(start, end values.Value, exclusive bool) values.Value {
	idx, obj := v.Heap.Allocate(heap.KindRange)
	obj.Range = &heap.RangePayload{Start: start, End: end, Exclusive: exclusive}
	cls, _ := v.Classes.Get("Range")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

func (v *VM) createRegexp(src values.Value) values.Value {
	s, _ := v.stringOf(src)
	idx, obj := v.Heap.Allocate(heap.KindRegexp)
	obj.Regexp = &heap.RegexpPayload{Source: s}
	cls, _ := v.Classes.Get("Regexp")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

// createProc captures the current frame as a Proc's lexical Outer, so
// a later `yield`/`call` can resolve its dyn-locals (spec.md §4.3
// "Closures capture the defining frame").
func (v *VM) createProc(f *Frame, methodID uint32, isLambda bool) values.Value {
	f.Promote()
	idx, obj := v.Heap.Allocate(heap.KindProc)
	obj.Proc = &heap.ProcPayload{MethodID: methodID, Outer: f, IsLambda: isLambda}
	cls, _ := v.Classes.Get("Proc")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

func (v *VM) toS(val values.Value) values.Value {
	if s, ok := v.stringOf(val); ok {
		return v.newString(s)
	}
	switch {
	case val.IsNil():
		return v.newString("")
	case val.IsTrue():
		return v.newString("true")
	case val.IsFalse():
		return v.newString("false")
	case val.IsFixedInteger():
		return v.newString(strconv.FormatInt(val.AsInt(), 10))
	case val.IsImmediateFloat():
		return v.newString(strconv.FormatFloat(val.AsFloat(), 'g', -1, 64))
	case val.IsSymbol():
		return v.newString(v.Symbols.Name(val.AsSymbolID()))
	}
	if val.IsHeap() {
		if obj := v.Heap.At(val.AsHeapIndex()); obj != nil {
			switch obj.Kind {
			case heap.KindBigInteger:
				return v.newString(obj.BigInt.String())
			case heap.KindHeapFloat:
				return v.newString(strconv.FormatFloat(obj.HeapFloat, 'g', -1, 64))
			}
		}
		res, err := v.invoke(val, "to_s", nil, values.Nil())
		if err == nil {
			return res
		}
	}
	return v.newString("")
}

func (v *VM) concatStrings(parts []values.Value) values.Value {
	var b strings.Builder
	for _, p := range parts {
		s, ok := v.stringOf(p)
		if !ok {
			s, _ = v.stringOf(v.toS(p))
		}
		b.WriteString(s)
	}
	return v.newString(b.String())
}

// classFor resolves the "currently open" class/module for def/const/
// cvar opcodes: a class-body frame's Self is the class value itself
// (spec.md §4.2); any other frame (a plain method or top-level)
// defers to the registry's tracked current-class cursor.
func (v *VM) classFor(f *Frame) *classes.Class {
	if f.Self.IsHeap() {
		if obj := v.Heap.At(f.Self.AsHeapIndex()); obj != nil && obj.Kind == heap.KindModuleOrClass {
			if c, ok := obj.Class.(*classes.Class); ok {
				return c
			}
		}
	}
	if c := v.Classes.Current(); c != nil {
		return c
	}
	c, _ := v.Classes.Get("Object")
	return c
}

// lookupConstant walks the lexically enclosing class chain recorded
// on the function (spec.md §4.2 "walks the class_defined chain"),
// then the current class's own Upper chain, and finally the class
// registry, so a class or module name resolves to its class value.
func (v *VM) lookupConstant(f *Frame, nameID uint32) (values.Value, bool) {
	for _, name := range f.Fn.EnclosingClasses {
		if c, ok := v.Classes.Get(name); ok {
			if val, ok := c.GetConstant(nameID); ok {
				return val, true
			}
		}
	}
	for c := v.classFor(f); c != nil; c = c.Upper {
		if val, ok := c.GetConstant(nameID); ok {
			return val, true
		}
	}
	if c, ok := v.Classes.Get(v.Symbols.Name(nameID)); ok {
		return v.classValue(c), true
	}
	return values.Value(0), false
}

func (v *VM) rawIvar(receiver values.Value, nameID uint32) (values.Value, bool) {
	if !receiver.IsHeap() {
		return values.Value(0), false
	}
	obj := v.Heap.At(receiver.AsHeapIndex())
	if obj == nil {
		return values.Value(0), false
	}
	return obj.GetIvar(nameID)
}

func (v *VM) getIvar(receiver values.Value, nameID uint32) values.Value {
	val, ok := v.rawIvar(receiver, nameID)
	if !ok {
		return values.Nil()
	}
	return val
}

func (v *VM) setIvar(receiver values.Value, nameID uint32, val values.Value) {
	if !receiver.IsHeap() {
		return
	}
	if obj := v.Heap.At(receiver.AsHeapIndex()); obj != nil {
		obj.SetIvar(nameID, val)
	}
}

// errorFromValue wraps a raised value (a heap Exception object, or
// any other value per Ruby's "anything can be `raise`d if it responds
// to exception" rule, simplified here to "must be an Exception") into
// the propagated *raise.Error.
func (v *VM) errorFromValue(val values.Value) *raise.Error {
	if val.IsHeap() {
		if obj := v.Heap.At(val.AsHeapIndex()); obj != nil && obj.Kind == heap.KindException && obj.Exception != nil {
			e := raise.New(raise.Kind(obj.Exception.ClassName), "%s", obj.Exception.Message)
			e.Value = val
			return e
		}
	}
	e := raise.New(raise.RuntimeError, "unhandled exception")
	e.Value = val
	return e
}

// valueMatchesRaised implements the `rescue` instruction's per-class
// test (spec.md §4.1 OpRescue): cv is a Class value pushed by the
// compiler's rescue-clause compilation, errVal the in-flight error
// (already boxed onto the stack by the dispatch loop's unwind path).
func (v *VM) valueMatchesRaised(cv values.Value, errVal values.Value) bool {
	if !cv.IsHeap() {
		return false
	}
	obj := v.Heap.At(cv.AsHeapIndex())
	if obj == nil || obj.Kind != heap.KindModuleOrClass {
		return false
	}
	targetName := obj.Class.ClassName()
	cls := v.ClassOf(errVal)
	for c := cls; c != nil; c = c.Upper {
		if c.ClassName() == targetName {
			return true
		}
	}
	return false
}

// caseEntryMatches tests a subject value against one opt_case table
// row by the same literal-equality rule triple_eq would use for a
// primitive label (spec.md §4.3 "opt_case ... hash table").
func (v *VM) caseEntryMatches(e bytecode.CaseEntry, subject values.Value) bool {
	switch e.Kind {
	case bytecode.CaseKeyInt:
		return subject.IsFixedInteger() && subject.AsInt() == e.Int
	case bytecode.CaseKeyString:
		s, ok := v.stringOf(subject)
		return ok && s == e.Str
	case bytecode.CaseKeySymbol:
		return subject.IsSymbol() && int64(subject.AsSymbolID()) == e.Int
	case bytecode.CaseKeyNil:
		return subject.IsNil()
	case bytecode.CaseKeyTrue:
		return subject.IsTrue()
	case bytecode.CaseKeyFalse:
		return subject.IsFalse()
	default:
		return false
	}
}

// boxException builds the heap Exception object the `rescue`-bound
// variable and `raise ClassName, "msg"` expression both need.
func (v *VM) boxException(className, message string) values.Value {
	idx, obj := v.Heap.Allocate(heap.KindException)
	obj.Exception = &heap.ExceptionPayload{ClassName: className, Message: message}
	cls, _ := v.Classes.Get(className)
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

// Raise/Yield implement methods.NativeCallContext so native method
// bodies can reach VM services without this package's callers
// importing methods, avoiding the import cycle methods/repository.go documents.
func (v *VM) Raise(class string, message string) error {
	return raise.New(raise.Kind(class), "%s", message)
}

func (v *VM) Yield(block values.Value, args []values.Value) (values.Value, error) {
	res, err := v.callBlock(block, args)
	if err != nil {
		return values.Value(0), err
	}
	return res, nil
}

var _ methods.NativeCallContext = (*VM)(nil)
