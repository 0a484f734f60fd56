package main

import "github.com/embervm/embervm/ast"

// scenario is one named, hand-built AST program the demo/REPL can run.
// There is no parser in this module (spec.md §1 places source-text-to-
// AST lowering out of scope for the CORE), so cmd/embervm stands in
// for "a file full of Ruby source" with literal ast.Program trees —
// the same role the teacher's cmd/vm-demo/main.go fills with inline
// PHP source strings, generalized to a tree since there's no lexer
// here to produce one from text.
type scenario struct {
	Name        string
	Description string
	Build       func() *ast.Program
}

func scenarios() []scenario {
	return []scenario{
		{
			Name:        "arithmetic",
			Description: "(2 + 3) * 4 - 1, via nested integer BinOps",
			Build:       buildArithmeticScenario,
		},
		{
			Name:        "class",
			Description: "a user-defined Counter class with initialize/increment",
			Build:       buildClassScenario,
		},
		{
			Name:        "rescue",
			Description: "begin/rescue around a ZeroDivisionError",
			Build:       buildRescueScenario,
		},
		{
			Name:        "fiber",
			Description: "a Fiber that yields twice then returns",
			Build:       buildFiberScenario,
		},
		{
			Name:        "enumerator",
			Description: "Enumerator.new { |y| ... } driven by #next",
			Build:       buildEnumeratorScenario,
		},
	}
}

func prog(stmts ...ast.Node) *ast.Program {
	return &ast.Program{Statements: stmts}
}

func intLit(n int64) *ast.IntLiteral { return &ast.IntLiteral{Value: n} }

func localRef(name string) *ast.VarRef { return &ast.VarRef{Kind: ast.VarLocal, Name: name} }

func ivarRef(name string) *ast.VarRef { return &ast.VarRef{Kind: ast.VarInstance, Name: name} }

func binOp(op string, l, r ast.Node) *ast.BinOp { return &ast.BinOp{Op: op, Left: l, Right: r} }

// buildArithmeticScenario computes (2 + 3) * 4 - 1 and returns it,
// exercising the dispatch loop's fixnum fast-path opcodes end to end
// with no class/method machinery involved.
func buildArithmeticScenario() *ast.Program {
	sum := binOp("+", intLit(2), intLit(3))
	product := binOp("*", sum, intLit(4))
	diff := binOp("-", product, intLit(1))
	return prog(
		&ast.VarAssign{Kind: ast.VarLocal, Name: "x", Value: diff},
		localRef("x"),
	)
}

// buildClassScenario defines Counter with an initialize and an
// increment method, instantiates it, bumps it twice, and returns the
// final count — exercising def_class, def_method, the new `Object.new`
// allocate-then-initialize native, ivar storage, and an ordinary send.
func buildClassScenario() *ast.Program {
	initialize := &ast.MethodDef{
		Name: "initialize",
		Body: []ast.Node{
			&ast.VarAssign{Kind: ast.VarInstance, Name: "count", Value: intLit(0)},
		},
	}
	increment := &ast.MethodDef{
		Name: "increment",
		Body: []ast.Node{
			&ast.VarAssign{Kind: ast.VarInstance, Name: "count", Value: binOp("+", ivarRef("count"), intLit(1))},
		},
	}
	count := &ast.MethodDef{
		Name: "count",
		Body: []ast.Node{ivarRef("count")},
	}
	classDef := &ast.ClassDef{
		Name: "Counter",
		Body: []ast.Node{initialize, increment, count},
	}

	newCounter := &ast.MethodCall{Receiver: &ast.ConstRef{Name: "Counter"}, Name: "new"}
	return prog(
		classDef,
		&ast.VarAssign{Kind: ast.VarLocal, Name: "c", Value: newCounter},
		&ast.MethodCall{Receiver: localRef("c"), Name: "increment"},
		&ast.MethodCall{Receiver: localRef("c"), Name: "increment"},
		&ast.MethodCall{Receiver: localRef("c"), Name: "count"},
	)
}

// buildRescueScenario divides by zero inside a begin/rescue and
// returns the string the rescue clause substitutes, exercising raise,
// the exception table, and rescue-class matching.
func buildRescueScenario() *ast.Program {
	body := []ast.Node{binOp("/", intLit(1), intLit(0))}
	rescueArm := ast.RescueClause{
		ExceptionClasses: []ast.Node{&ast.ConstRef{Name: "ZeroDivisionError"}},
		VarName:          "e",
		Body:             []ast.Node{&ast.StringLiteral{Value: "caught a division by zero"}},
	}
	return prog(&ast.Begin{Body: body, Rescues: []ast.RescueClause{rescueArm}})
}

// buildFiberScenario creates a Fiber whose body yields twice, resumes
// it three times from the top level, and collects the three results
// into an array — exercising Fiber.new/#resume/Fiber.yield end to end.
func buildFiberScenario() *ast.Program {
	yieldCall := func(n int64) *ast.MethodCall {
		return &ast.MethodCall{Receiver: &ast.ConstRef{Name: "Fiber"}, Name: "yield", Args: []ast.Node{intLit(n)}}
	}
	block := &ast.BlockLiteral{
		Body: []ast.Node{
			yieldCall(1),
			yieldCall(2),
			&ast.StringLiteral{Value: "done"},
		},
	}
	newFiber := &ast.MethodCall{Receiver: &ast.ConstRef{Name: "Fiber"}, Name: "new", Block: block}
	resume := func(recv ast.Node) *ast.MethodCall {
		return &ast.MethodCall{Receiver: recv, Name: "resume"}
	}
	return prog(
		&ast.VarAssign{Kind: ast.VarLocal, Name: "f", Value: newFiber},
		&ast.ArrayLiteral{Elements: []ast.Node{
			resume(localRef("f")),
			resume(localRef("f")),
			resume(localRef("f")),
		}},
	)
}

// buildEnumeratorScenario builds an Enumerator.new generator yielding
// three values and drains it with three #next calls into an array,
// exercising Enumerator.new/Yielder#<<//#next.
func buildEnumeratorScenario() *ast.Program {
	pushCall := func(n int64) *ast.MethodCall {
		return &ast.MethodCall{Receiver: localRef("y"), Name: "<<", Args: []ast.Node{intLit(n)}}
	}
	block := &ast.BlockLiteral{
		Params: []ast.Param{{Kind: ast.ParamRequired, Name: "y"}},
		Body: []ast.Node{
			pushCall(100),
			pushCall(200),
			pushCall(300),
		},
	}
	newEnum := &ast.MethodCall{Receiver: &ast.ConstRef{Name: "Enumerator"}, Name: "new", Block: block}
	nextCall := func(recv ast.Node) *ast.MethodCall {
		return &ast.MethodCall{Receiver: recv, Name: "next"}
	}
	return prog(
		&ast.VarAssign{Kind: ast.VarLocal, Name: "e", Value: newEnum},
		&ast.ArrayLiteral{Elements: []ast.Node{
			nextCall(localRef("e")),
			nextCall(localRef("e")),
			nextCall(localRef("e")),
		}},
	)
}
