package main

import (
	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/compiler"
	"github.com/embervm/embervm/internal/config"
	"github.com/embervm/embervm/internal/elog"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/symtab"
	"github.com/embervm/embervm/values"
	vmpkg "github.com/embervm/embervm/vm"
)

// env is one fresh, independently bootstrapped compiler+VM pairing.
// Every scenario gets its own so that one demo's `class Counter` can't
// collide with another's.
type env struct {
	vm  *vmpkg.VM
	log *elog.Logger
}

func newEnv(cfg config.Config, log *elog.Logger) *env {
	syms := symtab.New()
	methodsRepo := methods.NewRepository()
	v := vmpkg.New(methodsRepo, syms)
	v.Heap.GCThreshold = cfg.GCThreshold
	v.SetMaxCallDepth(cfg.MaxCallDepth)
	v.SetFiberStackDepth(cfg.FiberStackDepth)
	return &env{vm: v, log: log}
}

// run compiles and executes prog in a scratch compiler that shares the
// env's method repository and symbol table (compiler.New's "method/
// class/constant ids stay consistent with the VM" contract), against
// a throwaway classes.Registry (the compiler's own Classes field is
// only consulted for enclosing-class name tracking, not cross-checked
// against the VM's bootstrapped registry).
func (e *env) run(prog *ast.Program, name string) (values.Value, error) {
	c := compiler.New(e.vm.Methods, classes.NewRegistry(), e.vm.Symbols)
	fn, err := c.CompileProgram(prog, name)
	if err != nil {
		return values.Value(0), err
	}
	e.log.Debug("compiled", elog.F("bytes", len(fn.Code)))
	f := vmpkg.NewFrame(fn, values.Nil(), nil, values.Nil())
	res, rerr := e.vm.Run(f)
	if rerr != nil {
		return values.Value(0), rerr
	}
	return res, nil
}
