package vm

import (
	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/values"
)

// CallSiteCache is the per-call-site inline cache of spec.md §4.6:
// the last (receiver class, resolved method) pair seen at this send
// site, valid only while Version matches methods.Repository's
// method-table version counter.
type CallSiteCache struct {
	ClassID  uint64
	NameID   uint32
	MethodID uint32
	Version  uint64
	Filled   bool
}

// Probe reports whether the cache line is still valid for a receiver
// of class classID, given the call name resolved at compile time.
func (c *CallSiteCache) Probe(classID uint64, nameID uint32, version uint64) (methodID uint32, hit bool) {
	if c.Filled && c.Version == version && c.ClassID == classID && c.NameID == nameID {
		return c.MethodID, true
	}
	return 0, false
}

// Fill records a resolution after a cache miss walked the method
// table (spec.md §4.6 "miss path").
func (c *CallSiteCache) Fill(classID uint64, nameID uint32, methodID uint32, version uint64) {
	c.ClassID, c.NameID, c.MethodID, c.Version, c.Filled = classID, nameID, methodID, version, true
}

// ConstantCache is the second cache family of spec.md §4.6: one slot
// per get_const call site, valid only while Version matches the
// methods.Repository's constant-cache version counter.
type ConstantCache struct {
	Value   values.Value
	Version uint64
	Filled  bool
}

func (c *ConstantCache) Probe(version uint64) (values.Value, bool) {
	if c.Filled && c.Version == version {
		return c.Value, true
	}
	return values.Value(0), false
}

func (c *ConstantCache) Fill(val values.Value, version uint64) {
	c.Value, c.Version, c.Filled = val, version, true
}

// functionCaches is one compiled function's full set of inline-cache
// lines, sized once from its SendCacheSlots/ConstCacheSlots counts and
// then reused by every frame ever built from that *bytecode.Function
// (spec.md §4.6: the cache line lives with the call site, not with any
// one invocation of it).
type functionCaches struct {
	send []CallSiteCache
	cnst []ConstantCache
}

// cachesFor returns fn's cache table, allocating it on first use. The
// table is keyed by the Function's own identity, so a closure and its
// enclosing method never share cache lines despite sharing bytecode
// only when they're literally the same *bytecode.Function (they never
// are: compiler.New compiles each def/block body into its own unit).
func (v *VM) cachesFor(fn *bytecode.Function) *functionCaches {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	fc, ok := v.caches[fn]
	if !ok {
		fc = &functionCaches{
			send: make([]CallSiteCache, fn.SendCacheSlots),
			cnst: make([]ConstantCache, fn.ConstCacheSlots),
		}
		v.caches[fn] = fc
	}
	return fc
}

// getConstCached serves a get_const instruction through its call
// site's ConstantCache, falling back to lookupConstant's class-chain
// walk on a miss and filling the cache with the result (spec.md §4.6).
// slot indexes ConstCacheSlots; slots beyond what the function
// declared (impossible from this package's own compiler, but cheap to
// guard against) skip the cache entirely.
func (v *VM) getConstCached(f *Frame, nameID uint32, slot uint32) (values.Value, bool) {
	fc := v.cachesFor(f.Fn)
	if int(slot) >= len(fc.cnst) {
		return v.lookupConstant(f, nameID)
	}
	line := &fc.cnst[slot]
	version := v.Methods.ConstantCacheVersion()
	if val, hit := line.Probe(version); hit {
		return val, true
	}
	val, found := v.lookupConstant(f, nameID)
	if found {
		line.Fill(val, version)
	}
	return val, found
}
