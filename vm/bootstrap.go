package vm

import "github.com/embervm/embervm/classes"

// Bootstrap defines the core class hierarchy every running VM needs
// before any user bytecode executes: the handful of classes the
// dispatch loop itself consults by name (to classify an immediate
// value, to build a rescue-matchable exception, to give every object
// an `upper` chain ending somewhere). Grounded on spec.md §6's surface
// exception hierarchy and §3.3's "every class has an upper pointer,
// terminating at BasicObject (nil upper)".
func Bootstrap(reg *classes.Registry) {
	basicObject := reg.Define("BasicObject", nil, 0)
	object := reg.Define("Object", basicObject, 0)
	reg.Define("Module", object, 0)
	reg.Define("Class", object, 0)

	kernel := reg.Define("Kernel", nil, classes.FlagModule)
	object.IncludeModule(kernel)

	reg.Define("NilClass", object, 0)
	reg.Define("TrueClass", object, 0)
	reg.Define("FalseClass", object, 0)

	comparable := reg.Define("Comparable", nil, classes.FlagModule)
	enumerable := reg.Define("Enumerable", nil, classes.FlagModule)

	numeric := reg.Define("Numeric", object, 0)
	numeric.IncludeModule(comparable)
	reg.Define("Integer", numeric, 0)
	reg.Define("Float", numeric, 0)

	str := reg.Define("String", object, 0)
	str.IncludeModule(comparable)
	reg.Define("Symbol", object, 0)

	array := reg.Define("Array", object, 0)
	array.IncludeModule(enumerable)
	hash := reg.Define("Hash", object, 0)
	hash.IncludeModule(enumerable)
	reg.Define("Range", object, 0).IncludeModule(enumerable)

	reg.Define("Proc", object, 0)
	reg.Define("Method", object, 0)
	reg.Define("UnboundMethod", object, 0)
	reg.Define("Binding", object, 0)
	reg.Define("Fiber", object, 0)
	reg.Define("Enumerator", object, 0).IncludeModule(enumerable)

	exception := reg.Define("Exception", object, 0)
	standardError := reg.Define("StandardError", exception, 0)
	reg.Define("ArgumentError", standardError, 0)
	reg.Define("TypeError", standardError, 0)
	nameError := reg.Define("NameError", standardError, 0)
	reg.Define("NoMethodError", nameError, 0)
	reg.Define("RuntimeError", standardError, 0)
	reg.Define("ZeroDivisionError", standardError, 0)
	reg.Define("RangeError", standardError, 0)
	indexError := reg.Define("IndexError", standardError, 0)
	reg.Define("StopIteration", indexError, 0)
	reg.Define("FiberError", standardError, 0)
	reg.Define("LocalJumpError", standardError, 0)
	reg.Define("LoadError", standardError, 0)
	reg.Define("SystemStackError", exception, 0)

	reg.SetCurrent(object)
}
