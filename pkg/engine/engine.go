// Package engine is Quartz's embedder-facing surface: everything a
// host needs to evaluate scripts, compile and re-run bytecode, and
// load ES module graphs sits behind the Context type here, the same
// way esbuild's pkg/api wraps its internal packages behind Build and
// Transform.
//
// Example usage:
//
//	package main
//
//	import (
//	    "fmt"
//
//	    "github.com/quartzjs/quartz/pkg/engine"
//	)
//
//	func main() {
//	    ctx, err := engine.New(engine.Options{})
//	    if err != nil {
//	        panic(err)
//	    }
//	    result, err := ctx.Eval(`1 + 2`)
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(result)
//	}
package engine

import (
	"context"
	"fmt"

	"github.com/go-kit/log"

	"github.com/quartzjs/quartz/internal/builtins"
	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/diag"
	"github.com/quartzjs/quartz/internal/jobqueue"
	"github.com/quartzjs/quartz/internal/module"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/parser"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// Options configures a Context. The zero value is a complete,
// sensible default (a fresh realm, a FIFO SimpleQueue, a loader
// rooted at the working directory, no logging) - the Go analogue of
// §6's parameterless Context::new(), with every field present to
// reach Context::with(realm, job_queue, module_loader, host_hooks)
// once an embedder needs to override one of them. Passed by value
// rather than via functional options, matching the teacher's
// BuildOptions/TransformOptions idiom.
type Options struct {
	// Realm overrides the realm a Context runs against. Left nil, New
	// builds and bootstraps a fresh one.
	Realm *realm.Realm

	// JobQueue overrides the microtask queue Promise reactions enqueue
	// into. Left nil, New installs a SimpleQueue traced through Logger.
	// Pass jobqueue.IdleQueue{} to disable promise scheduling entirely.
	JobQueue jobqueue.Queue

	// Loader resolves and fetches import specifiers for LoadModule.
	// Left nil, New installs a SimpleModuleLoader rooted at ".".
	Loader module.Loader

	// Logger receives leveled, key/value operational traces from the
	// default job queue: New passes it to NewSimpleQueue only, and the
	// VM and the module linker do not log. Left nil, tracing is silent.
	Logger log.Logger

	// EnsureCanCompileStrings gates every Eval/Compile call, the way a
	// host enforcing a Content-Security-Policy-style restriction on
	// dynamic code would (§6 "ensure_can_compile_strings"). Returning
	// a non-nil error aborts compilation before a single token is
	// lexed. Left nil, compilation is always permitted.
	EnsureCanCompileStrings func(source string) error

	// MaxBufferSize is kept with the Context's options (§6
	// "max_buffer_size") but nothing reads it: no ArrayBuffer or
	// SharedArrayBuffer allocation is capped, whatever its value (see
	// DESIGN.md).
	MaxBufferSize int
}

// Context is one embeddable engine instance: a realm, a VM bound to
// it, a job queue draining that VM's Promise reactions, and a module
// graph for LoadModule. It corresponds to spec §6's Context.
type Context struct {
	Realm *realm.Realm
	VM    *vm.VM
	Queue jobqueue.Queue

	loader module.Loader
	graph  *module.Graph
	opts   Options
}

// New builds a Context. A zero-value Options matches Context::new();
// setting individual fields reaches Context::with's per-component
// overrides without needing a separate constructor.
func New(opts Options) (*Context, error) {
	r := opts.Realm
	if r == nil {
		r = realm.New()
		if err := builtins.Bootstrap(r); err != nil {
			return nil, fmt.Errorf("engine: bootstrapping realm: %w", err)
		}
	}

	queue := opts.JobQueue
	if queue == nil {
		queue = jobqueue.NewSimpleQueue(opts.Logger)
	}

	loader := opts.Loader
	if loader == nil {
		loader = module.NewSimpleModuleLoader(".")
	}

	vmc := vm.New(r)
	vmc.EnqueueJob = func(job vm.Microtask) {
		queue.EnqueueJob(jobqueue.Job{Realm: r, Run: func() *object.Exception { return job() }})
	}

	return &Context{
		Realm:  r,
		VM:     vmc,
		Queue:  queue,
		loader: loader,
		graph:  module.NewGraph(loader, r),
		opts:   opts,
	}, nil
}

// Compile parses source as a Script and lowers it to a CodeBlock
// without executing it, matching §6's context.compile.
func (c *Context) Compile(source string) (*compiler.CodeBlock, error) {
	if hook := c.opts.EnsureCanCompileStrings; hook != nil {
		if err := hook(source); err != nil {
			return nil, err
		}
	}
	p := parser.New([]byte(source), diag.NewLog())
	prog, err := p.ParseScript()
	if err != nil {
		return nil, fmt.Errorf("engine: parsing script: %w", err)
	}
	cb, err := compiler.CompileScript(prog, "<eval>")
	if err != nil {
		return nil, fmt.Errorf("engine: compiling script: %w", err)
	}
	return cb, nil
}

// Execute runs an already-compiled CodeBlock against the Context's
// realm and drains the job queue before returning, matching §6's
// context.execute.
func (c *Context) Execute(cb *compiler.CodeBlock) (value.Value, error) {
	result, exc := c.VM.RunScript(cb)
	if exc != nil {
		return value.Undefined, c.wrapException(exc)
	}
	if exc := c.Queue.RunJobs(); exc != nil {
		return value.Undefined, c.wrapException(exc)
	}
	return result, nil
}

// Eval compiles and runs source in one step, matching §6's
// context.eval.
func (c *Context) Eval(source string) (value.Value, error) {
	cb, err := c.Compile(source)
	if err != nil {
		return value.Undefined, err
	}
	return c.Execute(cb)
}

// LoadModule fetches specifier and every module it transitively
// imports through the Context's Loader, links the resulting graph,
// evaluates it depth-first, and drains the job queue, matching §6's
// Module::parse/.load/.link/.evaluate sequence collapsed into one
// call for the common case of running one entry module to completion.
func (c *Context) LoadModule(ctx context.Context, specifier string) (*module.Module, error) {
	m, err := c.graph.Load(ctx, specifier)
	if err != nil {
		return nil, fmt.Errorf("engine: loading module %q: %w", specifier, err)
	}
	if err := module.Link(m); err != nil {
		return nil, fmt.Errorf("engine: linking module %q: %w", specifier, err)
	}
	if _, exc := module.Evaluate(c.VM, m); exc != nil {
		return m, c.wrapException(exc)
	}
	if exc := c.Queue.RunJobs(); exc != nil {
		return m, c.wrapException(exc)
	}
	return m, nil
}

// Namespace returns a linked-and-evaluated module's namespace object
// (§6 "module.namespace()"), the binding surface a host reads exported
// values back out through after LoadModule returns.
func (c *Context) Namespace(mod *module.Module) value.Value {
	if mod.Namespace == nil {
		return value.Undefined
	}
	return value.FromObject(mod.Namespace)
}
