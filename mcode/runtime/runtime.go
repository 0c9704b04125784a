/*
 * mule - Runtime glue: owns one arena/heap/module-table/interpreter
 * instance and wires it to a terminal, host files and a wall clock.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package runtime is the component glue corresponding to emu/core.core.go:
// it owns one arena, heap, module table and interpreter, and wires the
// loader through to the interpreter's terminal, host-file and clock
// dependencies. Unlike core's goroutine-driven CPU, Run executes a single
// program straight through on the caller's goroutine: §5 of the spec rules
// out preemption and concurrent instruction issue, so there is no
// asynchronous boundary here to model.
package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rcornwell/mule/mcode/arena"
	"github.com/rcornwell/mule/mcode/heap"
	"github.com/rcornwell/mule/mcode/hostfile"
	"github.com/rcornwell/mule/mcode/interp"
	"github.com/rcornwell/mule/mcode/loader"
	"github.com/rcornwell/mule/mcode/terminal"
)

// Runtime bundles one complete execution context: the arena, heap, module
// table, file table and the interpreter bound to all four plus a terminal.
type Runtime struct {
	Ar      *arena.State
	Heap    *heap.Heap
	Loader  *loader.Loader
	Files   *hostfile.Table
	Machine *interp.Machine

	log *slog.Logger
}

// New builds a Runtime over a fresh arena, ready to load and run object
// files found on includePaths. term may be terminal.Null{} for a
// headless run (e.g. cmd/mcodedump never constructs a Runtime at all,
// but tests commonly want a silent terminal).
func New(term terminal.Terminal, includePaths []string, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	ar := &arena.State{}
	ar.Reset()
	ld := loader.New(ar, includePaths)
	h := heap.New(ar)
	files := hostfile.New()

	rt := &Runtime{
		Ar:     ar,
		Heap:   h,
		Loader: ld,
		Files:  files,
		log:    log,
	}
	rt.Machine = interp.New(ar, h, ld, term, files, wallClock, log)
	rt.Machine.LoadAndRun = rt.loadAndRun
	return rt
}

func wallClock() (year, month, day, hour, minute int) {
	now := time.Now()
	return now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute()
}

// loadAndRun implements interp.LoadAndRunFunc for SVC 1: load name as a
// nested program, run its init procedure to completion, then tear down
// everything it acquired (data frames, heap blocks, open files) whether
// it returned normally or trapped. A trapped nested program is reported
// to the caller as a load/run failure rather than propagated, matching
// the spec's SVC 1 status-word convention (the caller sees only success
// or failure, never the nested trap number).
func (rt *Runtime) loadAndRun(m *interp.Machine, name string) error {
	mark := len(rt.Loader.Modules)

	// The nested program's data frames must not land inside the caller's
	// live procedure stack, which occupies [DataTop, S): raise DataTop to
	// S for the nested load so frames (and the nested stack above them)
	// sit clear of the caller's, and put it back once everything the
	// nested program loaded has been released.
	savedTop := rt.Ar.DataTop
	rt.Ar.DataTop = rt.Ar.S

	idx, err := rt.Loader.LoadInitFile(name, "LIB")
	if err != nil {
		// A failed load can leave placeholder entries behind.
		rt.releaseFrom(mark)
		rt.Ar.DataTop = savedTop
		rt.log.Warn("nested load failed", "name", name, "error", err)
		return err
	}

	trap := m.Run(idx)
	rt.releaseFrom(mark)
	rt.Ar.DataTop = savedTop

	if trap != nil {
		rt.log.Warn("nested program trapped", "name", name, "trap", trap.Num, "module", trap.Module, "pc", trap.PC)
		return fmt.Errorf("nested program %s: %w", name, trap)
	}
	return nil
}

// releaseFrom tears down every module at index >= mark: heap blocks and
// open host files first (transitively-imported modules land at higher
// indices and own resources under their own index once called into, since
// an external call switches the machine's current module), then the data
// frames and module table entries themselves.
func (rt *Runtime) releaseFrom(mark int) {
	top := len(rt.Loader.Modules)
	for i := mark; i < top; i++ {
		rt.Heap.FreeAll(uint16(i), 0xFFFF)
		rt.Files.CloseOwnedBy(uint16(i))
	}
	rt.Loader.UnloadFrom(mark)
}

// Run loads fn as the top-level program, runs its init procedure to
// completion, and releases everything it loaded and acquired, returning
// the process exit status a CLI front end should use: 0 on a normal
// return, 1 on any fatal error (a trap, or a program that could not be
// loaded at all).
func (rt *Runtime) Run(fn string) int {
	mark := len(rt.Loader.Modules)
	idx, err := rt.Loader.LoadInitFile(fn, "LIB")
	if err != nil {
		rt.releaseFrom(mark)
		rt.log.Error("load failed", "file", fn, "error", err)
		return 1
	}

	trap := rt.Machine.Run(idx)
	rt.releaseFrom(idx)
	if trap != nil {
		rt.log.Error("program trapped", "file", fn, "trap", trap.Num, "module", trap.Module, "pc", trap.PC)
		return 1
	}
	return 0
}

// Shutdown releases the terminal the Runtime was built with. Callers that
// passed terminal.Null{} or a test fake may skip this; it exists so
// cmd/mule can restore the host tty's cooked mode on exit and on SIGINT.
func (rt *Runtime) Shutdown(term terminal.Terminal) {
	term.Shutdown()
}
