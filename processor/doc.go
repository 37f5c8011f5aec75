// Package processor finds struct fields annotated with @savestate.SaveState
// and generates the store adapters that save them to, and restore them from,
// a savestate.Bundle.
//
// Annotations are written in doc comments:
//
//	type Widget struct {
//	    // @savestate.SaveState{DefaultValue: "3"}
//	    Count int
//	}
//
// # Pipeline
//
// A Config names the packages to process. Its Execute method loads and type
// checks them, then, one package at a time, scans every file for annotated
// declarations and hands them to each configured Processor through a
// Context. SaveStateProcessor is the processor that does the work:
//
//   - The Validator rejects declarations that cannot receive generated code:
//     blank fields, package-level variables, interface methods, fields of
//     types declared inside functions, and owners in platform or standard
//     library packages. Every violated rule is reported, not just the first.
//   - NewFieldBinding records what the generator needs to know about a
//     field. Fields typed by a type parameter are bound to its constraint.
//   - The Classifier decides how a field's type maps onto Bundle accessors.
//     A field of an unsupported type fails its whole owner.
//   - The TargetTable groups fields by owner, in the order owners are first
//     seen.
//   - The StoreAdapterGenerator renders one file per owner, which is written
//     through the OutputFactory.
//
// Diagnostics are collected by a Messager. Processing never stops at the
// first problem; Execute returns an error wrapping ErrProcessingFailed when
// any error was reported.
//
// # Processor Registration
//
// Additional processors can be registered with RegisterProcessor and run in
// the same pass. The savestategen command runs all registered processors.
package processor
