// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs the ordered, fail-fast sequence of installation
// steps.
//
// Steps execute strictly in declared order, each exactly once; the first
// fatal failure aborts the run. Terminal output stays limited to one status
// line per step — everything a step's subprocesses print goes to the log
// sink, and failures point the operator at it. A verification failure is
// the one non-fatal case: it is reported as a warning and the run still
// counts as a success.
package pipeline
