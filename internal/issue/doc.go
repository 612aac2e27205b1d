// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines the error taxonomy for the install pipeline (precondition,
// resolution, dependency, build, verification) plus Markdown-formatted
// remediation guidance rendered with glamour, so a failed run tells the
// operator what broke, where the captured output lives, and what to try next.
package issue
