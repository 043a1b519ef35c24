// This file is part of tascore.
//
// tascore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// tascore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with tascore.  If not, see <https://www.gnu.org/licenses/>.

// Package errors implements curated errors: every error the harness raises
// is built from a predefined format string (messages.go) via Errorf, so
// call sites never invent message text and the controller-facing output
// stays uniform. Externally a curated error is a plain error.
//
// The Error() implementation normalises the causal chain so that it never
// contains duplicate adjacent parts. This alleviates the usual question of
// when to wrap: a function can always wrap what it propagates without the
// final message stuttering. For example, a frame boundary step wrapping an
// error that a lower step already raised with the same message:
//
//	if err := step(); err != nil {
//		return errors.Errorf(errors.BoundaryProtocolError, err)
//	}
//
// where step's error was itself built from BoundaryProtocolError, prints a
// single "frame boundary error:" prefix rather than repeating it once per
// wrapping level. Only adjacent parts separated by ": " are compared: a
// wrapped error embedded in parentheses, as SnapshotTruncated does, keeps
// both prefixes.
//
// Callers that need to branch on what went wrong switch on CategoryOf
// (categories.go) or compare heads with Is/Has, never on the rendered
// message text.
package errors
