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

// Package test collects small helpers shared by every _test.go file in the
// module. None of it is specific to the harness; it exists so that test
// files read as assertions rather than as hand-rolled if-then-t.Errorf
// blocks.
package test

import (
	"math"
	"reflect"
	"testing"
)

// ExpectSuccess fails the test if value is a falsy bool or a non-nil error.
// Any other value is considered a success.
func ExpectSuccess(t *testing.T, value interface{}) {
	t.Helper()
	if ok, msg := success(value); !ok {
		t.Errorf("expected success: %s", msg)
	}
}

// DemandSuccess is like ExpectSuccess but stops the test immediately.
func DemandSuccess(t *testing.T, value interface{}) {
	t.Helper()
	if ok, msg := success(value); !ok {
		t.Fatalf("expected success: %s", msg)
	}
}

// ExpectFailure fails the test if value is a truthy bool or a nil error.
func ExpectFailure(t *testing.T, value interface{}) {
	t.Helper()
	if ok, msg := success(value); ok {
		t.Errorf("expected failure: %s", msg)
	}
}

// DemandFailure is like ExpectFailure but stops the test immediately.
func DemandFailure(t *testing.T, value interface{}) {
	t.Helper()
	if ok, msg := success(value); ok {
		t.Fatalf("expected failure: %s", msg)
	}
}

// ExpectedSuccess is an alias for ExpectSuccess, named to read naturally at
// call sites that are documenting an expectation rather than asserting one.
func ExpectedSuccess(t *testing.T, value interface{}) {
	t.Helper()
	ExpectSuccess(t, value)
}

// ExpectedFailure is an alias for ExpectFailure.
func ExpectedFailure(t *testing.T, value interface{}) {
	t.Helper()
	ExpectFailure(t, value)
}

// success interprets value the way ExpectSuccess/ExpectFailure do.
func success(value interface{}) (bool, string) {
	switch v := value.(type) {
	case nil:
		return true, "<nil>"
	case bool:
		return v, "false"
	case error:
		return false, v.Error()
	default:
		return true, ""
	}
}

// Equate reports whether got and want are deeply equal. It does not fail the
// test itself; it's used by callers that want to build their own assertion
// (eg. error-returning constructors) on top of equality.
func Equate(t *testing.T, got, want interface{}) bool {
	t.Helper()
	eq := reflect.DeepEqual(got, want)
	if !eq {
		t.Errorf("got %#v, wanted %#v", got, want)
	}
	return eq
}

// ExpectEquality fails the test unless got and want are deeply equal.
func ExpectEquality(t *testing.T, got, want interface{}) {
	t.Helper()
	Equate(t, got, want)
}

// DemandEquality is like ExpectEquality but stops the test immediately.
func DemandEquality(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, wanted %#v", got, want)
	}
}

// ExpectInequality fails the test if got and want are deeply equal.
func ExpectInequality(t *testing.T, got, want interface{}) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, did not want it to equal %#v", got, want)
	}
}

// numeric is the set of types ExpectApproximate accepts.
type numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ExpectApproximate fails the test unless got and want are within tolerance
// of one another. Useful for fps and other floating point comparisons
// where exact equality is the wrong question to ask.
func ExpectApproximate[N numeric](t *testing.T, got, want N, tolerance float64) {
	t.Helper()
	d := float64(got) - float64(want)
	if math.Abs(d) > tolerance {
		t.Errorf("got %v, wanted %v (tolerance %v)", got, want, tolerance)
	}
}
