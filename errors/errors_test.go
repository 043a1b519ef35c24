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

package errors_test

import (
	"fmt"
	"testing"

	"github.com/jsle-tas/tascore/errors"
	"github.com/jsle-tas/tascore/test"
)

const testError = "test error: %s"
const testErrorB = "test error B: %s"

func TestDuplicateErrors(t *testing.T) {
	e := errors.Errorf(testError, "foo")
	test.Equate(t, e.Error(), "test error: foo")

	// wrapping an error in the same message it already carries must not
	// repeat the message part
	f := errors.Errorf(testError, e)
	test.Equate(t, f.Error(), "test error: foo")
}

func TestIs(t *testing.T) {
	e := errors.Errorf(testError, "foo")
	test.ExpectedSuccess(t, errors.Is(e, testError))

	// testErrorB appears nowhere in e's chain
	test.ExpectedFailure(t, errors.Has(e, testErrorB))

	// Is only considers the outermost message; Has searches the chain
	f := errors.Errorf(testErrorB, e)
	test.ExpectedFailure(t, errors.Is(f, testError))
	test.ExpectedSuccess(t, errors.Is(f, testErrorB))
	test.ExpectedSuccess(t, errors.Has(f, testError))
	test.ExpectedSuccess(t, errors.Has(f, testErrorB))

	test.ExpectedSuccess(t, errors.IsAny(e))
	test.ExpectedSuccess(t, errors.IsAny(f))
}

func TestPlainErrors(t *testing.T) {
	// errors that haven't been curated by this package
	e := fmt.Errorf("plain test error")
	test.ExpectedFailure(t, errors.IsAny(e))

	const testError = "test error: %s"
	test.ExpectedFailure(t, errors.Has(e, testError))
}

func TestCategoryOf(t *testing.T) {
	e := errors.Errorf(errors.SnapshotBadMagic, []byte("XXXXXXXX"))
	test.ExpectEquality(t, errors.CategoryOf(e), errors.KindSnapshotUnreadable)

	// a curated error wrapped in another keeps the outer error's category
	f := errors.Errorf(errors.LinkWriteFailed, e)
	test.ExpectEquality(t, errors.CategoryOf(f), errors.KindLinkFailed)

	// plain errors and nil have no category
	test.ExpectEquality(t, errors.CategoryOf(fmt.Errorf("plain")), errors.KindUnknown)
	test.ExpectEquality(t, errors.CategoryOf(nil), errors.KindUnknown)
}
