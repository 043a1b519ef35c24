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

package errors

import (
	"fmt"
	"strings"
)

// Values holds the format arguments given to Errorf. A nested curated
// error among the values is what forms the causal chain that Error()
// normalises and Has() searches.
type Values []interface{}

// curated is an error raised from one of the predefined format strings in
// messages.go. Call sites hand Errorf the constant and its arguments and
// never deal with message formatting themselves.
type curated struct {
	message string
	values  Values
}

// Errorf creates a curated error from one of the predefined message
// constants and its arguments.
func Errorf(message string, values ...interface{}) error {
	return curated{
		message: message,
		values:  values,
	}
}

// Error implements the error interface. The rendered message is
// normalised: a part identical to the part that follows it is dropped, so
// wrapping an error in the same message it already carries doesn't
// stutter.
func (er curated) Error() string {
	s := fmt.Errorf(er.message, er.values...).Error()

	p := strings.Split(s, ": ")
	out := p[:1]
	for _, part := range p[1:] {
		if part != out[len(out)-1] {
			out = append(out, part)
		}
	}

	return strings.Join(out, ": ")
}

// Head returns the message constant err was raised with, usable in a
// switch the way Is is usable in a condition. For a plain error it falls
// back to the Error() text.
func Head(err error) string {
	if er, ok := err.(curated); ok {
		return er.message
	}
	return err.Error()
}

// IsAny reports whether err originated from this package's Errorf.
func IsAny(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(curated); ok {
		return true
	}
	return false
}

// Is reports whether err was raised with head as its message constant.
// Only the outermost message is considered; use Has to search the chain.
func Is(err error, head string) bool {
	if err == nil {
		return false
	}

	if er, ok := err.(curated); ok {
		return er.message == head
	}
	return false
}

// Has reports whether msg was the message constant anywhere in err's
// chain of wrapped curated errors, outermost first.
func Has(err error, msg string) bool {
	if err == nil {
		return false
	}

	if !IsAny(err) {
		return false
	}

	if Is(err, msg) {
		return true
	}

	for i := range err.(curated).values {
		if e, ok := err.(curated).values[i].(curated); ok {
			if Has(e, msg) {
				return true
			}
		}
	}

	return false
}
