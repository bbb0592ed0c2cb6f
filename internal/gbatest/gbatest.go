// This file is part of gba-core.
//
// gba-core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// gba-core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with gba-core.  If not, see <https://www.gnu.org/licenses/>.

// Package gbatest holds a small set of test helpers in place of a
// general-purpose assertion library. Only this package's own tests call
// them; the other packages' tests use plain testing checks.
package gbatest

import (
	"reflect"
	"testing"
)

// Equate fails t if got and want are not equal, as judged by == for
// comparable values and reflect.DeepEqual otherwise.
func Equate(t *testing.T, got, want interface{}) {
	t.Helper()

	if got == nil || want == nil {
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		return
	}

	gv := reflect.ValueOf(got)
	wv := reflect.ValueOf(want)
	if gv.Comparable() && wv.Comparable() && gv.Type() == wv.Type() {
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		return
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// ExpectSuccess fails t if err is non-nil.
func ExpectSuccess(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ExpectFailure fails t if err is nil.
func ExpectFailure(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Error("expected an error, got nil")
	}
}
