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

package errors_test

import (
	"fmt"
	"testing"

	"github.com/vblankline/gba-core/errors"
)

const testPattern = "quicksave: %s"
const otherPattern = "quicksave: region overflow: %s"

func TestDuplicateCollapse(t *testing.T) {
	e := errors.Errorf(testPattern, "bad magic")
	if e.Error() != "quicksave: bad magic" {
		t.Fatalf("got %q", e.Error())
	}

	wrapped := errors.Errorf(testPattern, e)
	if wrapped.Error() != "quicksave: bad magic" {
		t.Fatalf("duplicate clause not collapsed: %q", wrapped.Error())
	}
}

func TestIsAndHas(t *testing.T) {
	e := errors.Errorf(testPattern, "bad magic")
	if !errors.Is(e, testPattern) {
		t.Fatal("expected Is to match")
	}
	if errors.Has(e, otherPattern) {
		t.Fatal("unexpected Has match")
	}

	f := errors.Errorf(otherPattern, e)
	if errors.Is(f, testPattern) {
		t.Fatal("Is should not match a wrapped pattern")
	}
	if !errors.Has(f, testPattern) {
		t.Fatal("Has should find the wrapped pattern")
	}
}

func TestKind(t *testing.T) {
	e := errors.KindErrorf(errors.LoadMismatch, "quicksave: rom code mismatch")
	if errors.KindOf(e) != errors.LoadMismatch {
		t.Fatalf("got kind %v", errors.KindOf(e))
	}

	plain := fmt.Errorf("not curated")
	if errors.IsAny(plain) {
		t.Fatal("plain error should not be curated")
	}
	if errors.KindOf(plain) != errors.Internal {
		t.Fatalf("plain error should default to Internal kind, got %v", errors.KindOf(plain))
	}
}
