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

// Package errors is a helper package for the plain Go language error type.
// Curated errors implement the error interface but remember the pattern they
// were created with, so callers can switch on error identity without string
// comparison.
//
// Curated errors are created with Errorf(). The Error() implementation
// normalises the message chain so that wrapping a curated error inside
// another curated error with the same leading clause does not repeat it:
//
//	e := errors.Errorf("bus: %v", errors.Errorf("bus: unmapped read"))
//	e.Error() == "bus: unmapped read"
package errors

import (
	"fmt"
	"strings"
)

// Kind identifies the broad category of a curated error.
type Kind int

const (
	// LoadMismatch: quicksave ROM size/code differs from the loaded ROM.
	LoadMismatch Kind = iota
	// LoadCorrupt: truncated chunk, bad region size, RLE overflow, missing
	// mandatory chunk, or unreadable legacy stream.
	LoadCorrupt
	// Internal marks a violated invariant. Callers that see this should
	// treat the emulation thread as no longer trustworthy.
	Internal
)

func (k Kind) String() string {
	switch k {
	case LoadMismatch:
		return "load-mismatch"
	case LoadCorrupt:
		return "load-corrupt"
	case Internal:
		return "internal-invariant"
	default:
		return "unknown"
	}
}

// curated is the concrete error type returned by Errorf.
type curated struct {
	kind    Kind
	pattern string
	values  []interface{}
}

// Errorf creates a new curated error of unspecified kind (LoadCorrupt by
// convention for quicksave, since it is the most common caller). Use KindErrorf
// when the kind matters to callers.
func Errorf(pattern string, values ...interface{}) error {
	return curated{kind: LoadCorrupt, pattern: pattern, values: values}
}

// KindErrorf creates a new curated error tagged with an explicit kind.
func KindErrorf(kind Kind, pattern string, values ...interface{}) error {
	return curated{kind: kind, pattern: pattern, values: values}
}

// Error returns the normalised error message, implementing the error
// interface. Normalisation removes duplicate adjacent message parts in the
// ": "-separated chain.
func (e curated) Error() string {
	s := fmt.Errorf(e.pattern, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// KindOf returns the Kind of a curated error, or Internal if err was not
// created by this package (a programmer error: unexpected plain errors are
// treated as the most severe kind).
func KindOf(err error) Kind {
	if e, ok := err.(curated); ok {
		return e.kind
	}
	return Internal
}

// IsAny reports whether err was created by this package.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err is a curated error created with the given pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	e, ok := err.(curated)
	return ok && e.pattern == pattern
}

// Has reports whether pattern occurs anywhere in err's wrap chain.
func Has(err error, pattern string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok && Has(e, pattern) {
			return true
		}
	}
	return false
}

// Head returns the leading pattern of a curated error, or err.Error() for a
// plain error.
func Head(err error) string {
	if e, ok := err.(curated); ok {
		return e.pattern
	}
	return err.Error()
}
