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

package memorymap_test

import (
	"testing"

	"github.com/vblankline/gba-core/hardware/memory/memorymap"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		addr uint32
		want memorymap.Region
	}{
		{0x00000000, memorymap.BIOS},
		{0x020000C8, memorymap.EWRAM},
		{0x03007FF0, memorymap.IWRAM},
		{0x040000C4, memorymap.IO},
		{0x05000000, memorymap.PALRAM},
		{0x06010000, memorymap.VRAM},
		{0x07000000, memorymap.OAM},
		{0x08000000, memorymap.Cart0},
		{0x09FFFFFF, memorymap.Cart0},
		{0x0A000000, memorymap.Cart1},
		{0x0C000000, memorymap.Cart2},
		{0x0E000000, memorymap.SRAM},
		{0x0F000000, memorymap.SRAM},
		{0x01000000, memorymap.Invalid},
		{0xF0000000, memorymap.Invalid},
	}

	for _, c := range cases {
		if got := memorymap.Decode(c.addr); got != c.want {
			t.Errorf("Decode(%#08x) = %v, want %v", c.addr, got, c.want)
		}
	}
}

func TestCartPage(t *testing.T) {
	if memorymap.Cart0.CartPage() != 0 || !memorymap.Cart0.IsCart() {
		t.Fatal("Cart0 page mismatch")
	}
	if memorymap.Cart1.CartPage() != 1 {
		t.Fatal("Cart1 page mismatch")
	}
	if memorymap.Cart2.CartPage() != 2 {
		t.Fatal("Cart2 page mismatch")
	}
	if memorymap.EWRAM.IsCart() {
		t.Fatal("EWRAM must not be a cart region")
	}
}

func TestSummaryCoversAllSlots(t *testing.T) {
	s := memorymap.Summary()
	if len(s) == 0 {
		t.Fatal("expected non-empty summary")
	}
}
