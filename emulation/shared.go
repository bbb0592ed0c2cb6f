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

package emulation

import (
	"sync"
	"sync/atomic"
)

const (
	FramebufferWidth  = 240
	FramebufferHeight = 160

	// bytesPerPixel matches the GBA's native 15-bit BGR555 format, stored
	// two bytes per pixel, little-endian.
	bytesPerPixel = 2

	FramebufferSize = FramebufferWidth * FramebufferHeight * bytesPerPixel
)

// sharedData is the only state touched from both the core goroutine and the
// host: a mutex-guarded framebuffer with a lock-free version counter for
// polling, an atomic frame counter, and the backup-storage buffer behind a
// dirty flag the host polls to know when a save is worth persisting.
//
// The core goroutine is the exclusive writer of every field here; the host
// only reads.
type sharedData struct {
	fbMu        sync.Mutex
	framebuffer [FramebufferSize]byte
	fbVersion   atomic.Uint32

	frameCounter atomic.Uint64

	backupMu     sync.Mutex
	backupBuffer []byte
	backupDirty  atomic.Bool
}

// Framebuffer copies the current framebuffer into dst, which must be at
// least FramebufferSize bytes, and returns the version it copied. Callers
// comparing successive versions can skip the copy when nothing changed.
func (sd *sharedData) Framebuffer(dst []byte) uint32 {
	sd.fbMu.Lock()
	v := sd.fbVersion.Load()
	copy(dst, sd.framebuffer[:])
	sd.fbMu.Unlock()
	return v
}

// FramebufferVersion loads the framebuffer version with acquire semantics,
// safe to call without holding any lock.
func (sd *sharedData) FramebufferVersion() uint32 {
	return sd.fbVersion.Load()
}

// FrameCount returns the number of frames completed so far.
func (sd *sharedData) FrameCount() uint64 {
	return sd.frameCounter.Load()
}

// writeScanline stores one scanline's worth of pixels into the shared
// framebuffer. Called only from the core goroutine.
func (sd *sharedData) writeScanline(line int, pixels []byte) {
	sd.fbMu.Lock()
	copy(sd.framebuffer[line*FramebufferWidth*bytesPerPixel:], pixels)
	sd.fbMu.Unlock()
}

// completeFrame bumps the frame counter then the framebuffer version, in
// that order, so a host observing a new version via FramebufferVersion is
// guaranteed the frame counter it last saw is no longer in flight.
func (sd *sharedData) completeFrame() {
	sd.frameCounter.Add(1)
	sd.fbVersion.Add(1)
}

// BackupDirty reports whether the backup-storage buffer has changed since
// the last call to Backup (which clears the flag), without taking the
// backup mutex.
func (sd *sharedData) BackupDirty() bool {
	return sd.backupDirty.Load()
}

// Backup returns a copy of the current backup-storage contents and clears
// the dirty flag, so the host can persist it to whatever medium it likes
// (the core never touches a filesystem itself).
func (sd *sharedData) Backup() []byte {
	sd.backupMu.Lock()
	defer sd.backupMu.Unlock()
	sd.backupDirty.Store(false)
	out := make([]byte, len(sd.backupBuffer))
	copy(out, sd.backupBuffer)
	return out
}

// markBackupDirty replaces the shared backup-storage snapshot and sets the
// dirty flag. Called only from the core goroutine, typically after a
// backup-chip write.
func (sd *sharedData) markBackupDirty(raw []byte) {
	sd.backupMu.Lock()
	if cap(sd.backupBuffer) < len(raw) {
		sd.backupBuffer = make([]byte, len(raw))
	}
	sd.backupBuffer = sd.backupBuffer[:len(raw)]
	copy(sd.backupBuffer, raw)
	sd.backupMu.Unlock()
	sd.backupDirty.Store(true)
}

// clearBackup empties the shared backup-storage snapshot and marks it not
// dirty, without going through the dirty-chip poll in onHBlankEnd. Used when
// a quicksave is loaded into a cartridge with no backup chip, so a stale
// buffer from a previously running game can't be mistaken for this one's.
func (sd *sharedData) clearBackup() {
	sd.backupMu.Lock()
	sd.backupBuffer = sd.backupBuffer[:0]
	sd.backupMu.Unlock()
	sd.backupDirty.Store(false)
}
