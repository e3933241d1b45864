/*
 * HPDisk - Console to core messages.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package master

// Request kinds sent to core.
type Msg int

const (
	Attach       Msg = iota // Load image file, Flag is read only.
	Detach                  // Remove image regardless of lock.
	Eject                   // Operator removal of media.
	SetOnline               // Put unit online.
	SetOffline              // Take unit offline.
	SetReadOnly             // Write protect media.
	SetReadWrite            // Write enable media.
	Show                    // Describe devices, NoDev for all.
	Status                  // Report fault record of unit.
	Inject                  // Latch condition named by Name.
	Reset                   // Power on reset of device, NoDev for all.
	Format                  // Fill media, Fill is value.
	Load                    // Insert removable media.
)

var msgNames = map[Msg]string{
	Attach:       "attach",
	Detach:       "detach",
	Eject:        "eject",
	SetOnline:    "online",
	SetOffline:   "offline",
	SetReadOnly:  "ro",
	SetReadWrite: "rw",
	Show:         "show",
	Status:       "status",
	Inject:       "fault",
	Reset:        "reset",
	Format:       "format",
	Load:         "load",
}

func (m Msg) String() string {
	if n, ok := msgNames[m]; ok {
		return n
	}
	return "unknown"
}

// Answer to a request.
type Result struct {
	Text string // Text to display.
	Err  error
}

// Request to core, handled between bus transactions.
type Packet struct {
	Msg    Msg
	DevNum uint16      // Address and unit, see device.DevNum.
	Name   string      // File name or condition.
	Flag   bool        // Read only on attach.
	Fill   byte        // Format fill byte.
	Reply  chan Result // Where answer goes, may be nil.
}

// Build a packet with reply channel.
func NewPacket(msg Msg, devNum uint16) Packet {
	return Packet{Msg: msg, DevNum: devNum, Reply: make(chan Result, 1)}
}
