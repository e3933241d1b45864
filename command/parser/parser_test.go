/*
 * HPDisk - Console command parser tests.
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

package parser

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/master"
)

type testSender struct {
	packets []master.Packet
	result  master.Result
}

func (s *testSender) Send(packet master.Packet) master.Result {
	s.packets = append(s.packets, packet)
	return s.result
}

func run(t *testing.T, line string) (*testSender, bool, error) {
	t.Helper()
	s := &testSender{result: master.Result{Text: "ok"}}
	var out bytes.Buffer
	Output = &out
	quit, err := ProcessCommand(line, s)
	if err == nil && out.String() != strings.Repeat("ok\n", len(s.packets)) {
		t.Errorf("%s output got: %q", line, out.String())
	}
	return s, quit, err
}

// Run command expecting one packet.
func runOne(t *testing.T, line string) master.Packet {
	t.Helper()
	s, _, err := run(t, line)
	if err != nil {
		t.Errorf("%s error: %v", line, err)
		return master.Packet{}
	}
	if len(s.packets) != 1 {
		t.Errorf("%s sent %d packets", line, len(s.packets))
		return master.Packet{}
	}
	return s.packets[0]
}

func TestAttach(t *testing.T) {
	p := runOne(t, "attach 2.1 hd0.lif")
	if p.Msg != master.Attach || p.DevNum != device.DevNum(2, 1) || p.Name != "hd0.lif" || p.Flag {
		t.Errorf("attach got: %+v", p)
	}

	p = runOne(t, `at 3 "my disk.img" ro`)
	if p.DevNum != device.DevNum(3, 0) || p.Name != "my disk.img" || !p.Flag {
		t.Errorf("attach quoted got: %+v", p)
	}

	p = runOne(t, "attach 4.0 file=disk ro")
	if p.Name != "disk" || !p.Flag {
		t.Errorf("attach file= got: %+v", p)
	}

	p = runOne(t, `attach 4.0 "a""b"`)
	if p.Name != `a"b` {
		t.Errorf("attach double quote got: %q", p.Name)
	}

	for _, line := range []string{"attach 2.0", "attach", "attach x hd0", "attach 2.0 \"open", "attach 31 hd0", "attach 2.15 hd0"} {
		if _, _, err := run(t, line); err == nil {
			t.Errorf("%s did not fail", line)
		}
	}
}

func TestUnitCommands(t *testing.T) {
	tests := []struct {
		line string
		msg  master.Msg
	}{
		{"detach 2.0", master.Detach},
		{"eject 2", master.Eject},
		{"status 2.0", master.Status},
		{"st 2.0 # comment", master.Status},
	}
	for _, test := range tests {
		p := runOne(t, test.line)
		if p.Msg != test.msg || p.DevNum != device.DevNum(2, 0) {
			t.Errorf("%s got: %+v", test.line, p)
		}
	}

	if _, _, err := run(t, "detach 2.0 extra"); err == nil {
		t.Errorf("detach with extra text did not fail")
	}
}

func TestLoad(t *testing.T) {
	p := runOne(t, "load 0.1 fd1.img")
	if p.Msg != master.Load || p.DevNum != device.DevNum(0, 1) || p.Name != "fd1.img" {
		t.Errorf("load got: %+v", p)
	}
	if _, _, err := run(t, "load 0.1"); err == nil {
		t.Errorf("load without file did not fail")
	}
}

func TestSet(t *testing.T) {
	s, _, err := run(t, "set 2.0 offline ro")
	if err != nil {
		t.Fatalf("set error: %v", err)
	}
	if len(s.packets) != 2 || s.packets[0].Msg != master.SetOffline || s.packets[1].Msg != master.SetReadOnly {
		t.Errorf("set got: %+v", s.packets)
	}

	p := runOne(t, "set 2.0 rw")
	if p.Msg != master.SetReadWrite {
		t.Errorf("set rw got: %v", p.Msg)
	}
	p = runOne(t, "se 2.0 online")
	if p.Msg != master.SetOnline {
		t.Errorf("set online got: %v", p.Msg)
	}

	for _, line := range []string{"set 2.0", "set 2.0 bogus", "set 2.0 ro=1", "set 2.0 file=x"} {
		if _, _, err := run(t, line); err == nil {
			t.Errorf("%s did not fail", line)
		}
	}
}

func TestFault(t *testing.T) {
	p := runOne(t, "fault 2.0 mediafault")
	if p.Msg != master.Inject || p.Name != "mediafault" {
		t.Errorf("fault got: %+v", p)
	}
	p = runOne(t, "fault 2.0 condition=NotReady")
	if p.Name != "notready" {
		t.Errorf("fault condition= got: %+v", p)
	}
	for _, line := range []string{"fault 2.0", "fault 2.0 bogus", "fault 2.0 notready aborted"} {
		if _, _, err := run(t, line); err == nil {
			t.Errorf("%s did not fail", line)
		}
	}
}

func TestFormat(t *testing.T) {
	p := runOne(t, "format 0.0 fill=e5")
	if p.Msg != master.Format || p.Fill != 0xe5 {
		t.Errorf("format got: %+v", p)
	}
	p = runOne(t, "fo 0.0")
	if p.Fill != 0 {
		t.Errorf("format default fill got: %02x", p.Fill)
	}
	for _, line := range []string{"format 0.0 fill=zz", "format 0.0 fill=100", "format 0.0 fill"} {
		if _, _, err := run(t, line); err == nil {
			t.Errorf("%s did not fail", line)
		}
	}
}

func TestShowReset(t *testing.T) {
	for _, line := range []string{"show", "show all", "sh all"} {
		p := runOne(t, line)
		if p.Msg != master.Show || p.DevNum != device.NoDev {
			t.Errorf("%s got: %+v", line, p)
		}
	}
	p := runOne(t, "show 3")
	if p.DevNum != device.DevNum(3, 0) {
		t.Errorf("show 3 got: %+v", p)
	}
	p = runOne(t, "reset all")
	if p.Msg != master.Reset || p.DevNum != device.NoDev {
		t.Errorf("reset all got: %+v", p)
	}
	p = runOne(t, "res 2")
	if p.DevNum != device.DevNum(2, 0) {
		t.Errorf("reset 2 got: %+v", p)
	}
	if _, _, err := run(t, "show everything"); err == nil {
		t.Errorf("show everything did not fail")
	}
}

func TestCommandMatch(t *testing.T) {
	_, quit, err := run(t, "quit")
	if err != nil || !quit {
		t.Errorf("quit got: %v %v", quit, err)
	}
	_, quit, err = run(t, "   # only a comment")
	if err != nil || quit {
		t.Errorf("comment got: %v %v", quit, err)
	}
	for _, line := range []string{"s 2.0", "q", "bogus", "quitter", "123"} {
		if _, _, err := run(t, line); err == nil {
			t.Errorf("%s did not fail", line)
		}
	}
}

func TestCoreError(t *testing.T) {
	s := &testSender{result: master.Result{Err: errors.New("unit busy")}}
	_, err := ProcessCommand("eject 2.0", s)
	if err == nil || err.Error() != "unit busy" {
		t.Errorf("eject got: %v", err)
	}
}

func TestComplete(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"s", []string{"set", "show", "status"}},
		{"fo", []string{"format"}},
		{"set 2.0 o", []string{"set 2.0 offline ", "set 2.0 online "}},
		{"set 2.0 ro r", []string{"set 2.0 ro ro ", "set 2.0 ro rw "}},
		{"attach 2.0 f", []string{"attach 2.0 file="}},
		{"format 0 ", []string{"format 0 fill="}},
		{"fault 2.0 condition=not", []string{"fault 2.0 condition=notready "}},
		{"fault 2.0 med", []string{"fault 2.0 mediafault "}},
		{"show a", []string{"show all"}},
		{"set", []string{"set"}},
		{"bogus 2.0 ", nil},
		{"set 2.0", nil},
	}
	for _, test := range tests {
		got := CompleteCmd(test.line)
		if len(got) != len(test.want) {
			t.Errorf("%q got: %q expected: %q", test.line, got, test.want)
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("%q got: %q expected: %q", test.line, got, test.want)
				break
			}
		}
	}
}
