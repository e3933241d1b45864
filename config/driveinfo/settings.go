/*
 * HPDisk - Unit settings from configuration lines.
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

package driveinfo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	config "github.com/rcornwell/hpdisk/config/configparser"
	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/registry"
)

// Unit described by a SS80 or AMIGO configuration line.
type Settings struct {
	Unit     *registry.Unit
	FileName string // Image to attach, empty for none.
	ReadOnly bool
	Offline  bool
	PPR      uint8 // Parallel poll response bit.
}

func optionNumber(option config.Option, bits int) (uint64, error) {
	if option.EqualOpt == "" {
		return 0, fmt.Errorf("%s requires a value", option.Name)
	}
	num, err := strconv.ParseUint(option.EqualOpt, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%s invalid number: %s", option.Name, option.EqualOpt)
	}
	return num, nil
}

// Build unit settings from model named by MODEL= or defModel, then
// apply the remaining options.
func Configure(family device.Family, defModel string, devNum uint16, options []config.Option) (*Settings, error) {
	addr, number := device.Split(devNum)
	if number == device.MaxUnit {
		return nil, errors.New("unit 15 is the controller")
	}

	modelName := defModel
	for _, option := range options {
		if strings.ToUpper(option.Name) == "MODEL" {
			modelName = option.EqualOpt
		}
	}
	model, ok := Lookup(modelName)
	if !ok {
		return nil, fmt.Errorf("unknown model %s", modelName)
	}
	if model.Family != family {
		return nil, fmt.Errorf("model %s is %s", model.Name, model.Family)
	}

	s := &Settings{Unit: model.NewUnit(addr, number), PPR: addr & 7}
	u := s.Unit
	for _, option := range options {
		var err error
		var num uint64
		switch strings.ToUpper(option.Name) {
		case "MODEL":
		case "FILE":
			if option.EqualOpt == "" {
				err = errors.New("file requires a file name")
			}
			s.FileName = option.EqualOpt
		case "CYL", "CYLINDERS":
			num, err = optionNumber(option, 24)
			u.Geometry.Cylinders = uint32(num)
		case "HEADS":
			num, err = optionNumber(option, 8)
			u.Geometry.Heads = uint32(num)
		case "SECTORS":
			num, err = optionNumber(option, 16)
			u.Geometry.Sectors = uint32(num)
		case "BYTES":
			num, err = optionNumber(option, 16)
			u.Geometry.BytesPerSector = uint32(num)
		case "ID":
			num, err = optionNumber(option, 16)
			u.ID = uint16(num)
		case "STAT2":
			num, err = optionNumber(option, 8)
			u.Stat2 = uint8(num)
		case "INTERLEAVE":
			num, err = optionNumber(option, 8)
			u.Interleave = uint8(num)
		case "PPR":
			num, err = optionNumber(option, 3)
			s.PPR = uint8(num)
		case "RO":
			s.ReadOnly = true
		case "FIXED":
			u.Fixed = true
		case "REMOVABLE":
			u.Fixed = false
		case "OFFLINE":
			s.Offline = true
		default:
			err = errors.New("invalid option: " + option.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add unit to registry and load its media.
func (s *Settings) Install(reg *registry.Registry) error {
	u := s.Unit
	if err := reg.Add(u); err != nil {
		return err
	}
	if s.FileName != "" {
		if err := u.Attach(s.FileName, s.ReadOnly); err != nil {
			return err
		}
	} else if s.ReadOnly {
		_ = u.SetReadOnly(true)
	}
	u.SetOnline(!s.Offline)
	return nil
}
