/*
 * HPDisk - Drive model database.
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
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/ini.v1"

	config "github.com/rcornwell/hpdisk/config/configparser"
	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/registry"
)

// Section of hpdir.ini holding drive entries.
const section = "driveinfo"

// Number of values in one hpdir.ini drive entry.
const entryFields = 13

// Description of one drive model.
type Model struct {
	Name         string
	Comment      string
	Family       device.Family
	ID           uint16 // Identify bytes.
	MaskStat2    uint8
	IDStat2      uint8  // AMIGO status-2 identity.
	DeviceNumber uint32 // SS80 describe device number.
	Units        uint16
	Geometry     registry.Geometry
	Interleave   uint8
	Fixed        bool
}

var (
	mu     sync.RWMutex
	models = map[string]*Model{}
)

var builtin = []Model{
	{
		Name: "9121", Comment: "HP9121 dual 270K AMIGO floppy", Family: device.AMIGO,
		ID: 0x0104, IDStat2: 0x0d, Units: 0x8001,
		Geometry: registry.Geometry{Cylinders: 35, Heads: 2, Sectors: 16, BytesPerSector: 256},
	},
	{
		Name: "9895", Comment: "HP9895A dual 1.15M AMIGO floppy", Family: device.AMIGO,
		ID: 0x0081, Units: 0x8001, Interleave: 7,
		Geometry: registry.Geometry{Cylinders: 77, Heads: 2, Sectors: 30, BytesPerSector: 256},
	},
	{
		Name: "9134A", Comment: "HP9134A 5M AMIGO winchester", Family: device.AMIGO,
		ID: 0x0106, Units: 0x8001, Fixed: true,
		Geometry: registry.Geometry{Cylinders: 153, Heads: 4, Sectors: 31, BytesPerSector: 256},
	},
	{
		Name: "9122", Comment: "HP9122D dual 630K SS80 floppy", Family: device.SS80,
		ID: 0x0222, DeviceNumber: 0x091220, Units: 0x8001, Interleave: 2,
		Geometry: registry.Geometry{Cylinders: 77, Heads: 2, Sectors: 16, BytesPerSector: 256},
	},
	{
		Name: "9133D", Comment: "HP9133D 15M SS80 winchester", Family: device.SS80,
		ID: 0x0221, DeviceNumber: 0x091330, Units: 0x8001, Interleave: 1, Fixed: true,
		Geometry: registry.Geometry{Cylinders: 153, Heads: 4, Sectors: 96, BytesPerSector: 256},
	},
	{
		Name: "9134L", Comment: "HP9134L 40M SS80 winchester", Family: device.SS80,
		ID: 0x0221, DeviceNumber: 0x091340, Units: 0x8001, Interleave: 7, Fixed: true,
		Geometry: registry.Geometry{Cylinders: 909, Heads: 4, Sectors: 16, BytesPerSector: 256},
	},
}

func init() {
	for i := range builtin {
		m := builtin[i]
		models[m.Name] = &m
	}
	config.RegisterFile("HPDIR", create)
}

// Find model by name, case does not matter.
func Lookup(name string) (*Model, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := models[strings.ToUpper(name)]
	if !ok {
		return nil, false
	}
	c := *m
	return &c, true
}

// Names of all known models.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add or replace a model.
func Add(m Model) error {
	if m.Name == "" {
		return errors.New("drive model requires a name")
	}
	if !m.Geometry.Valid() {
		return fmt.Errorf("drive model %s invalid geometry %s", m.Name, m.Geometry)
	}
	m.Name = strings.ToUpper(m.Name)
	mu.Lock()
	models[m.Name] = &m
	mu.Unlock()
	return nil
}

// Build unit of this model at bus address.
func (m *Model) NewUnit(bus, number uint8) *registry.Unit {
	u := registry.NewUnit(bus, number, m.Family, m.Geometry)
	u.Model = m.Name
	u.ID = m.ID
	u.Fixed = m.Fixed
	u.DeviceNumber = m.DeviceNumber
	u.Interleave = m.Interleave
	u.Stat2 = m.IDStat2
	return u
}

func (m *Model) String() string {
	return fmt.Sprintf("%s %s id=%04x %s %s", m.Name, m.Family, m.ID, m.Geometry, m.Comment)
}

// Load hpdir.ini file or data, returns number of models read.
func Load(source interface{}) (int, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}, source)
	if err != nil {
		return 0, err
	}
	sec, err := cfg.GetSection(section)
	if err != nil {
		return 0, fmt.Errorf("no [%s] section", section)
	}
	count := 0
	for _, key := range sec.Keys() {
		m, err := parseEntry(key.Name(), key.Value())
		if err != nil {
			return count, err
		}
		if err := Add(*m); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func parseNumber(field string, value string, bits int) (uint64, error) {
	num, err := strconv.ParseUint(strings.TrimSpace(value), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%s invalid number: %s", field, value)
	}
	return num, nil
}

// Parse one drive line:
// model = "comment", type, id, mask_stat2, id_stat2, device_number, units,
// cylinders, heads, sectors, bytes_per_sector, interleave, removable.
func parseEntry(name string, value string) (*Model, error) {
	rd := csv.NewReader(strings.NewReader(value))
	rd.TrimLeadingSpace = true
	fields, err := rd.Read()
	if err != nil {
		return nil, fmt.Errorf("drive %s: %w", name, err)
	}
	if len(fields) < entryFields-1 {
		return nil, fmt.Errorf("drive %s: %d values, expected %d", name, len(fields), entryFields)
	}

	m := &Model{Name: strings.ToUpper(name), Comment: fields[0]}
	switch strings.ToUpper(strings.TrimSpace(fields[1])) {
	case "AMIGO":
		m.Family = device.AMIGO
	case "SS80", "CS80":
		m.Family = device.SS80
	default:
		return nil, fmt.Errorf("drive %s: unknown protocol %s", name, fields[1])
	}

	nums := make([]uint64, 0, entryFields)
	bits := []int{16, 8, 8, 32, 16, 32, 32, 32, 32, 8, 8}
	labels := []string{"id", "mask_stat2", "id_stat2", "device_number", "units",
		"cylinders", "heads", "sectors", "bytes_per_sector", "interleave", "removable"}
	for i := 2; i < len(fields) && i-2 < len(bits); i++ {
		num, err := parseNumber(labels[i-2], fields[i], bits[i-2])
		if err != nil {
			return nil, fmt.Errorf("drive %s: %w", name, err)
		}
		nums = append(nums, num)
	}
	m.ID = uint16(nums[0])
	m.MaskStat2 = uint8(nums[1])
	m.IDStat2 = uint8(nums[2])
	m.DeviceNumber = uint32(nums[3])
	m.Units = uint16(nums[4])
	m.Geometry = registry.Geometry{
		Cylinders:      uint32(nums[5]),
		Heads:          uint32(nums[6]),
		Sectors:        uint32(nums[7]),
		BytesPerSector: uint32(nums[8]),
	}
	m.Interleave = uint8(nums[9])
	m.Fixed = true
	if len(nums) > 10 {
		m.Fixed = nums[10] == 0
	}
	return m, nil
}

// Load extra models named on a HPDIR configuration line.
func create(_ config.System, _ uint16, fileName string, _ []config.Option) error {
	_, err := Load(fileName)
	if err != nil {
		return fmt.Errorf("unable to load drive list %s: %w", fileName, err)
	}
	return nil
}
