/*
 * HPDisk - Per unit fault latches.
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

package fault

import "github.com/rcornwell/hpdisk/emu/device"

// Model holds the fault records of every unit. It is owned by the
// core goroutine and is not safe for concurrent use.
type Model struct {
	records  map[UnitID]*Record
	policies [device.NumFamilies]Policy
}

// Create a fault model with default family policies.
func NewModel() *Model {
	m := &Model{records: map[UnitID]*Record{}}
	m.policies[device.SS80] = ClearOnRead
	m.policies[device.AMIGO] = Sticky
	return m
}

// Set clearing policy for family.
func (m *Model) SetPolicy(family device.Family, policy Policy) {
	if family < device.NumFamilies {
		m.policies[family] = policy
	}
}

// Return clearing policy for family.
func (m *Model) Policy(family device.Family) Policy {
	if family < device.NumFamilies {
		return m.policies[family]
	}
	return ClearOnRead
}

func (m *Model) record(unit UnitID) *Record {
	rec, ok := m.records[unit]
	if !ok {
		rec = &Record{}
		m.records[unit] = rec
	}
	return rec
}

// Latch a condition on unit.
func (m *Model) Latch(unit UnitID, cond Condition) {
	if cond == None {
		return
	}
	m.record(unit).Pending |= cond
}

// Latch a condition with extended status detail.
func (m *Model) LatchExtended(unit UnitID, cond Condition, ext Extended) {
	if cond == None {
		return
	}
	rec := m.record(unit)
	rec.Pending |= cond
	rec.Extended = ext
}

// Clear everything except hardware faults.
func (m *Model) ClearTransient(unit UnitID) {
	rec, ok := m.records[unit]
	if !ok {
		return
	}
	rec.Pending &= HardwareFault
	if rec.Pending == None {
		rec.Extended = Extended{}
	}
}

// Clear all conditions, explicit clear command.
func (m *Model) ClearAll(unit UnitID) {
	delete(m.records, unit)
}

// Clear every unit, used on console reset.
func (m *Model) Reset() {
	m.records = map[UnitID]*Record{}
}

// Current record of unit, no side effects.
func (m *Model) Current(unit UnitID) Record {
	rec, ok := m.records[unit]
	if !ok {
		return Record{}
	}
	return *rec
}

// Return record for status request and apply family policy.
func (m *Model) Report(unit UnitID) Record {
	rec := m.Current(unit)
	if m.Policy(unit.Family) == ClearOnRead {
		m.ClearTransient(unit)
	}
	return rec
}
