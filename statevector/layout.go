// Copyright 2026 The JazzPetri Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package statevector describes how model variables are packed into the fixed
// size state vector that the analysis stores for every state.
//
// A Layout is declared once per model from field descriptors and is then used
// by generic Serialize and Deserialize routines. Booleans occupy one bit,
// bounded integers and enums the smallest of 8, 16 or 32 bits that holds
// their range. Fields of equal width are grouped, groups are ordered by
// width and each group is padded to a 4-byte slot.
//
// # Usage
//
//	layout, err := statevector.NewLayout(
//	    statevector.Bool("open"),
//	    statevector.Int("level", 0, 10),
//	    statevector.Array(statevector.Bool("sensor"), 3),
//	)
//	values := layout.NewValues()
//	buf := make([]byte, layout.SizeInBytes())
//	layout.Serialize(values, buf)
package statevector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

// SlotSize is the size of one state slot in bytes.
const SlotSize = 4

// ErrOutOfRange is returned when a value does not fit its field.
var ErrOutOfRange = errors.New("value out of field range")

// Kind is the type of a field.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindEnum
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field describes one model variable, an array of them or a nested struct.
type Field struct {
	Name     string
	Kind     Kind
	Min, Max int64
	// Count is the number of array elements. Zero and one both mean a scalar.
	Count  int
	Fields []Field
}

// Bool declares a boolean field.
func Bool(name string) Field {
	return Field{Name: name, Kind: KindBool, Max: 1}
}

// Int declares an integer field with the inclusive range [min, max].
func Int(name string, min, max int64) Field {
	return Field{Name: name, Kind: KindInt, Min: min, Max: max}
}

// Enum declares a field holding one of count enumeration values.
func Enum(name string, count int) Field {
	return Field{Name: name, Kind: KindEnum, Max: int64(count) - 1}
}

// Array repeats f count times.
func Array(f Field, count int) Field {
	f.Count = count
	return f
}

// Struct groups fields under a common name.
func Struct(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindStruct, Fields: fields}
}

// element is a scalar leaf of the layout.
type element struct {
	name   string
	kind   Kind
	min    int64
	max    int64
	bits   int
	offset int // bit offset for booleans, byte offset otherwise
}

// Layout is the packing of a model's variables into a state vector.
// Values are addressed by the declaration order of their scalar leaves.
type Layout struct {
	elements []element
	index    map[string]int
	size     int
	bools    int
	ints     int
}

// NewLayout computes the packing of fields.
func NewLayout(fields ...Field) (*Layout, error) {
	l := &Layout{index: make(map[string]int)}
	for _, f := range fields {
		if err := l.flatten(f, ""); err != nil {
			return nil, err
		}
	}

	order := make([]int, len(l.elements))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return l.elements[a].bits - l.elements[b].bits
	})

	offset := 0 // in bits
	for start := 0; start < len(order); {
		width := l.elements[order[start]].bits
		end := start
		for end < len(order) && l.elements[order[end]].bits == width {
			e := &l.elements[order[end]]
			if width == 1 {
				e.offset = offset + (end - start)
			} else {
				e.offset = offset/8 + (end-start)*width/8
			}
			end++
		}
		groupBits := (end - start) * width
		offset += roundUp(groupBits, SlotSize*8)
		start = end
	}
	l.size = offset / 8
	return l, nil
}

func roundUp(v, multiple int) int {
	return (v + multiple - 1) / multiple * multiple
}

func (l *Layout) flatten(f Field, prefix string) error {
	name := f.Name
	if prefix != "" {
		name = prefix + "." + f.Name
	}

	if f.Count > 1 {
		elem := f
		elem.Count = 0
		for i := 0; i < f.Count; i++ {
			elem.Name = fmt.Sprintf("%s[%d]", f.Name, i)
			if err := l.flatten(elem, prefix); err != nil {
				return err
			}
		}
		return nil
	}

	if f.Kind == KindStruct {
		for _, c := range f.Fields {
			if err := l.flatten(c, name); err != nil {
				return err
			}
		}
		return nil
	}

	if f.Max < f.Min {
		return fmt.Errorf("field %q: empty range [%d, %d]", name, f.Min, f.Max)
	}
	if _, ok := l.index[name]; ok {
		return fmt.Errorf("field %q declared twice", name)
	}

	e := element{name: name, kind: f.Kind, min: f.Min, max: f.Max}
	span := uint64(f.Max - f.Min)
	switch {
	case f.Kind == KindBool:
		e.bits = 1
		l.bools++
	case span <= math.MaxUint8:
		e.bits = 8
	case span <= math.MaxUint16:
		e.bits = 16
	case span <= math.MaxUint32:
		e.bits = 32
	default:
		return fmt.Errorf("field %q: range [%d, %d] does not fit 32 bits", name, f.Min, f.Max)
	}
	if f.Kind != KindBool {
		l.ints++
	}

	l.index[name] = len(l.elements)
	l.elements = append(l.elements, e)
	return nil
}

// SizeInBytes returns the size of a serialized state.
func (l *Layout) SizeInBytes() int {
	return l.size
}

// SlotCount returns the number of 4-byte slots of a serialized state.
func (l *Layout) SlotCount() int {
	return l.size / SlotSize
}

// Len returns the number of scalar values.
func (l *Layout) Len() int {
	return len(l.elements)
}

// Counts returns the number of boolean and integer (including enum) values.
func (l *Layout) Counts() (bools, ints int) {
	return l.bools, l.ints
}

// Index returns the position of the named value, e.g. "pump.level" or
// "sensor[2]".
func (l *Layout) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Name returns the qualified name of value i.
func (l *Layout) Name(i int) string {
	return l.elements[i].name
}

// NewValues returns a value vector with every value at its minimum.
func (l *Layout) NewValues() []int64 {
	values := make([]int64, len(l.elements))
	for i, e := range l.elements {
		values[i] = e.min
	}
	return values
}

// Serialize packs values into buf, which must hold SizeInBytes bytes.
// Unused padding bits are zeroed so equal states serialize to equal bytes.
func (l *Layout) Serialize(values []int64, buf []byte) error {
	if len(values) != len(l.elements) {
		return fmt.Errorf("expected %d values, got %d", len(l.elements), len(values))
	}
	if len(buf) < l.size {
		return fmt.Errorf("buffer of %d bytes is smaller than the state size %d", len(buf), l.size)
	}
	clear(buf[:l.size])

	for i, e := range l.elements {
		v := values[i]
		if v < e.min || v > e.max {
			return fmt.Errorf("%w: %s = %d not in [%d, %d]", ErrOutOfRange, e.name, v, e.min, e.max)
		}
		raw := uint64(v - e.min)
		switch e.bits {
		case 1:
			if raw != 0 {
				buf[e.offset/8] |= 1 << uint(e.offset%8)
			}
		case 8:
			buf[e.offset] = byte(raw)
		case 16:
			binary.LittleEndian.PutUint16(buf[e.offset:], uint16(raw))
		case 32:
			binary.LittleEndian.PutUint32(buf[e.offset:], uint32(raw))
		}
	}
	return nil
}

// Deserialize unpacks buf into values.
func (l *Layout) Deserialize(buf []byte, values []int64) {
	for i, e := range l.elements {
		var raw uint64
		switch e.bits {
		case 1:
			raw = uint64(buf[e.offset/8]>>uint(e.offset%8)) & 1
		case 8:
			raw = uint64(buf[e.offset])
		case 16:
			raw = uint64(binary.LittleEndian.Uint16(buf[e.offset:]))
		case 32:
			raw = uint64(binary.LittleEndian.Uint32(buf[e.offset:]))
		}
		values[i] = int64(raw) + e.min
	}
}
