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

package counterexample

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/model"
)

// maxLength bounds the length fields read from a file. Buffers still only
// grow with the data actually read, so a corrupt length fails with an
// unexpected EOF instead of a large allocation.
const maxLength = 1 << 28

// encoder writes little-endian values and keeps the first error.
type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) write(v interface{}) {
	if e.err == nil {
		e.err = binary.Write(e.w, binary.LittleEndian, v)
	}
}

func (e *encoder) int32(v int) {
	e.write(int32(v))
}

// Save writes ce to w.
func (ce *CounterExample) Save(w io.Writer) error {
	if len(ce.Snapshot) > math.MaxInt32 {
		return fmt.Errorf("snapshot of %d bytes is too large", len(ce.Snapshot))
	}
	e := &encoder{w: bufio.NewWriter(w)}
	e.write(FileHeader)
	e.write(ce.EndsWithException)
	e.int32(len(ce.Snapshot))
	e.write(ce.Snapshot)

	e.int32(len(ce.Activations))
	for _, a := range ce.Activations {
		e.int32(int(a))
	}
	e.write(ce.Fingerprint.Bools)
	e.write(ce.Fingerprint.Ints)

	e.int32(len(ce.States))
	e.int32(ce.SlotCount)
	padded := make([]byte, ce.SlotCount*4)
	for _, s := range ce.States {
		clear(padded)
		copy(padded, s)
		e.write(padded)
	}

	e.int32(len(ce.ReplayInfo))
	for _, choices := range ce.ReplayInfo {
		e.int32(len(choices))
		for _, c := range choices {
			e.int32(c)
		}
	}
	if e.err != nil {
		return fmt.Errorf("failed to write counter-example: %w", e.err)
	}
	return e.w.Flush()
}

// SaveFile writes ce to path. FileExtension is appended if path has a
// different extension.
func (ce *CounterExample) SaveFile(path string) (string, error) {
	if !strings.HasSuffix(path, FileExtension) {
		path += FileExtension
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := ce.Save(f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// decoder reads little-endian values and keeps the first error.
type decoder struct {
	r   *bufio.Reader
	err error
}

func (d *decoder) read(v interface{}) {
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, v)
	}
}

func (d *decoder) int32() int {
	var v int32
	d.read(&v)
	return int(v)
}

// length reads a non-negative length.
func (d *decoder) length(what string) int {
	n := d.int32()
	if d.err == nil && (n < 0 || n > maxLength) {
		d.err = fmt.Errorf("invalid %s %d", what, n)
	}
	if d.err != nil {
		return 0
	}
	return n
}

// bytes reads n bytes.
func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, d.r, int64(n)); err != nil {
		d.err = err
		return nil
	}
	return buf.Bytes()
}

// Load reads a counter-example and checks that it belongs to the model
// restored from its snapshot by codec.
func Load(r io.Reader, codec model.Codec) (*CounterExample, error) {
	d := &decoder{r: bufio.NewReader(r)}

	var header int32
	d.read(&header)
	if d.err == nil && header != FileHeader {
		return nil, incompatible("invalid file header %#x", header)
	}

	ce := &CounterExample{}
	d.read(&ce.EndsWithException)
	ce.Snapshot = d.bytes(d.length("snapshot length"))

	activations := d.length("fault count")
	if d.err == nil && activations > faults.MaxFaults {
		d.err = fmt.Errorf("invalid fault count %d", activations)
	}
	ce.Activations = make([]faults.Activation, 0, min(activations, faults.MaxFaults))
	for i := 0; i < activations && d.err == nil; i++ {
		ce.Activations = append(ce.Activations, faults.Activation(d.int32()))
	}
	d.read(&ce.Fingerprint.Bools)
	d.read(&ce.Fingerprint.Ints)

	states := d.length("state count")
	ce.SlotCount = d.length("slot count")
	if d.err != nil {
		return nil, loadError(d.err)
	}

	m, err := codec.Restore(ce.Snapshot)
	if err != nil {
		return nil, err
	}
	if err := ce.checkCompatible(codec, m); err != nil {
		return nil, err
	}

	size := m.StateVectorSize()
	padded := make([]byte, ce.SlotCount*4)
	for i := 0; i < states && d.err == nil; i++ {
		d.read(padded)
		ce.States = append(ce.States, append([]byte(nil), padded[:size]...))
	}

	replays := d.length("replay count")
	for i := 0; i < replays && d.err == nil; i++ {
		n := d.length("choice count")
		var choices []int
		for j := 0; j < n && d.err == nil; j++ {
			choices = append(choices, d.int32())
		}
		ce.ReplayInfo = append(ce.ReplayInfo, choices)
	}
	if d.err != nil {
		return nil, loadError(d.err)
	}
	return ce, nil
}

func loadError(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("failed to read counter-example: %w", err)
}

// LoadFile reads a counter-example from path.
func LoadFile(path string, codec model.Codec) (*CounterExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, codec)
}
