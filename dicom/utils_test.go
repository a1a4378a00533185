// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"
)

// fileBuilder assembles DICOM Part 10 byte streams for tests.
type fileBuilder struct {
	buf bytes.Buffer
}

// newFileBuilder starts a file with a zero preamble and the DICM signature.
func newFileBuilder() *fileBuilder {
	b := &fileBuilder{}
	b.buf.Write(make([]byte, 128))
	b.buf.WriteString("DICM")
	return b
}

func (b *fileBuilder) u16(v uint16) *fileBuilder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *fileBuilder) u32(v uint32) *fileBuilder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *fileBuilder) raw(data []byte) *fileBuilder {
	b.buf.Write(data)
	return b
}

// explicitShort writes an explicit VR element with a 16-bit length.
func (b *fileBuilder) explicitShort(group, element uint16, vr string, value []byte) *fileBuilder {
	b.u16(group).u16(element)
	b.buf.WriteString(vr)
	b.u16(uint16(len(value)))
	b.buf.Write(value)
	return b
}

// explicitLong writes an explicit VR element with 2 reserved bytes and a
// 32-bit length.
func (b *fileBuilder) explicitLong(group, element uint16, vr string, value []byte) *fileBuilder {
	b.u16(group).u16(element)
	b.buf.WriteString(vr)
	b.u16(0)
	b.u32(uint32(len(value)))
	b.buf.Write(value)
	return b
}

// implicit writes an implicit VR element (32-bit length, no VR bytes).
func (b *fileBuilder) implicit(group, element uint16, value []byte) *fileBuilder {
	b.u16(group).u16(element)
	b.u32(uint32(len(value)))
	b.buf.Write(value)
	return b
}

// sequenceOpen writes an explicit VR SQ element header with undefined length.
func (b *fileBuilder) sequenceOpen(group, element uint16) *fileBuilder {
	b.u16(group).u16(element)
	b.buf.WriteString("SQ")
	b.u16(0)
	b.u32(UndefinedLength)
	return b
}

// sequenceOpenImplicit writes an implicit VR sequence header with undefined
// length; the tag must map to SQ in the dictionary.
func (b *fileBuilder) sequenceOpenImplicit(group, element uint16) *fileBuilder {
	b.u16(group).u16(element)
	b.u32(UndefinedLength)
	return b
}

// fragmentsOpen writes an undefined length OB element header, starting an
// encapsulated value.
func (b *fileBuilder) fragmentsOpen(group, element uint16) *fileBuilder {
	b.u16(group).u16(element)
	b.buf.WriteString("OB")
	b.u16(0)
	b.u32(UndefinedLength)
	return b
}

func (b *fileBuilder) item(length uint32) *fileBuilder {
	return b.u16(0xFFFE).u16(0xE000).u32(length)
}

func (b *fileBuilder) itemDelim() *fileBuilder {
	return b.u16(0xFFFE).u16(0xE00D).u32(0)
}

func (b *fileBuilder) sequenceDelim() *fileBuilder {
	return b.u16(0xFFFE).u16(0xE0DD).u32(0)
}

func (b *fileBuilder) fragment(data []byte) *fileBuilder {
	b.item(uint32(len(data)))
	b.buf.Write(data)
	return b
}

func (b *fileBuilder) build() []byte {
	return b.buf.Bytes()
}

// metaHeader writes a minimal file meta group carrying the transfer syntax
// UID, preceded by a group length element the parser is expected to discard.
func (b *fileBuilder) metaHeader(transferSyntaxUID string) *fileBuilder {
	b.explicitShort(0x0002, 0x0000, "UL", []byte{0, 0, 0, 0})
	b.explicitShort(0x0002, 0x0010, "UI", padUID(transferSyntaxUID))
	return b
}

// padUID pads a UID value to even length with a trailing NUL, as the DICOM
// encoding requires.
func padUID(uid string) []byte {
	if len(uid)%2 == 1 {
		return []byte(uid + "\x00")
	}
	return []byte(uid)
}

// padText pads a text value to even length with a trailing space.
func padText(s string) []byte {
	if len(s)%2 == 1 {
		return []byte(s + " ")
	}
	return []byte(s)
}

// decodeText interprets raw value bytes as ASCII with padding removed.
func decodeText(value []byte) string {
	return strings.TrimRight(string(value), "\x00 ")
}

// chunkReader delivers the underlying data in fixed-size reads, to exercise
// field and value boundaries falling anywhere in the stream.
type chunkReader struct {
	data []byte
	size int
	off  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data)-r.off {
		n = len(r.data) - r.off
	}
	copy(p, r.data[r.off:r.off+n])
	r.off += n
	return n, nil
}

// compareDataSets fails the test unless the two data sets have identical
// tags in identical order, identical VRs, and byte-identical contents,
// recursing through sequences and fragments.
func compareDataSets(t *testing.T, got, want *DataSet) {
	t.Helper()
	gotTags, wantTags := got.Tags(), want.Tags()
	if len(gotTags) != len(wantTags) {
		t.Fatalf("tag count: got %v, want %v", gotTags, wantTags)
	}
	for i := range gotTags {
		if gotTags[i] != wantTags[i] {
			t.Fatalf("tag order at %d: got %v, want %v", i, gotTags[i], wantTags[i])
		}
		gotElem, _ := got.Get(gotTags[i])
		wantElem, _ := want.Get(wantTags[i])
		compareDataElements(t, gotElem, wantElem)
	}
}

func compareDataElements(t *testing.T, got, want *DataElement) {
	t.Helper()
	if got.VR != want.VR {
		t.Fatalf("%v: vr: got %v, want %v", got.Tag, got.VR, want.VR)
	}
	switch wantValue := want.ValueField.(type) {
	case []byte:
		gotValue, ok := got.ValueField.([]byte)
		if !ok {
			t.Fatalf("%v: got %T, want []byte", got.Tag, got.ValueField)
		}
		if !bytes.Equal(gotValue, wantValue) {
			t.Fatalf("%v: value: got %v, want %v", got.Tag, gotValue, wantValue)
		}
	case [][]byte:
		gotValue, ok := got.ValueField.([][]byte)
		if !ok {
			t.Fatalf("%v: got %T, want [][]byte", got.Tag, got.ValueField)
		}
		if len(gotValue) != len(wantValue) {
			t.Fatalf("%v: fragment count: got %d, want %d", got.Tag, len(gotValue), len(wantValue))
		}
		for i := range wantValue {
			if !bytes.Equal(gotValue[i], wantValue[i]) {
				t.Fatalf("%v: fragment %d: got %v, want %v", got.Tag, i, gotValue[i], wantValue[i])
			}
		}
	case []*DataSet:
		gotValue, ok := got.ValueField.([]*DataSet)
		if !ok {
			t.Fatalf("%v: got %T, want []*DataSet", got.Tag, got.ValueField)
		}
		if len(gotValue) != len(wantValue) {
			t.Fatalf("%v: item count: got %d, want %d", got.Tag, len(gotValue), len(wantValue))
		}
		for i := range wantValue {
			compareDataSets(t, gotValue[i], wantValue[i])
		}
	default:
		t.Fatalf("%v: unexpected want type %T", want.Tag, want.ValueField)
	}
}
