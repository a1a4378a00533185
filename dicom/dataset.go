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

// DataElement models a DICOM Data Element as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataElement struct {
	Tag DataElementTag

	// Value Representation
	VR *VR

	// ValueField holds the element's value. Exactly one of the following
	// types, depending on how the element was encoded:
	// []byte       raw value bytes, a view into an arena block
	// [][]byte     encapsulated fragments, each a view into an arena block
	// []*DataSet   sequence items
	ValueField interface{}
}

// DataSet models a DICOM Data Set as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10.
//
// A DataSet returned by Parse owns pooled resources: its element table, the
// tables of every nested sequence item, and the arena blocks backing all
// value slices. Dispose must be called exactly once to return them. Byte
// slices obtained from GetRaw or GetFragments are invalid after Dispose.
type DataSet struct {
	items map[DataElementTag]*DataElement
	order []DataElementTag

	// arena is set on the root data set only; nested sequence items share
	// the root's blocks.
	arena *arena

	root     bool
	disposed bool
}

func (ds *DataSet) checkLive() {
	if ds.disposed {
		panic("dicom: use of DataSet after Dispose")
	}
}

// Len returns the number of elements in this data set level.
func (ds *DataSet) Len() int {
	ds.checkLive()
	return len(ds.order)
}

// Tags returns the element tags of this data set level in the order the
// elements appeared in the input.
func (ds *DataSet) Tags() []DataElementTag {
	ds.checkLive()
	tags := make([]DataElementTag, len(ds.order))
	copy(tags, ds.order)
	return tags
}

// Items returns the elements of this data set level in the order they
// appeared in the input.
func (ds *DataSet) Items() []*DataElement {
	ds.checkLive()
	items := make([]*DataElement, len(ds.order))
	for i, tag := range ds.order {
		items[i] = ds.items[tag]
	}
	return items
}

// Get returns the element with the given tag, if present.
func (ds *DataSet) Get(tag DataElementTag) (*DataElement, bool) {
	ds.checkLive()
	elem, ok := ds.items[tag]
	return elem, ok
}

// GetRaw returns the raw value bytes of the element with the given tag. The
// second return is false if the element is absent or holds a sequence or
// fragments. The slice is a view into an arena block owned by the data set
// tree and must not be used after Dispose.
func (ds *DataSet) GetRaw(tag DataElementTag) ([]byte, bool) {
	ds.checkLive()
	elem, ok := ds.items[tag]
	if !ok {
		return nil, false
	}
	raw, ok := elem.ValueField.([]byte)
	return raw, ok
}

// GetSequence returns the nested data sets of the sequence element with the
// given tag. The second return is false if the element is absent or is not a
// sequence.
func (ds *DataSet) GetSequence(tag DataElementTag) ([]*DataSet, bool) {
	ds.checkLive()
	elem, ok := ds.items[tag]
	if !ok {
		return nil, false
	}
	items, ok := elem.ValueField.([]*DataSet)
	return items, ok
}

// GetFragments returns the encapsulated fragments of the element with the
// given tag. The second return is false if the element is absent or does not
// hold fragments. The fragment slices must not be used after Dispose.
func (ds *DataSet) GetFragments(tag DataElementTag) ([][]byte, bool) {
	ds.checkLive()
	elem, ok := ds.items[tag]
	if !ok {
		return nil, false
	}
	frags, ok := elem.ValueField.([][]byte)
	return frags, ok
}

// add inserts an element, preserving input order. It reports false when the
// tag is already present at this level.
func (ds *DataSet) add(elem *DataElement) bool {
	if _, ok := ds.items[elem.Tag]; ok {
		return false
	}
	ds.items[elem.Tag] = elem
	ds.order = append(ds.order, elem.Tag)
	return true
}

// Dispose releases the data set tree: every nested sequence item is disposed,
// every arena block returns to its origin pool, and the element tables return
// to the table pools. A repeated Dispose is a no-op only while the table has
// not been rented again from its pool, and any value slice previously
// obtained from the tree is invalid once Dispose has been called.
func (ds *DataSet) Dispose() {
	if ds == nil || ds.disposed {
		return
	}
	ds.disposed = true
	for _, tag := range ds.order {
		if items, ok := ds.items[tag].ValueField.([]*DataSet); ok {
			for _, child := range items {
				child.Dispose()
			}
		}
	}
	if ds.arena != nil {
		ds.arena.release()
		ds.arena = nil
	}
	if ds.root {
		rootTables.giveBack(ds)
	} else {
		itemTables.giveBack(ds)
	}
}
