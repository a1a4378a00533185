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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

const dicmSignature = "DICM"

// metaGroup is the file meta information group, always encoded as explicit
// VR little endian.
const metaGroup = uint16(0x0002)

// implicitVRLittleEndianUID is the transfer syntax UID that switches the
// parser to implicit VR decoding after the file meta group.
const implicitVRLittleEndianUID = "1.2.840.10008.1.2"

// Parse consumes a DICOM Part 10 stream from r and returns the root DataSet.
// The caller must call Dispose on the returned DataSet exactly once; value
// slices obtained from it are views into pooled memory and become invalid at
// that point.
//
// The input is read by a producer goroutine through a segmented pipe, so r
// may deliver arbitrarily small reads. Cancelling ctx aborts the parse with
// an error wrapping ErrCancelled (and context.Canceled); malformed input
// yields a *ParseError wrapping one of the Err sentinels. On any error all
// pooled memory rented during the parse has been returned.
func Parse(ctx context.Context, r io.Reader, opts ...ParseOption) (*DataSet, error) {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	p := newPipe(cfg.highWater())
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		runSource(ctx, r, p, cfg.pipeBlockSize)
	}()

	root := rootTables.rent()
	root.arena = newArena(cfg.bumpBlockSize, cfg.largeValueThreshold)

	s := &parseState{
		cfg:        &cfg,
		stage:      stagePreamble,
		explicitVR: true,
		root:       root,
		current:    root,
	}

	// Parse returns only after the producer exited, so all pooled blocks are
	// accounted for. Closing the read side fails the producer's next publish;
	// a source read already in flight is allowed to finish first.
	ds, err := s.drive(ctx, p)
	if err != nil {
		p.closeRead()
		<-producerDone
		s.cleanup()
		return nil, err
	}
	<-producerDone
	cfg.log.Trace().Int("elements", ds.Len()).Msg("parse complete")
	return ds, nil
}

// ParseFile parses the DICOM Part 10 file at the given path.
func ParseFile(ctx context.Context, path string, opts ...ParseOption) (*DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(ctx, f, opts...)
}

type parseStage int

const (
	stagePreamble parseStage = iota
	stageGroup
	stageElement
	stageVR
	stageLength
	stageValue
)

func (s parseStage) String() string {
	switch s {
	case stagePreamble:
		return "Preamble"
	case stageGroup:
		return "ParseGroup"
	case stageElement:
		return "ParseElement"
	case stageVR:
		return "ParseVR"
	case stageLength:
		return "ParseLength"
	case stageValue:
		return "ParseValue"
	}
	return fmt.Sprintf("parseStage(%d)", int(s))
}

// sequenceFrame is one open sequence on the nesting stack.
type sequenceFrame struct {
	tag DataElementTag

	// parent receives the finalised sequence element: the root data set, or
	// the open item of the enclosing sequence.
	parent *DataSet

	items    []*DataSet
	openItem *DataSet
}

// fragmentFrame is an open encapsulated value collection.
type fragmentFrame struct {
	tag       DataElementTag
	vr        *VR
	fragments [][]byte
}

// parseState is the resumable decoder state. The state machine advances
// through the stages in a loop and returns to the driver whenever the current
// field does not fit in the buffered bytes; re-entering resumes at the stored
// stage with the position untouched.
type parseState struct {
	cfg   *parseConfig
	stage parseStage

	pre        [132]byte
	preWritten int

	group   uint16
	element uint16
	vr      *VR

	value   []byte
	written int

	explicitVR    bool
	switchPending bool

	root     *DataSet
	current  *DataSet
	seqStack []*sequenceFrame
	frag     *fragmentFrame

	// base is the absolute input offset of the first byte of the current
	// read snapshot; base plus the reader position is the error offset.
	base int64
}

// drive runs the consumer loop: read a snapshot from the pipe, advance the
// state machine as far as it can go, report consumed and examined positions,
// repeat. Cancellation is observed at every iteration.
func (s *parseState) drive(ctx context.Context, p *pipe) (*DataSet, error) {
	for {
		if ctx.Err() != nil {
			return nil, newParseError(ErrCancelled, s.base, "")
		}
		res, err := p.read(ctx)
		if err != nil {
			return nil, newParseError(ErrCancelled, s.base, "")
		}

		r := &viewReader{segs: res.segs, length: res.length}
		perr := s.run(r)
		p.advance(r.pos, res.length)
		s.base += int64(r.pos)
		if perr != nil {
			return nil, perr
		}

		if res.completed {
			if res.err != nil {
				if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
					return nil, newParseError(ErrCancelled, s.base, "")
				}
				return nil, fmt.Errorf("dicom: reading source: %w", res.err)
			}
			if leftover := res.length - r.pos; leftover > 0 {
				return nil, newParseError(ErrUnexpectedEnd, s.base,
					"input ends inside stage %v with %d trailing bytes", s.stage, leftover)
			}
			return s.finish()
		}
	}
}

// finish validates the terminal state after the pipe completed and every
// buffered byte was consumed.
func (s *parseState) finish() (*DataSet, error) {
	if s.stage == stagePreamble {
		return nil, newParseError(ErrTooSmall, s.base, "input ends after %d bytes", s.preWritten)
	}
	if s.stage != stageGroup {
		return nil, newParseError(ErrUnexpectedEnd, s.base, "input ends inside stage %v", s.stage)
	}
	if len(s.seqStack) > 0 {
		return nil, newParseError(ErrUnexpectedEnd, s.base, "unterminated sequence %v", s.seqStack[len(s.seqStack)-1].tag)
	}
	if s.frag != nil {
		return nil, newParseError(ErrUnexpectedEnd, s.base, "unterminated fragments %v", s.frag.tag)
	}
	return s.root, nil
}

// cleanup disposes everything rented so far: data sets still open on the
// sequence stack (not yet attached to a parent) and the root tree with its
// arena. Called on every error path.
func (s *parseState) cleanup() {
	for i := len(s.seqStack) - 1; i >= 0; i-- {
		frame := s.seqStack[i]
		frame.openItem.Dispose()
		for _, item := range frame.items {
			item.Dispose()
		}
	}
	s.seqStack = nil
	s.frag = nil
	s.root.Dispose()
}

// offset returns the absolute input offset of the reader's position, for
// error reporting.
func (s *parseState) offset(r *viewReader) int64 {
	return s.base + int64(r.pos)
}

// run executes parse stages until the buffered bytes run out or the input is
// malformed. It never blocks: a stage that cannot complete returns nil with
// the stage unchanged, and the driver reissues a read.
func (s *parseState) run(r *viewReader) error {
	for {
		switch s.stage {
		case stagePreamble:
			s.preWritten += r.copyInto(s.pre[s.preWritten:])
			if s.preWritten < len(s.pre) {
				return nil
			}
			if string(s.pre[128:132]) != dicmSignature {
				return newParseError(ErrBadPreamble, s.offset(r), "got %q", s.pre[128:132])
			}
			s.stage = stageGroup

		case stageGroup:
			group, ok := r.readUint16()
			if !ok {
				return nil
			}
			s.group = group
			s.stage = stageElement

		case stageElement:
			element, ok := r.readUint16()
			if !ok {
				return nil
			}
			s.element = element
			if err := s.enterElement(r); err != nil {
				return err
			}

		case stageVR:
			b0, b1, ok := r.readBytes2()
			if !ok {
				return nil
			}
			vr, known := lookupVRByCode(b0, b1)
			if !known {
				return newParseError(ErrUnknownVR, s.offset(r), "%q", []byte{b0, b1})
			}
			s.vr = vr
			s.stage = stageLength

		case stageLength:
			done, err := s.runLength(r)
			if err != nil {
				return err
			}
			if !done {
				return nil
			}

		case stageValue:
			s.written += r.copyInto(s.value[s.written:])
			if s.written < len(s.value) {
				return nil
			}
			if err := s.completeValue(r); err != nil {
				return err
			}

		default:
			return newParseError(ErrUnknownParseStage, s.offset(r), "stage %d", int(s.stage))
		}
	}
}

// enterElement applies the post-element checks: the deferred switch to
// implicit VR once the file meta group has ended, the VR-less delimiter tags,
// and VR inference when decoding implicit VR.
func (s *parseState) enterElement(r *viewReader) error {
	if s.switchPending && s.group > metaGroup {
		s.explicitVR = false
		s.switchPending = false
		s.cfg.log.Trace().Msg("switching to implicit vr")
	}

	isDelimiter := s.group == itemGroup &&
		(s.element == 0xE000 || s.element == 0xE00D || s.element == 0xE0DD)

	if s.frag != nil && !isDelimiter {
		return newParseError(ErrMalformedItem, s.offset(r),
			"unexpected element %v while parsing fragments", NewTag(s.group, s.element))
	}

	if isDelimiter {
		s.stage = stageLength
		return nil
	}

	if !s.explicitVR {
		vr := NewTag(s.group, s.element).DictionaryVR()
		if s.element == 0x0000 && vr == UNVR {
			vr = ULVR
		}
		s.vr = vr
		s.stage = stageLength
		return nil
	}

	s.stage = stageVR
	return nil
}

// runLength reads the value length and dispatches on it. It returns false
// when more bytes are needed, with nothing consumed.
func (s *parseState) runLength(r *viewReader) (bool, error) {
	if s.group == itemGroup {
		length, ok := r.readUint32()
		if !ok {
			return false, nil
		}
		return true, s.handleItemGroup(r, length)
	}

	if !s.explicitVR || s.vr.has32BitLength() {
		if s.explicitVR {
			// 2 reserved bytes precede the 32-bit length
			if r.remaining() < 6 {
				return false, nil
			}
			r.skip(2)
		}
		length, ok := r.readUint32()
		if !ok {
			return false, nil
		}

		if s.vr == SQVR {
			s.openSequence()
			return true, nil
		}
		if length == UndefinedLength {
			s.frag = &fragmentFrame{tag: NewTag(s.group, s.element), vr: s.vr}
			s.cfg.log.Trace().Stringer("tag", s.frag.tag).Msg("fragments open")
			s.stage = stageGroup
			return true, nil
		}
		if length > MaxValueLength {
			return false, newParseError(ErrValueTooLarge, s.offset(r), "%d bytes", length)
		}
		s.beginValue(int(length), false)
		return true, nil
	}

	length, ok := r.readUint16()
	if !ok {
		return false, nil
	}
	s.beginValue(int(length), true)
	return true, nil
}

// handleItemGroup dispatches the three structural tags of group 0xFFFE once
// their 32-bit length is read.
func (s *parseState) handleItemGroup(r *viewReader, length uint32) error {
	switch s.element {
	case 0xE000: // Item
		if s.frag != nil {
			if length == UndefinedLength {
				return newParseError(ErrMalformedItem, s.offset(r), "fragment item with undefined length")
			}
			if length > MaxValueLength {
				return newParseError(ErrValueTooLarge, s.offset(r), "%d bytes", length)
			}
			s.beginValue(int(length), false)
			return nil
		}
		if len(s.seqStack) == 0 {
			return newParseError(ErrMalformedItem, s.offset(r), "item outside sequence")
		}
		top := s.seqStack[len(s.seqStack)-1]
		if top.openItem != nil {
			return newParseError(ErrMalformedItem, s.offset(r), "nested item without prior delimitation")
		}
		if length != UndefinedLength {
			return newParseError(ErrUnsupportedExplicitLengthItem, s.offset(r), "item length %d", length)
		}
		top.openItem = itemTables.rent()
		s.current = top.openItem
		s.stage = stageGroup
		return nil

	case 0xE00D: // Item Delimitation
		if s.frag != nil {
			return newParseError(ErrMalformedItem, s.offset(r), "item delimitation inside fragments")
		}
		if length != 0 {
			return newParseError(ErrMalformedItem, s.offset(r), "item delimitation with length %d", length)
		}
		if len(s.seqStack) == 0 || s.seqStack[len(s.seqStack)-1].openItem == nil {
			return newParseError(ErrMalformedItem, s.offset(r), "orphan item delimitation")
		}
		top := s.seqStack[len(s.seqStack)-1]
		top.items = append(top.items, top.openItem)
		top.openItem = nil
		s.current = top.parent
		s.stage = stageGroup
		return nil

	case 0xE0DD: // Sequence Delimitation
		if length != 0 {
			return newParseError(ErrMalformedItem, s.offset(r), "sequence delimitation with length %d", length)
		}
		if s.frag != nil {
			elem := &DataElement{Tag: s.frag.tag, VR: s.frag.vr, ValueField: s.frag.fragments}
			s.cfg.log.Trace().Stringer("tag", elem.Tag).Int("fragments", len(s.frag.fragments)).Msg("fragments closed")
			s.frag = nil
			if err := s.insert(r, elem); err != nil {
				return err
			}
			s.stage = stageGroup
			return nil
		}
		if len(s.seqStack) == 0 {
			return newParseError(ErrMalformedItem, s.offset(r), "orphan sequence delimitation")
		}
		top := s.seqStack[len(s.seqStack)-1]
		if top.openItem != nil {
			return newParseError(ErrMalformedItem, s.offset(r), "sequence delimitation inside open item")
		}
		s.seqStack = s.seqStack[:len(s.seqStack)-1]
		elem := &DataElement{Tag: top.tag, VR: SQVR, ValueField: top.items}
		s.cfg.log.Trace().Stringer("tag", top.tag).Int("items", len(top.items)).Msg("sequence closed")
		s.current = top.parent
		if err := s.insert(r, elem); err != nil {
			return err
		}
		s.stage = stageGroup
		return nil
	}

	return newParseError(ErrMalformedItem, s.offset(r),
		"unexpected element %v under item group", NewTag(s.group, s.element))
}

func (s *parseState) openSequence() {
	frame := &sequenceFrame{tag: NewTag(s.group, s.element), parent: s.current}
	s.seqStack = append(s.seqStack, frame)
	s.cfg.log.Trace().Stringer("tag", frame.tag).Int("depth", len(s.seqStack)).Msg("sequence open")
	s.stage = stageGroup
}

// beginValue allocates the destination slice for the upcoming value bytes.
// Values with a 16-bit length share the bump block; 32-bit lengths get a
// dedicated block.
func (s *parseState) beginValue(length int, short bool) {
	if short {
		s.value = s.root.arena.allocShort(length)
	} else {
		s.value = s.root.arena.allocLong(length)
	}
	s.written = 0
	s.stage = stageValue
}

// completeValue runs once the value slice is fully copied: append to the open
// fragment list, or finalise and store the element.
func (s *parseState) completeValue(r *viewReader) error {
	value := s.value
	s.value = nil
	s.written = 0
	s.stage = stageGroup

	if s.frag != nil {
		s.frag.fragments = append(s.frag.fragments, value)
		return nil
	}

	tag := NewTag(s.group, s.element)
	if tag == TransferSyntaxUIDTag && isImplicitVRUID(value) {
		s.switchPending = true
	}
	if s.element == 0x0000 {
		// group lengths are redundant and not preserved
		return nil
	}
	return s.insert(r, &DataElement{Tag: tag, VR: s.vr, ValueField: value})
}

func (s *parseState) insert(r *viewReader, elem *DataElement) error {
	if !s.current.add(elem) {
		return newParseError(ErrMalformedItem, s.offset(r), "duplicate tag %v", elem.Tag)
	}
	s.cfg.log.Trace().Stringer("tag", elem.Tag).Stringer("vr", elem.VR).Msg("element")
	return nil
}

// isImplicitVRUID reports whether the value bytes are the Implicit VR Little
// Endian transfer syntax UID, optionally NUL-padded to even length.
func isImplicitVRUID(value []byte) bool {
	if n := len(value); n > 0 && value[n-1] == 0x00 {
		value = value[:n-1]
	}
	return string(value) == implicitVRLittleEndianUID
}
