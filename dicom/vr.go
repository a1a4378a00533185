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

// UndefinedLength as specified
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
const UndefinedLength = 0xffffffff

// MaxValueLength is the largest supported value field length in bytes. Values
// longer than this are rejected with ErrValueTooLarge.
const MaxValueLength = 2_147_483_591

// VR models the DICOM Value Representations (VR)
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
type VR struct {
	// Name represents the 2-character VR Code
	Name string

	// length32 is true for VRs whose value length is encoded as a 32-bit
	// integer (after 2 reserved bytes) in the explicit VR transfer syntaxes,
	// per http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
	length32 bool
}

func (vr *VR) String() string {
	return vr.Name
}

// has32BitLength reports whether the VR carries a 32-bit length field in the
// explicit VR encoding. In the implicit VR encoding every length is 32 bits.
func (vr *VR) has32BitLength() bool {
	return vr.length32
}

var vrCodes = map[uint16]*VR{}

func newVR(text string, length32 bool) *VR {
	vr := &VR{text, length32}
	vrCodes[uint16(text[0])<<8|uint16(text[1])] = vr

	return vr
}

// lookupVRByCode decodes the two ASCII bytes of an explicit VR field. The
// second return is false for byte pairs outside the 34-entry table.
func lookupVRByCode(b0, b1 byte) (*VR, bool) {
	vr, ok := vrCodes[uint16(b0)<<8|uint16(b1)]
	return vr, ok
}

// VR list obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
var (
	// textual VRs
	CSVR = newVR("CS", false)
	SHVR = newVR("SH", false)
	LOVR = newVR("LO", false)
	STVR = newVR("ST", false)
	LTVR = newVR("LT", false)
	ASVR = newVR("AS", false)

	// person name
	PNVR = newVR("PN", false)

	// application entity
	AEVR = newVR("AE", false)

	// dates/time VRs
	DAVR = newVR("DA", false)
	TMVR = newVR("TM", false)
	DTVR = newVR("DT", false)

	// textual numbers
	ISVR = newVR("IS", false)
	DSVR = newVR("DS", false)

	// binary numbers
	SSVR = newVR("SS", false)
	USVR = newVR("US", false)
	SLVR = newVR("SL", false)
	ULVR = newVR("UL", false)
	SVVR = newVR("SV", true)
	UVVR = newVR("UV", true)
	FLVR = newVR("FL", false)
	FDVR = newVR("FD", false)

	// large binary sequences
	OBVR = newVR("OB", true)
	ODVR = newVR("OD", true)
	OLVR = newVR("OL", true)
	OVVR = newVR("OV", true)
	OWVR = newVR("OW", true)
	OFVR = newVR("OF", true)

	// unlimited char
	UCVR = newVR("UC", true)

	// unknown
	UNVR = newVR("UN", true)

	// URL
	URVR = newVR("UR", true)

	// unlimited text
	UTVR = newVR("UT", true)

	// attribute tag
	ATVR = newVR("AT", false)

	// unique identifier
	UIVR = newVR("UI", false)

	// sequence
	SQVR = newVR("SQ", true)
)
