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

// dictionaryVRs maps tags of the registry in
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html to their
// VRs, for inferring the VR of elements read under the implicit VR transfer
// syntax. The table covers the tags commonly found in imaging data sets; tags
// outside the table fall back to UN.
var dictionaryVRs = map[DataElementTag]*VR{
	FileMetaInformationGroupLengthTag: ULVR,
	FileMetaInformationVersionTag:     OBVR,
	MediaStorageSOPClassUIDTag:        UIVR,
	MediaStorageSOPInstanceUIDTag:     UIVR,
	TransferSyntaxUIDTag:              UIVR,
	ImplementationClassUIDTag:         UIVR,
	ImplementationVersionNameTag:      SHVR,

	SpecificCharacterSetTag:     CSVR,
	ImageTypeTag:                CSVR,
	NewTag(0x0008, 0x0012):      DAVR, // Instance Creation Date
	NewTag(0x0008, 0x0013):      TMVR, // Instance Creation Time
	SOPClassUIDTag:              UIVR,
	SOPInstanceUIDTag:           UIVR,
	StudyDateTag:                DAVR,
	SeriesDateTag:               DAVR,
	NewTag(0x0008, 0x0022):      DAVR, // Acquisition Date
	NewTag(0x0008, 0x0023):      DAVR, // Content Date
	StudyTimeTag:                TMVR,
	NewTag(0x0008, 0x0031):      TMVR, // Series Time
	NewTag(0x0008, 0x0032):      TMVR, // Acquisition Time
	NewTag(0x0008, 0x0033):      TMVR, // Content Time
	AccessionNumberTag:          SHVR,
	ModalityTag:                 CSVR,
	ManufacturerTag:             LOVR,
	NewTag(0x0008, 0x0080):      LOVR, // Institution Name
	ReferringPhysicianNameTag:   PNVR,
	CodeValueTag:                SHVR,
	CodingSchemeDesignatorTag:   SHVR,
	CodeMeaningTag:              LOVR,
	NewTag(0x0008, 0x1010):      SHVR, // Station Name
	StudyDescriptionTag:         LOVR,
	SeriesDescriptionTag:        LOVR,
	NewTag(0x0008, 0x1090):      LOVR, // Manufacturer Model Name
	ReferencedStudySequenceTag:  SQVR,
	NewTag(0x0008, 0x1115):      SQVR, // Referenced Series Sequence
	ReferencedImageSequenceTag:  SQVR,
	ReferencedSOPClassUIDTag:    UIVR,
	ReferencedSOPInstanceUIDTag: UIVR,
	SourceImageSequenceTag:      SQVR,

	PatientNameTag:         PNVR,
	PatientIDTag:           LOVR,
	PatientBirthDateTag:    DAVR,
	PatientSexTag:          CSVR,
	NewTag(0x0010, 0x1010): ASVR, // Patient Age
	NewTag(0x0010, 0x1020): DSVR, // Patient Size
	NewTag(0x0010, 0x1030): DSVR, // Patient Weight

	NewTag(0x0018, 0x0015): CSVR, // Body Part Examined
	NewTag(0x0018, 0x0050): DSVR, // Slice Thickness
	NewTag(0x0018, 0x0060): DSVR, // KVP
	NewTag(0x0018, 0x1030): LOVR, // Protocol Name
	NewTag(0x0018, 0x5100): CSVR, // Patient Position

	StudyInstanceUIDTag:    UIVR,
	SeriesInstanceUIDTag:   UIVR,
	StudyIDTag:             SHVR,
	SeriesNumberTag:        ISVR,
	InstanceNumberTag:      ISVR,
	NewTag(0x0020, 0x0032): DSVR, // Image Position (Patient)
	NewTag(0x0020, 0x0037): DSVR, // Image Orientation (Patient)
	NewTag(0x0020, 0x0052): UIVR, // Frame of Reference UID
	NewTag(0x0020, 0x1041): DSVR, // Slice Location

	SamplesPerPixelTag:           USVR,
	PhotometricInterpretationTag: CSVR,
	NewTag(0x0028, 0x0008):       ISVR, // Number of Frames
	RowsTag:                      USVR,
	ColumnsTag:                   USVR,
	NewTag(0x0028, 0x0030):       DSVR, // Pixel Spacing
	BitsAllocatedTag:             USVR,
	BitsStoredTag:                USVR,
	HighBitTag:                   USVR,
	PixelRepresentationTag:       USVR,
	NewTag(0x0028, 0x1050):       DSVR, // Window Center
	NewTag(0x0028, 0x1051):       DSVR, // Window Width
	RescaleInterceptTag:          DSVR,
	RescaleSlopeTag:              DSVR,
	RescaleTypeTag:               LOVR,
	NewTag(0x0028, 0x1101):       USVR, // Red Palette Color Lookup Table Descriptor
	NewTag(0x0028, 0x1102):       USVR, // Green Palette Color Lookup Table Descriptor
	NewTag(0x0028, 0x1103):       USVR, // Blue Palette Color Lookup Table Descriptor
	NewTag(0x0028, 0x1201):       OWVR, // Red Palette Color Lookup Table Data
	NewTag(0x0028, 0x1202):       OWVR, // Green Palette Color Lookup Table Data
	NewTag(0x0028, 0x1203):       OWVR, // Blue Palette Color Lookup Table Data

	PlacerOrderNumberTag:              LOVR,
	FillerOrderNumberTag:              LOVR,
	PurposeOfReferenceCodeSequenceTag: SQVR,

	PixelDataTag: OWVR,
}

// DictionaryVR returns the VR of the DataElementTag according to the DICOM
// data dictionary. If the tag is not in the dictionary, UN is returned.
func (t DataElementTag) DictionaryVR() *VR {
	if vr, ok := dictionaryVRs[t]; ok {
		return vr
	}
	return UNVR
}
