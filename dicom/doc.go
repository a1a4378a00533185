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

// Package dicom implements an incremental parser for the DICOM Part 10 file
// format as specified in
// [http://dicom.nema.org/medical/dicom/current/output/pdf/part05.pdf].
//
// The parser reads its input through a segmented byte pipe fed by a producer
// goroutine, so it tolerates the source delivering arbitrarily small chunks:
// a tag, a length field, or a value payload may all be split across reads.
// Value bytes are copied into pooled arena blocks owned by the resulting
// DataSet; the byte slices exposed through the DataSet are views into those
// blocks and become invalid once the DataSet is disposed. Callers therefore
// must call DataSet.Dispose exactly once when done with a parse result, and
// must not retain value slices past that point.
package dicom
