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

// dcmdump parses a DICOM Part 10 file and prints its element tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/amoerie/dcmsharp/dicom"
)

var (
	maxValueChars = flag.Int("max-value-chars", 64, "Truncate printed values to this many characters")
	trace         = flag.Bool("trace", false, "Log every parsed element")
)

func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*trace {
		log = log.Level(zerolog.InfoLevel)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dcmdump [flags] <file.dcm>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	ds, err := dicom.ParseFile(context.Background(), path, dicom.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("parse failed")
	}
	defer ds.Dispose()

	dump(ds, 0)
}

func dump(ds *dicom.DataSet, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, tag := range ds.Tags() {
		elem, _ := ds.Get(tag)
		switch value := elem.ValueField.(type) {
		case []byte:
			fmt.Printf("%s%v %v #%d %s\n", indent, tag, elem.VR, len(value), printable(value))
		case [][]byte:
			total := 0
			for _, frag := range value {
				total += len(frag)
			}
			fmt.Printf("%s%v %v fragments=%d #%d\n", indent, tag, elem.VR, len(value), total)
		case []*dicom.DataSet:
			fmt.Printf("%s%v SQ items=%d\n", indent, tag, len(value))
			for i, item := range value {
				fmt.Printf("%s  item %d\n", indent, i)
				dump(item, depth+2)
			}
		}
	}
}

// printable renders a value as text if it looks like text, hex otherwise.
func printable(value []byte) string {
	if len(value) == 0 {
		return ""
	}
	text := true
	for _, b := range value {
		if (b < 0x20 || b > 0x7E) && b != 0x00 {
			text = false
			break
		}
	}
	s := ""
	if text {
		s = strings.TrimRight(string(value), "\x00 ")
	} else {
		limit := len(value)
		if limit > 16 {
			limit = 16
		}
		s = fmt.Sprintf("% x", value[:limit])
	}
	if len(s) > *maxValueChars {
		s = s[:*maxValueChars] + "..."
	}
	return "[" + s + "]"
}
