// Copyright 2025 The PFD Authors.
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

package bitio

import (
	"fmt"
	"strconv"
	"strings"
)

// ASCIINumberParser converts the raw text of an ascii integer/float leaf
// into its numeric value. The default parser tolerates leading/trailing
// whitespace and a leading sign, matching typical fixed-width ASCII
// product fields. The cursor engine always uses
// [DefaultASCIINumberParser]; it has no hook for supplying another
// implementation.
type ASCIINumberParser interface {
	ParseInt(text string) (int64, error)
	ParseFloat(text string) (float64, error)
}

// DefaultASCIINumberParser trims surrounding whitespace and accepts a
// leading '+' or '-' sign before the digits, the tolerance libcoda's ASCII
// backend applies to fixed-width numeric fields.
type DefaultASCIINumberParser struct{}

func (DefaultASCIINumberParser) ParseInt(text string) (int64, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, fmt.Errorf("bitio: empty ascii integer field")
	}
	return strconv.ParseInt(t, 10, 64)
}

func (DefaultASCIINumberParser) ParseFloat(text string) (float64, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, fmt.Errorf("bitio: empty ascii float field")
	}
	// Fortran-style exponent markers occasionally replace 'E'/'e'.
	t = strings.NewReplacer("D", "E", "d", "e").Replace(t)
	return strconv.ParseFloat(t, 64)
}

// Line extracts the text from data starting at byteOffset up to (and
// depending on includeEOL, including) the next line terminator, matching
// ASCII "special text" line semantics. It recognizes \n, \r\n, and a bare
// \r as terminators.
func Line(data []byte, byteOffset int64, includeEOL bool) (string, error) {
	if byteOffset < 0 || byteOffset > int64(len(data)) {
		return "", fmt.Errorf("bitio: line offset %d out of range for buffer of %d bytes", byteOffset, len(data))
	}
	i := byteOffset
	for i < int64(len(data)) {
		switch data[i] {
		case '\n':
			if includeEOL {
				return string(data[byteOffset : i+1]), nil
			}
			return string(data[byteOffset:i]), nil
		case '\r':
			end := i
			if includeEOL {
				end++
				if end < int64(len(data)) && data[end] == '\n' {
					end++
				}
				return string(data[byteOffset:end]), nil
			}
			return string(data[byteOffset:i]), nil
		}
		i++
	}
	return string(data[byteOffset:]), nil
}
