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

package pfd

// Backend is the capability surface a self-describing format (HDF4, HDF5,
// netCDF, CDF, GRIB, XML, RINEX, SP3) must implement. The cursor
// engine dispatches to a Backend whenever a frame's type originates from
// one of these formats instead of computing bit offsets itself; ASCII and
// binary frames never reach a Backend.
//
// Every method takes the dynamic type currently bound to a frame and
// returns either a new dynamic type (for a goto) or a leaf value. A
// Backend that does not support an operation for a given type_class
// returns an [InvalidType] error rather than panicking; the cursor engine
// guarantees it never calls an operation a type_class does not logically
// support.
type Backend interface {
	Format() Format

	// RootType returns the dynamic root type discovered for data, the raw
	// backend-owned bytes or handle (opaque to this package) describing
	// the product.
	RootType(data any) (Type, error)

	GotoRecordFieldByIndex(frameType Type, index int) (Type, error)
	GotoNextRecordField(frameType Type, index int) (Type, error)
	GotoAvailableUnionField(frameType Type) (Type, int, error)
	GotoArrayElement(frameType Type, subs []int64) (Type, error)
	GotoArrayElementByIndex(frameType Type, index int64) (Type, error)
	GotoNextArrayElement(frameType Type, index int64) (Type, error)
	GotoAttributes(frameType Type) (Type, error)
	UseBaseTypeOfSpecialType(frameType Type) (Type, error)

	GetBitSize(frameType Type) (int64, error)
	GetNumElements(frameType Type) (int64, error)
	GetStringLength(frameType Type) (int64, error)
	GetArrayDim(frameType Type) ([]int64, error)
	GetRecordFieldAvailableStatus(frameType Type, index int) (bool, error)
	GetAvailableUnionFieldIndex(frameType Type) (int, error)

	ReadBool(frameType Type) (bool, error)
	ReadInt(frameType Type) (int64, error)
	ReadFloat(frameType Type) (float64, error)
	ReadString(frameType Type) (string, error)
	ReadBytes(frameType Type) ([]byte, error)
}
