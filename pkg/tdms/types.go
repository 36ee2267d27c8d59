package tdms

import (
	"fmt"
	"strings"
)

// DataType is a TDMS data type code.
type DataType uint32

const (
	Void       DataType = 0
	Int8       DataType = 1
	Int16      DataType = 2
	Int32      DataType = 3
	Int64      DataType = 4
	Uint8      DataType = 5
	Uint16     DataType = 6
	Uint32     DataType = 7
	Uint64     DataType = 8
	SGL        DataType = 9
	DBL        DataType = 10
	EXT        DataType = 11
	SGLwUnit   DataType = 0x19
	DBLwUnit   DataType = 0x1A
	EXTwUnit   DataType = 0x1B
	String     DataType = 0x20
	Boolean    DataType = 0x21
	Timestamp  DataType = 0x44
	ComplexSGL DataType = 0x08000C
	ComplexDBL DataType = 0x10000D
	DAQmx      DataType = 0xFFFFFFFF
)

// ToC mask bits of the lead in
const (
	kTocMetaData        uint32 = 0x2
	kTocNewObjList      uint32 = 0x4
	kTocRawData         uint32 = 0x8
	kTocInterleavedData uint32 = 0x20
	kTocBigEndian       uint32 = 0x40
	kTocDAQmxRawData    uint32 = 0x80
)

// Raw data index headers with a special meaning
const (
	noRawData           uint32 = 0xFFFFFFFF
	matchesPrevious     uint32 = 0x00000000
	daqmxFormatChanging uint32 = 0x00001269
	daqmxDigitalLine    uint32 = 0x00001369
)

const (
	segmentTag         = "TDSm"
	leadInSize         = 28
	versionTDMS2       = 4713
	incompleteSegment  = uint64(0xFFFFFFFFFFFFFFFF)
	labviewEpochToUnix = int64(2082844800)
)

// Size returns the width of one value in bytes, 0 for variable width or
// unsupported types.
func (t DataType) Size() int {
	switch t {
	case Int8, Uint8, Boolean:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, SGL, SGLwUnit:
		return 4
	case Int64, Uint64, DBL, DBLwUnit, ComplexSGL:
		return 8
	case Timestamp, ComplexDBL:
		return 16
	}
	return 0
}

// Numeric reports whether raw values of t convert to float64.
func (t DataType) Numeric() bool {
	switch t {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, SGL, DBL, SGLwUnit, DBLwUnit, Boolean:
		return true
	}
	return false
}

// Complex reports whether t is a complex type.
func (t DataType) Complex() bool {
	return t == ComplexSGL || t == ComplexDBL
}

func (t DataType) String() string {
	switch t {
	case Void:
		return "void"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case SGL, SGLwUnit:
		return "sgl"
	case DBL, DBLwUnit:
		return "dbl"
	case EXT, EXTwUnit:
		return "ext"
	case String:
		return "string"
	case Boolean:
		return "bool"
	case Timestamp:
		return "timestamp"
	case ComplexSGL:
		return "complex_sgl"
	case ComplexDBL:
		return "complex_dbl"
	case DAQmx:
		return "daqmx"
	}
	return fmt.Sprintf("type(0x%x)", uint32(t))
}

// ObjectPath builds the TDMS path of a group, or of a channel when a channel
// name is given. Single quotes in names are doubled.
func ObjectPath(names ...string) string {
	if len(names) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, n := range names {
		b.WriteString("/'")
		b.WriteString(strings.ReplaceAll(n, "'", "''"))
		b.WriteString("'")
	}
	return b.String()
}

// SplitPath returns the unquoted components of a TDMS object path.
func SplitPath(path string) ([]string, error) {
	var out []string
	i := 0
	for i < len(path) {
		if path[i] != '/' || i+1 >= len(path) || path[i+1] != '\'' {
			if path == "/" {
				return nil, nil
			}
			return nil, fmt.Errorf("malformed object path %q", path)
		}
		i += 2
		var b strings.Builder
		closed := false
		for i < len(path) {
			if path[i] == '\'' {
				if i+1 < len(path) && path[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				i++
				closed = true
				break
			}
			b.WriteByte(path[i])
			i++
		}
		if !closed {
			return nil, fmt.Errorf("unterminated name in object path %q", path)
		}
		out = append(out, b.String())
	}
	return out, nil
}
