package tdms

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// decoder reads TDMS scalars from r in one byte order. The first error is
// kept and every later read returns zero values.
type decoder struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [16]byte
	err   error
}

func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return d.buf[:n]
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		d.err = err
	}
	return d.buf[:n]
}

func (d *decoder) uint32() uint32 {
	return d.order.Uint32(d.read(4))
}

func (d *decoder) uint64() uint64 {
	return d.order.Uint64(d.read(8))
}

// string reads a length prefixed UTF-8 string.
func (d *decoder) string() string {
	n := d.uint32()
	if d.err != nil {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = err
		return ""
	}
	return string(b)
}

// value reads one property value of type t.
func (d *decoder) value(t DataType) (interface{}, error) {
	if t == String {
		return d.string(), d.err
	}
	size := t.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported property type %s", t)
	}
	b := d.read(size)
	if d.err != nil {
		return nil, d.err
	}
	return decodeScalar(b, t, d.order), nil
}

// decodeScalar converts one raw value. Signed integers widen to int64,
// unsigned to uint64, floats to float64 and complex values to complex128.
func decodeScalar(b []byte, t DataType, order binary.ByteOrder) interface{} {
	switch t {
	case Int8:
		return int64(int8(b[0]))
	case Int16:
		return int64(int16(order.Uint16(b)))
	case Int32:
		return int64(int32(order.Uint32(b)))
	case Int64:
		return int64(order.Uint64(b))
	case Uint8:
		return uint64(b[0])
	case Uint16:
		return uint64(order.Uint16(b))
	case Uint32:
		return uint64(order.Uint32(b))
	case Uint64:
		return order.Uint64(b)
	case SGL, SGLwUnit:
		return float64(math.Float32frombits(order.Uint32(b)))
	case DBL, DBLwUnit:
		return math.Float64frombits(order.Uint64(b))
	case Boolean:
		return b[0] != 0
	case Timestamp:
		return decodeTime(b, order)
	case ComplexSGL:
		re := math.Float32frombits(order.Uint32(b[0:4]))
		im := math.Float32frombits(order.Uint32(b[4:8]))
		return complex(float64(re), float64(im))
	case ComplexDBL:
		re := math.Float64frombits(order.Uint64(b[0:8]))
		im := math.Float64frombits(order.Uint64(b[8:16]))
		return complex(re, im)
	}
	return nil
}

// decodeTime converts a LabVIEW timestamp: seconds since 1904-01-01 UTC and
// positive fractions of 2^-64 s. Little endian files store the fractions
// first.
func decodeTime(b []byte, order binary.ByteOrder) time.Time {
	var fractions uint64
	var seconds int64
	if order == binary.LittleEndian {
		fractions = order.Uint64(b[0:8])
		seconds = int64(order.Uint64(b[8:16]))
	} else {
		seconds = int64(order.Uint64(b[0:8]))
		fractions = order.Uint64(b[8:16])
	}
	nanos := int64(float64(fractions) * math.Pow(2, -64) * 1e9)
	return time.Unix(seconds-labviewEpochToUnix, nanos).UTC()
}

// decodeFloat converts one raw numeric value to float64.
func decodeFloat(b []byte, t DataType, order binary.ByteOrder) float64 {
	switch v := decodeScalar(b, t, order).(type) {
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}
