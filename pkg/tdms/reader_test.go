package tdms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/samjwillis97/GoModal/pkg/channel"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// enc writes TDMS scalars in one byte order.
type enc struct {
	bytes.Buffer
	order binary.ByteOrder
}

func (e *enc) u16(v uint16) {
	var b [2]byte
	e.order.PutUint16(b[:], v)
	e.Write(b[:])
}

func (e *enc) u32(v uint32) {
	var b [4]byte
	e.order.PutUint32(b[:], v)
	e.Write(b[:])
}

func (e *enc) u64(v uint64) {
	var b [8]byte
	e.order.PutUint64(b[:], v)
	e.Write(b[:])
}

func (e *enc) str(s string) {
	e.u32(uint32(len(s)))
	e.WriteString(s)
}

func (e *enc) f32(v float32) { e.u32(math.Float32bits(v)) }
func (e *enc) f64(v float64) { e.u64(math.Float64bits(v)) }

type testProp struct {
	name  string
	t     DataType
	write func(*enc)
}

func strProp(name, v string) testProp {
	return testProp{name, String, func(e *enc) { e.str(v) }}
}

func dblProp(name string, v float64) testProp {
	return testProp{name, DBL, func(e *enc) { e.f64(v) }}
}

type testObj struct {
	path string
	// header is written when index is nil
	header uint32
	index  *rawDataIndex
	props  []testProp
}

func channelObj(path string, t DataType, n uint64, props ...testProp) testObj {
	return testObj{path: path, index: &rawDataIndex{dataType: t, dimension: 1, numValues: n}, props: props}
}

func plainObj(path string, props ...testProp) testObj {
	return testObj{path: path, header: noRawData, props: props}
}

type testSegment struct {
	toc        uint32
	objects    []testObj
	raw        func(*enc)
	incomplete bool
}

func (s testSegment) bytes() []byte {
	order := binary.ByteOrder(binary.LittleEndian)
	if s.toc&kTocBigEndian != 0 {
		order = binary.BigEndian
	}
	meta := &enc{order: order}
	if s.toc&kTocMetaData != 0 {
		meta.u32(uint32(len(s.objects)))
		for _, o := range s.objects {
			meta.str(o.path)
			if o.index != nil {
				meta.u32(20)
				meta.u32(uint32(o.index.dataType))
				meta.u32(o.index.dimension)
				meta.u64(o.index.numValues)
			} else {
				meta.u32(o.header)
			}
			meta.u32(uint32(len(o.props)))
			for _, p := range o.props {
				meta.str(p.name)
				meta.u32(uint32(p.t))
				p.write(meta)
			}
		}
	}
	raw := &enc{order: order}
	if s.raw != nil {
		s.raw(raw)
	}

	out := &enc{order: binary.LittleEndian}
	out.WriteString(segmentTag)
	out.u32(s.toc)
	out.order = order
	out.u32(versionTDMS2)
	if s.incomplete {
		out.u64(incompleteSegment)
	} else {
		out.u64(uint64(meta.Len() + raw.Len()))
	}
	out.u64(uint64(meta.Len()))
	out.Write(meta.Bytes())
	out.Write(raw.Bytes())
	return out.Bytes()
}

func readFile(t *testing.T, segs ...testSegment) *File {
	t.Helper()
	var buf bytes.Buffer
	for _, s := range segs {
		buf.Write(s.bytes())
	}
	f, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return f
}

const newSegment = kTocMetaData | kTocNewObjList | kTocRawData

func TestReadContiguousChunks(t *testing.T) {
	first := testSegment{
		toc: newSegment,
		objects: []testObj{
			plainObj("/", strProp("name", "demo")),
			plainObj("/'Accel'", testProp{"test", Int32, func(e *enc) { e.u32(7) }}),
			channelObj("/'Accel'/'x'", DBL, 3, dblProp("wf_increment", 0.5), strProp("unit_string", "g")),
			channelObj("/'Accel'/'y'", SGL, 3),
		},
		raw: func(e *enc) {
			for c := 0; c < 2; c++ {
				for k := 1; k <= 3; k++ {
					e.f64(float64(3*c + k))
				}
				for k := 1; k <= 3; k++ {
					e.f32(float32(10 * (3*c + k)))
				}
			}
		},
	}
	second := testSegment{
		toc: kTocRawData,
		raw: func(e *enc) {
			for _, v := range []float64{7, 8, 9} {
				e.f64(v)
			}
			for _, v := range []float32{70, 80, 90} {
				e.f32(v)
			}
		},
	}

	f := readFile(t, first, second)

	assert.Equal(t, 2, f.NumSegments())
	assert.Equal(t, []string{"Accel"}, f.Groups())
	assert.Equal(t, []string{"x", "y"}, f.Channels("Accel"))

	x, err := f.ReadChannel("Accel", "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, x)
	y, err := f.ReadChannel("Accel", "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40, 50, 60, 70, 80, 90}, y)

	props, err := f.Properties("Accel", "x")
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "unit_string", props[0].Name)
	assert.Equal(t, "g", props[0].Value)
	assert.Equal(t, "wf_increment", props[1].Name)

	root, err := f.Properties()
	require.NoError(t, err)
	assert.Equal(t, "demo", root[0].String())
	group, err := f.Properties("Accel")
	require.NoError(t, err)
	assert.Equal(t, int64(7), group[0].Value)

	rate, err := f.SampleRate("Accel", "x")
	require.NoError(t, err)
	assert.Equal(t, 2.0, rate)
}

func TestAppendedObjectsAndMatchingIndex(t *testing.T) {
	first := testSegment{
		toc:     newSegment,
		objects: []testObj{channelObj("/'G'/'x'", DBL, 2, dblProp("gain", 1))},
		raw:     func(e *enc) { e.f64(1); e.f64(2) },
	}
	second := testSegment{
		toc: kTocMetaData | kTocRawData,
		objects: []testObj{
			{path: "/'G'/'x'", header: matchesPrevious, props: []testProp{dblProp("gain", 2)}},
			channelObj("/'G'/'y'", DBL, 2),
		},
		raw: func(e *enc) {
			for _, v := range []float64{3, 4, 5, 6} {
				e.f64(v)
			}
		},
	}

	f := readFile(t, first, second)

	x, err := f.ReadChannel("G", "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, x)
	y, err := f.ReadChannel("G", "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, y)

	props, err := f.Properties("G", "x")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, 2.0, props[0].Value)
	assert.Equal(t, []string{"G"}, f.Groups())
}

func TestNewObjectListDropsPrevious(t *testing.T) {
	first := testSegment{
		toc:     newSegment,
		objects: []testObj{channelObj("/'G'/'x'", DBL, 1), channelObj("/'G'/'y'", DBL, 1)},
		raw:     func(e *enc) { e.f64(1); e.f64(10) },
	}
	second := testSegment{
		toc:     newSegment,
		objects: []testObj{{path: "/'G'/'y'", header: matchesPrevious}},
		raw:     func(e *enc) { e.f64(20) },
	}

	f := readFile(t, first, second)

	x, err := f.ReadChannel("G", "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, x)
	y, err := f.ReadChannel("G", "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, y)
}

func TestInterleavedBigEndian(t *testing.T) {
	a := []int16{-1, 2, -3}
	b := []float32{0.5, 1.5, 2.5}
	seg := testSegment{
		toc:     newSegment | kTocInterleavedData | kTocBigEndian,
		objects: []testObj{channelObj("/'G'/'a'", Int16, 3), channelObj("/'G'/'b'", SGL, 3)},
		raw: func(e *enc) {
			for k := range a {
				e.u16(uint16(a[k]))
				e.f32(b[k])
			}
		},
	}

	f := readFile(t, seg)

	got, err := f.ReadChannel("G", "a")
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 2, -3}, got)
	got, err = f.ReadChannel("G", "b")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, got)
}

func TestComplexChannel(t *testing.T) {
	seg := testSegment{
		toc:     newSegment,
		objects: []testObj{channelObj("/'G'/'H'", ComplexDBL, 2), channelObj("/'G'/'Hs'", ComplexSGL, 1)},
		raw: func(e *enc) {
			e.f64(1)
			e.f64(2)
			e.f64(3)
			e.f64(-4)
			e.f32(0.25)
			e.f32(-0.5)
		},
	}

	f := readFile(t, seg)

	h, err := f.ReadChannel("G", "H")
	require.NoError(t, err)
	assert.Equal(t, []complex128{1 + 2i, 3 - 4i}, h)
	h, err = f.ReadChannel("G", "Hs")
	require.NoError(t, err)
	assert.Equal(t, []complex128{0.25 - 0.5i}, h)
}

func TestIncompleteTrailingSegment(t *testing.T) {
	seg := testSegment{
		toc:        newSegment,
		objects:    []testObj{channelObj("/'G'/'x'", DBL, 2)},
		raw:        func(e *enc) { e.f64(1); e.f64(2); e.f64(3) },
		incomplete: true,
	}

	f := readFile(t, seg)

	x, err := f.ReadChannel("G", "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, x)
}

func TestTimestampProperty(t *testing.T) {
	seg := testSegment{
		toc: kTocMetaData | kTocNewObjList,
		objects: []testObj{plainObj("/'G'", testProp{"wf_start_time", Timestamp, func(e *enc) {
			e.u64(1 << 63)
			e.u64(uint64(labviewEpochToUnix + 1e9))
		}})},
	}

	f := readFile(t, seg)

	props, err := f.Properties("G")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1e9, 5e8).UTC(), props[0].Value)
}

func TestReadRejects(t *testing.T) {
	_, err := Read(bytes.NewReader(bytes.Repeat([]byte("XXXX"), 8)))
	assert.True(t, errors.Is(err, failure.ErrIO))

	daqmx := testSegment{toc: newSegment | kTocDAQmxRawData}
	_, err = Read(bytes.NewReader(daqmx.bytes()))
	assert.True(t, errors.Is(err, failure.ErrInputShape))

	orphan := testSegment{toc: newSegment, objects: []testObj{{path: "/'G'/'x'", header: matchesPrevious}}}
	_, err = Read(bytes.NewReader(orphan.bytes()))
	assert.True(t, errors.Is(err, failure.ErrIO))
}

func TestReadChannelUnknown(t *testing.T) {
	f := readFile(t, testSegment{toc: newSegment, objects: []testObj{channelObj("/'G'/'x'", DBL, 0)}})

	_, err := f.ReadChannel("G", "nope")
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
	_, err = f.Properties("nope")
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))

	x, err := f.ReadChannel("G", "x")
	require.NoError(t, err)
	assert.Empty(t, x)
}

func TestObjectPaths(t *testing.T) {
	path := ObjectPath("it's", "x")
	assert.Equal(t, "/'it''s'/'x'", path)

	names, err := SplitPath(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"it's", "x"}, names)

	names, err = SplitPath("/")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = SplitPath("/'open")
	assert.Error(t, err)
	_, err = SplitPath("group")
	assert.Error(t, err)
}

func TestLoadGroup(t *testing.T) {
	seg := testSegment{
		toc: newSegment,
		objects: []testObj{
			plainObj("/'FRF'"),
			channelObj("/'FRF'/'freq'", DBL, 4),
			channelObj("/'FRF'/'acc'", ComplexDBL, 4,
				strProp("unit_string", "m/s"), strProp("NI_ChannelName", "Accel 1"), strProp("description", "tip")),
			channelObj("/'FRF'/'raw'", DBL, 4, dblProp("wf_increment", 0.25)),
		},
		raw: func(e *enc) {
			for k := 1; k <= 4; k++ {
				e.f64(float64(k))
			}
			for k := 1; k <= 4; k++ {
				e.f64(float64(k))
				e.f64(-float64(k))
			}
			for k := 1; k <= 4; k++ {
				e.f64(float64(10 * k))
			}
		},
	}
	f := readFile(t, seg)
	set := channel.NewSet()

	idx, err := LoadGroup(set, f, "FRF", LoadOptions{Axis: "freq"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, idx)

	acc, _ := set.Channel(0)
	assert.Equal(t, "Accel 1", acc.Name)
	assert.Equal(t, "m/s", acc.Units)
	assert.Equal(t, "tip", acc.Comments)
	h, ok := acc.Complex128s(DatasetFRF)
	require.True(t, ok)
	assert.Equal(t, channel.Complex128s{1 - 1i, 2 - 2i, 3 - 3i, 4 - 4i}, h)
	w, ok := acc.Float64s(DatasetAxis)
	require.True(t, ok)
	assert.Equal(t, channel.Float64s{1, 2, 3, 4}, w)

	raw, _ := set.Channel(1)
	assert.Equal(t, "raw", raw.Name)
	assert.Equal(t, []string{DatasetAxis, DatasetData, DatasetTime}, raw.DatasetIDs())
	ts, _ := raw.Float64s(DatasetTime)
	assert.Equal(t, channel.Float64s{0, 0.25, 0.5, 0.75}, ts)

	_, err = LoadGroup(set, f, "missing", LoadOptions{})
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
	_, err = LoadGroup(set, f, "FRF", LoadOptions{Axis: "missing"})
	assert.True(t, errors.Is(err, failure.ErrUnknownKey))
}
