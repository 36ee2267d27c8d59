package tdms

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/samjwillis97/GoModal/pkg/failure"
	log "github.com/sirupsen/logrus"
)

// Data is written in segments, every time data is appended to a TDMS file a
// new segment is created. A segment consists of a lead in, meta data and raw
// data, and may reuse the object list of the segment before it.
type segment struct {
	pos     int64
	dataPos int64
	nextPos int64
	toc     uint32
	version uint32
	order   binary.ByteOrder

	// objects in raw data order
	objects   []segmentObject
	chunkSize int64
	numChunks int64
}

func (s *segment) interleaved() bool {
	return s.toc&kTocInterleavedData != 0
}

type segmentObject struct {
	path    string
	hasData bool
	index   rawDataIndex
}

// Information from the raw data index
type rawDataIndex struct {
	dataType  DataType
	dimension uint32
	numValues uint64
	// totalSize is only stored for strings
	totalSize uint64
}

// size returns the bytes one object occupies in one chunk.
func (ri rawDataIndex) size() int64 {
	if ri.dataType == String {
		return int64(ri.totalSize)
	}
	return int64(ri.dataType.Size()) * int64(ri.dimension) * int64(ri.numValues)
}

// File is a parsed TDMS file. Raw data is read on demand.
type File struct {
	r        io.ReadSeeker
	closer   io.Closer
	size     int64
	segments []*segment

	paths []string
	props map[string]*propertySet
}

// Open opens and indexes the TDMS file at name.
func Open(name string) (*File, error) {
	fh, err := os.Open(name)
	if err != nil {
		return nil, failure.Wrap(failure.IO, "tdms.Open", err)
	}
	f, err := Read(fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	f.closer = fh
	return f, nil
}

// Close closes the underlying file when it was opened by Open.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Read indexes every segment of the TDMS data in r.
func Read(r io.ReadSeeker) (*File, error) {
	const op = "tdms.Read"
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, failure.Wrap(failure.IO, op, err)
	}
	f := &File{r: r, size: size, props: make(map[string]*propertySet)}

	known := make(map[string]rawDataIndex)
	var prev *segment
	pos := int64(0)
	for pos < size {
		if size-pos < leadInSize {
			log.Debugf("Ignoring %d trailing bytes at %d", size-pos, pos)
			break
		}
		seg, err := f.readSegment(pos, prev, known)
		if err != nil {
			err = fmt.Errorf("segment at %d: %w", pos, err)
			if failure.KindOf(err) != failure.Unknown {
				return nil, err
			}
			return nil, failure.Wrap(failure.IO, op, err)
		}
		f.segments = append(f.segments, seg)
		prev = seg
		pos = seg.nextPos
	}
	log.Debugf("Finished reading %d TDMS segments", len(f.segments))
	return f, nil
}

func (f *File) readSegment(pos int64, prev *segment, known map[string]rawDataIndex) (*segment, error) {
	if _, err := f.r.Seek(pos, io.SeekStart); err != nil {
		return nil, err
	}
	log.Debugf("Reading TDMS segment starting at: %d", pos)

	// Lead in: tag, ToC mask (always little endian), version, next segment
	// offset and raw data offset
	tag := make([]byte, 4)
	if _, err := io.ReadFull(f.r, tag); err != nil {
		return nil, err
	}
	if string(tag) != segmentTag {
		return nil, fmt.Errorf("segment tag %q is not %q", tag, segmentTag)
	}
	d := &decoder{r: f.r, order: binary.LittleEndian}
	seg := &segment{pos: pos, toc: d.uint32()}
	if seg.toc&kTocBigEndian != 0 {
		d.order = binary.BigEndian
	}
	seg.order = d.order
	seg.version = d.uint32()
	nextOffset := d.uint64()
	rawOffset := d.uint64()
	if d.err != nil {
		return nil, d.err
	}
	if seg.version != versionTDMS2 {
		log.Debugf("Segment version %d", seg.version)
	}
	if seg.toc&kTocDAQmxRawData != 0 {
		return nil, failure.New(failure.InputShape, "tdms.readSegment", "DAQmx raw data is unsupported")
	}

	seg.dataPos = pos + leadInSize + int64(rawOffset)
	if nextOffset == incompleteSegment {
		log.Debugln("Segment incomplete, reading to end of file")
		seg.nextPos = f.size
	} else {
		seg.nextPos = pos + leadInSize + int64(nextOffset)
	}
	if seg.nextPos > f.size {
		log.Warnf("Segment at %d truncated, %d bytes missing", pos, seg.nextPos-f.size)
		seg.nextPos = f.size
	}
	if seg.dataPos > seg.nextPos {
		return nil, fmt.Errorf("raw data offset %d beyond segment end", rawOffset)
	}

	if err := f.readMetaData(d, seg, prev, known); err != nil {
		return nil, err
	}

	if seg.toc&kTocRawData != 0 {
		for _, obj := range seg.objects {
			if obj.hasData {
				seg.chunkSize += obj.index.size()
			}
		}
		if seg.chunkSize > 0 {
			region := seg.nextPos - seg.dataPos
			seg.numChunks = region / seg.chunkSize
			if rem := region % seg.chunkSize; rem != 0 {
				log.Debugf("Ignoring %d bytes of partial chunk in segment at %d", rem, pos)
			}
		}
	}
	log.Debugf("Segment at %d: %d objects, %d chunks of %d bytes", pos, len(seg.objects), seg.numChunks, seg.chunkSize)
	return seg, nil
}

// readMetaData builds the object list of seg. Without meta data the previous
// list is reused; without a new object list flag the objects read update or
// extend the previous list.
func (f *File) readMetaData(d *decoder, seg, prev *segment, known map[string]rawDataIndex) error {
	if prev != nil {
		seg.objects = append(seg.objects, prev.objects...)
	}
	if seg.toc&kTocMetaData == 0 {
		log.Debugln("Reuse previous segment metadata")
		return nil
	}
	if seg.toc&kTocNewObjList != 0 {
		seg.objects = seg.objects[:0]
	}

	numObjects := d.uint32()
	for i := uint32(0); i < numObjects && d.err == nil; i++ {
		path := d.string()
		header := d.uint32()
		if d.err != nil {
			break
		}
		f.addPath(path)

		obj := segmentObject{path: path}
		switch header {
		case noRawData:
		case matchesPrevious:
			idx, ok := known[path]
			if !ok {
				return fmt.Errorf("raw data index of %s matches previous, though this object has not been seen before", path)
			}
			obj.hasData, obj.index = true, idx
		case daqmxFormatChanging, daqmxDigitalLine:
			return failure.New(failure.InputShape, "tdms.readMetaData", "DAQmx raw data index on %s is unsupported", path)
		default:
			idx := rawDataIndex{
				dataType:  DataType(d.uint32()),
				dimension: d.uint32(),
				numValues: d.uint64(),
			}
			if idx.dataType == String {
				idx.totalSize = d.uint64()
			}
			if d.err != nil {
				break
			}
			if idx.dimension != 1 {
				return fmt.Errorf("%s has array dimension %d, TDMS 2.0 requires 1", path, idx.dimension)
			}
			known[path] = idx
			obj.hasData, obj.index = true, idx
		}
		log.Debugf("Object %s, raw data %t", path, obj.hasData)

		replaced := false
		for k := range seg.objects {
			if seg.objects[k].path == path {
				seg.objects[k] = obj
				replaced = true
				break
			}
		}
		if !replaced {
			seg.objects = append(seg.objects, obj)
		}

		numProperties := d.uint32()
		for j := uint32(0); j < numProperties && d.err == nil; j++ {
			name := d.string()
			t := DataType(d.uint32())
			if d.err != nil {
				break
			}
			value, err := d.value(t)
			if err != nil {
				return fmt.Errorf("property %s of %s: %w", name, path, err)
			}
			f.setProperty(path, Property{Name: name, Type: t, Value: value})
		}
	}
	return d.err
}

func (f *File) addPath(path string) {
	if _, ok := f.props[path]; ok {
		return
	}
	f.props[path] = newPropertySet()
	f.paths = append(f.paths, path)
}

// Groups returns the group names in order of appearance.
func (f *File) Groups() []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range f.paths {
		names, err := SplitPath(p)
		if err != nil || len(names) == 0 || seen[names[0]] {
			continue
		}
		seen[names[0]] = true
		out = append(out, names[0])
	}
	return out
}

// HasGroup reports whether group appears in the file.
func (f *File) HasGroup(group string) bool {
	for _, g := range f.Groups() {
		if g == group {
			return true
		}
	}
	return false
}

// Channels returns the channel names of group in order of appearance.
func (f *File) Channels(group string) []string {
	var out []string
	for _, p := range f.paths {
		names, err := SplitPath(p)
		if err != nil || len(names) != 2 || names[0] != group {
			continue
		}
		out = append(out, names[1])
	}
	return out
}

// HasChannel reports whether the channel appears in group.
func (f *File) HasChannel(group, name string) bool {
	_, ok := f.props[ObjectPath(group, name)]
	return ok
}

// NumSegments returns the number of segments indexed.
func (f *File) NumSegments() int {
	return len(f.segments)
}

// ReadChannel reads every value of a channel across all segments. Numeric
// channels are returned as []float64 and complex channels as []complex128.
func (f *File) ReadChannel(group, name string) (interface{}, error) {
	const op = "tdms.ReadChannel"
	path := ObjectPath(group, name)
	if _, ok := f.props[path]; !ok {
		return nil, failure.New(failure.UnknownKey, op, "no channel %s", path)
	}

	var dataType DataType
	var reals []float64
	var complexes []complex128
	for _, seg := range f.segments {
		offset, width, obj, ok := seg.locate(path)
		if !ok {
			continue
		}
		t := obj.index.dataType
		if dataType == Void {
			dataType = t
		} else if t != dataType {
			return nil, failure.New(failure.InputShape, op, "%s changes type from %s to %s", path, dataType, t)
		}
		if !t.Numeric() && !t.Complex() {
			return nil, failure.New(failure.InputShape, op, "%s raw data of type %s is unsupported", path, t)
		}

		size := t.Size()
		n := int(obj.index.numValues)
		for c := int64(0); c < seg.numChunks; c++ {
			chunkPos := seg.dataPos + c*seg.chunkSize
			var buf []byte
			var stride int
			if seg.interleaved() {
				buf = make([]byte, seg.chunkSize)
				if err := f.readAt(chunkPos, buf); err != nil {
					return nil, failure.Wrap(failure.IO, op, err)
				}
				buf = buf[offset:]
				stride = width
			} else {
				buf = make([]byte, n*size)
				if err := f.readAt(chunkPos+offset, buf); err != nil {
					return nil, failure.Wrap(failure.IO, op, err)
				}
				stride = size
			}
			for k := 0; k < n; k++ {
				b := buf[k*stride : k*stride+size]
				if t.Complex() {
					complexes = append(complexes, decodeScalar(b, t, seg.order).(complex128))
				} else {
					reals = append(reals, decodeFloat(b, t, seg.order))
				}
			}
		}
	}
	log.Debugf("Read %d values of %s", len(reals)+len(complexes), path)
	if dataType.Complex() {
		return complexes, nil
	}
	if reals == nil {
		reals = []float64{}
	}
	return reals, nil
}

// locate returns where the values of path start within a chunk and, for
// interleaved data, the width of one row of values.
func (s *segment) locate(path string) (offset int64, width int, obj segmentObject, found bool) {
	if s.numChunks == 0 {
		return 0, 0, obj, false
	}
	for _, o := range s.objects {
		if !o.hasData {
			continue
		}
		if o.path == path {
			obj, found = o, true
		}
		if s.interleaved() {
			if !found {
				offset += int64(o.index.dataType.Size())
			}
			width += o.index.dataType.Size()
		} else if !found {
			offset += o.index.size()
		}
	}
	return offset, width, obj, found
}

func (f *File) readAt(pos int64, buf []byte) error {
	if _, err := f.r.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(f.r, buf)
	return err
}
