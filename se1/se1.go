// Package se1 reads the segmented-Chebyshev binary ephemeris format
// ("SE1"): an ASCII header (CR-LF terminated lines) followed by a
// binary tail of per-body index tables and packed Chebyshev coefficient
// segments. The host supplies the file contents as an in-memory byte
// buffer; this package never performs file I/O itself.
package se1

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/anupshinde/goeph/mathkernel"
)

// endiannessMarker is the 4-byte probe value that begins the binary
// tail; Read uses it to find the header/tail boundary. The tail is always
// read as little-endian; the marker's byte order is not examined.
const endiannessMarker = 0x616263 // ASCII "abc"

// ErrCRCMismatch indicates the header's declared CRC-32 does not match
// the actual checksum of the binary tail.
var ErrCRCMismatch = errors.New("se1: CRC-32 mismatch")

// ErrBadEndianMarker indicates the endianness probe was not found where
// expected, meaning the file is truncated or not an SE1 file at all.
var ErrBadEndianMarker = errors.New("se1: endianness marker not found")

// Header carries the parsed ASCII header fields of an SE1 file.
type Header struct {
	DENumber    int
	BodyCount   int
	BodyIndices []int
	StartJD     float64
	EndJD       float64
	SegmentDays float64
	PolyDegree  int
	CRC32       uint32
}

// Segment holds one body's packed Chebyshev coefficients over one time
// span. These describe a perturbation on top of a reference ellipse; Read
// does not fill RefEllip, and Evaluate returns the perturbation only.
type Segment struct {
	StartJD  float64
	LengthD  float64
	NCoe     int
	RMax     float64
	Coef     [3][]float64 // longitude, latitude, distance; normalized [-1,1]
	RefEllip [3][]float64 // reference-ellipse coefficients (2*NCoe each)
}

// File is a parsed SE1 file: header plus, per body index, its ordered
// list of segments.
type File struct {
	Header   Header
	Segments map[int][]Segment // body index -> segments ordered by StartJD
}

// Read parses an SE1 byte buffer into a File. The header's CRC-32 is
// validated against the binary tail; a mismatch is returned as
// ErrCRCMismatch wrapped with position context, and parsing stops
// immediately — per the error-handling design, FileMalformed errors are
// surfaced immediately with no fallback.
func Read(buf []byte) (*File, error) {
	headerEnd := bytes.Index(buf, []byte{0x61, 0x62, 0x63})
	if headerEnd < 0 {
		return nil, errors.WithStack(ErrBadEndianMarker)
	}

	lines := strings.Split(string(buf[:headerEnd]), "\r\n")
	hdr, err := parseHeaderLines(lines)
	if err != nil {
		return nil, errors.Wrap(err, "se1: parsing header")
	}

	tail := buf[headerEnd+4:]
	if mathkernel.CRC32(tail) != hdr.CRC32 {
		return nil, errors.WithStack(ErrCRCMismatch)
	}

	segments, err := parseTail(tail, hdr)
	if err != nil {
		return nil, errors.Wrap(err, "se1: parsing binary tail")
	}

	return &File{Header: hdr, Segments: segments}, nil
}

func parseHeaderLines(lines []string) (Header, error) {
	var h Header
	fields := map[string]string{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		fields[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	var err error
	if h.DENumber, err = atoiField(fields, "denum"); err != nil {
		return h, err
	}
	if h.BodyCount, err = atoiField(fields, "npl"); err != nil {
		return h, err
	}
	if h.StartJD, err = floatField(fields, "start"); err != nil {
		return h, err
	}
	if h.EndJD, err = floatField(fields, "end"); err != nil {
		return h, err
	}
	if h.SegmentDays, err = floatField(fields, "dseg"); err != nil {
		return h, err
	}
	if h.PolyDegree, err = atoiField(fields, "ncoe"); err != nil {
		return h, err
	}
	crcStr, ok := fields["crc"]
	if !ok {
		return h, errors.New("se1: missing crc field")
	}
	crc, err := strconv.ParseUint(crcStr, 16, 32)
	if err != nil {
		return h, errors.Wrap(err, "se1: parsing crc field")
	}
	h.CRC32 = uint32(crc)

	if idxStr, ok := fields["bodies"]; ok {
		for _, s := range strings.Fields(idxStr) {
			n, err := strconv.Atoi(s)
			if err != nil {
				return h, errors.Wrap(err, "se1: parsing body index list")
			}
			h.BodyIndices = append(h.BodyIndices, n)
		}
	}
	return h, nil
}

func atoiField(fields map[string]string, key string) (int, error) {
	s, ok := fields[key]
	if !ok {
		return 0, errors.Errorf("se1: missing field %q", key)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "se1: parsing field %q", key)
	}
	return n, nil
}

func floatField(fields map[string]string, key string) (float64, error) {
	s, ok := fields[key]
	if !ok {
		return 0, errors.Errorf("se1: missing field %q", key)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "se1: parsing field %q", key)
	}
	return f, nil
}

// indexEntry is one per-body record-offset table entry.
type indexEntry struct {
	bodyIndex int
	offset    int32
	segStart  float64
}

func parseTail(tail []byte, hdr Header) (map[int][]Segment, error) {
	r := bytes.NewReader(tail)

	n := len(hdr.BodyIndices)
	if n == 0 {
		n = hdr.BodyCount
	}
	entries := make([]indexEntry, 0, n)
	for i := 0; i < n; i++ {
		var off int32
		var start float64
		if err := binary.Read(r, binary.LittleEndian, &off); err != nil {
			return nil, errors.Wrap(err, "se1: reading index offset")
		}
		if err := binary.Read(r, binary.LittleEndian, &start); err != nil {
			return nil, errors.Wrap(err, "se1: reading index segment start")
		}
		bodyIdx := i
		if i < len(hdr.BodyIndices) {
			bodyIdx = hdr.BodyIndices[i]
		}
		entries = append(entries, indexEntry{bodyIndex: bodyIdx, offset: off, segStart: start})
	}

	segments := make(map[int][]Segment)
	for _, e := range entries {
		segs, err := readBodySegments(tail, e, hdr)
		if err != nil {
			return nil, errors.Wrapf(err, "se1: reading segments for body %d", e.bodyIndex)
		}
		segments[e.bodyIndex] = segs
	}
	return segments, nil
}

// readBodySegments unpacks the variable-length-encoded Chebyshev
// segment chain for one body, starting at e.offset within tail.
func readBodySegments(tail []byte, e indexEntry, hdr Header) ([]Segment, error) {
	pos := int(e.offset)
	if pos < 0 || pos > len(tail) {
		return nil, fmt.Errorf("offset %d out of range (tail length %d)", pos, len(tail))
	}
	r := bytes.NewReader(tail[pos:])

	var segCount int32
	if err := binary.Read(r, binary.LittleEndian, &segCount); err != nil {
		return nil, errors.Wrap(err, "reading segment count")
	}

	segs := make([]Segment, 0, segCount)
	tjd0 := e.segStart
	for s := int32(0); s < segCount; s++ {
		var rmax float64
		var byteLen uint8
		if err := binary.Read(r, binary.LittleEndian, &rmax); err != nil {
			return nil, errors.Wrap(err, "reading rmax")
		}
		if err := binary.Read(r, binary.LittleEndian, &byteLen); err != nil {
			return nil, errors.Wrap(err, "reading coefficient byte length")
		}

		seg := Segment{StartJD: tjd0, LengthD: hdr.SegmentDays, NCoe: hdr.PolyDegree, RMax: rmax}
		for axis := 0; axis < 3; axis++ {
			coefs, err := readPackedCoefs(r, hdr.PolyDegree, byteLen, rmax)
			if err != nil {
				return nil, errors.Wrapf(err, "reading axis %d coefficients", axis)
			}
			seg.Coef[axis] = coefs
		}
		segs = append(segs, seg)
		tjd0 += hdr.SegmentDays
	}
	return segs, nil
}

// readPackedCoefs reads n coefficients packed as byteLen-byte signed
// integers (1, 2, or 3 bytes), normalized by rmax/2^(8*byteLen-1).
func readPackedCoefs(r *bytes.Reader, n int, byteLen uint8, rmax float64) ([]float64, error) {
	out := make([]float64, n)
	scale := rmax / pow2(8*int(byteLen)-1)
	buf := make([]byte, byteLen)
	for i := 0; i < n; i++ {
		if _, err := r.Read(buf); err != nil {
			return nil, err
		}
		var v int64
		for j := int(byteLen) - 1; j >= 0; j-- {
			v = (v << 8) | int64(buf[j])
		}
		// Sign-extend from byteLen*8 bits.
		bits := uint(byteLen) * 8
		if v&(1<<(bits-1)) != 0 {
			v -= 1 << bits
		}
		out[i] = float64(v) * scale
	}
	return out, nil
}

func pow2(n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= 2
	}
	return r
}

// Evaluate returns the perturbation position (longitude, latitude,
// distance, each as a Chebyshev sum over the normalized segment time
// τ = 2(jd-segStart)/segLength - 1) and, via ChebDeriv, the
// corresponding speed, scaled by 2/segLength per the chain rule.
func (s Segment) Evaluate(jd float64) (lon, lat, dist, lonSpd, latSpd, distSpd float64) {
	tau := 2*(jd-s.StartJD)/s.LengthD - 1
	lon = mathkernel.ChebEval(tau, s.Coef[0])
	lat = mathkernel.ChebEval(tau, s.Coef[1])
	dist = mathkernel.ChebEval(tau, s.Coef[2])
	scale := 2 / s.LengthD
	lonSpd = mathkernel.ChebDeriv(tau, s.Coef[0]) * scale
	latSpd = mathkernel.ChebDeriv(tau, s.Coef[1]) * scale
	distSpd = mathkernel.ChebDeriv(tau, s.Coef[2]) * scale
	return
}

// FindSegment returns the segment of segs covering jd. If jd falls
// exactly on the file's end boundary, the last segment is used with
// τ=1, per the boundary-behavior requirement that the file's end JD
// still yields a valid position.
func FindSegment(segs []Segment, jd float64) (Segment, bool) {
	if len(segs) == 0 {
		return Segment{}, false
	}
	for i, seg := range segs {
		end := seg.StartJD + seg.LengthD
		if jd >= seg.StartJD && (jd < end || i == len(segs)-1) {
			return seg, true
		}
	}
	return Segment{}, false
}
