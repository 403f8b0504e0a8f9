// Package jpl reads JPL Planetary and Lunar Ephemeris (DE) binary
// files (DE200 through DE441-family layouts) from an in-memory byte
// buffer and evaluates body positions via Chebyshev interpolation.
//
// The binary layout — title lines, constant names, numerical header,
// interpolation-pointer table, constant values, then fixed-size data
// records of packed Chebyshev coefficients — is the format documented
// by JPL's reference Fortran/C interpreters; this reader follows that
// same header shape.
package jpl

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/anupshinde/goeph/mathkernel"
)

const (
	titleBytes        = 84 * 3 // three 84-byte title lines
	constantNameBytes = 2400   // up to 400 constant names, 6 bytes each
	maxHeaderConstants = 400
	iptRows            = 15
	iptCols             = 3
)

// Body indices matching the JPL DE numbering convention (1-indexed
// Mercury..Pluto, plus Moon/Sun/SSB/EMB/nutation/libration pseudo-targets).
const (
	Mercury = 1
	Venus   = 2
	EMB     = 3
	Mars    = 4
	Jupiter = 5
	Saturn  = 6
	Uranus  = 7
	Neptune = 8
	Pluto   = 9
	Moon    = 10
	Sun     = 11
	Nutations  = 12
	Librations = 13
)

// ErrOutsideRange indicates the requested ephemeris time falls outside
// [StartJD, EndJD].
var ErrOutsideRange = errors.New("jpl: time outside ephemeris range")

// ErrQuantityNotInEphemeris indicates the requested target has no
// coefficients in this file (ipt pointer is zero).
var ErrQuantityNotInEphemeris = errors.New("jpl: quantity not in ephemeris")

// ErrFileMalformed indicates the header failed to parse or the
// endianness probe could not be resolved.
var ErrFileMalformed = errors.New("jpl: malformed file")

// Header carries the parsed numerical header of a JPL DE file.
type Header struct {
	StartJD  float64
	EndJD    float64
	StepDays float64
	NCon     int32
	AU       float64
	EMRat    float64
	IPT      [iptRows][iptCols]int32
	DENum    int32
	KSize    int32 // record size in doubles (2 date doubles + coefficients)
}

// File is a parsed JPL DE ephemeris: header plus the raw record bytes,
// record size, and byte order, ready for per-call Chebyshev evaluation.
type File struct {
	Header     Header
	data       []byte
	recordSize int // bytes per data record = 8 * ncoeffPerRecord
	firstData  int // byte offset of the first data record
	order      binary.ByteOrder
}

// Open parses a JPL DE byte buffer. Endianness is detected by reading
// the segment-size double in both orders and keeping whichever falls
// in the sane range (1, 200) days, per the file format's own detection
// convention.
func Open(buf []byte) (*File, error) {
	if len(buf) < titleBytes+constantNameBytes+64 {
		return nil, errors.Wrap(ErrFileMalformed, "buffer too short for header")
	}

	base := titleBytes + constantNameBytes
	order, err := detectByteOrder(buf, base)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(buf[base:])
	var h Header
	if err := binary.Read(r, order, &h.StartJD); err != nil {
		return nil, errors.Wrap(err, "jpl: reading start JD")
	}
	if err := binary.Read(r, order, &h.EndJD); err != nil {
		return nil, errors.Wrap(err, "jpl: reading end JD")
	}
	if err := binary.Read(r, order, &h.StepDays); err != nil {
		return nil, errors.Wrap(err, "jpl: reading step size")
	}
	if err := binary.Read(r, order, &h.NCon); err != nil {
		return nil, errors.Wrap(err, "jpl: reading ncon")
	}
	if err := binary.Read(r, order, &h.AU); err != nil {
		return nil, errors.Wrap(err, "jpl: reading AU")
	}
	if err := binary.Read(r, order, &h.EMRat); err != nil {
		return nil, errors.Wrap(err, "jpl: reading EMRAT")
	}
	for i := 0; i < iptRows; i++ {
		for j := 0; j < iptCols; j++ {
			if err := binary.Read(r, order, &h.IPT[i][j]); err != nil {
				return nil, errors.Wrapf(err, "jpl: reading ipt[%d][%d]", i, j)
			}
		}
	}
	if err := binary.Read(r, order, &h.DENum); err != nil {
		return nil, errors.Wrap(err, "jpl: reading DE number")
	}

	// ksize = the highest coefficient index any pointer row reaches,
	// i.e. the number of doubles per record.
	h.KSize = computeKSize(h.IPT)

	recSize := int(h.KSize) * 8
	f := &File{
		Header:     h,
		data:       buf,
		recordSize: recSize,
		order:      order,
	}
	// Second header record (constant values) occupies one record; data
	// begins at the third record.
	f.firstData = recSize * 2
	return f, nil
}

// computeKSize derives the record size in doubles (ksize) from the
// interpolation-pointer table: each row i gives (coefficient start
// index, coefficients per component, number of sub-intervals per
// record); the last body with nonzero entries determines where
// position data ends in each record (ksize counts the 2 leading date
// doubles too).
func computeKSize(ipt [iptRows][iptCols]int32) int32 {
	var maxOffset int32 = 2
	ncomp := [iptRows]int32{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 2, 3}
	for i := 0; i < iptRows; i++ {
		if ipt[i][1] == 0 || ipt[i][2] == 0 {
			continue
		}
		comp := int32(3)
		if i < len(ncomp) {
			comp = ncomp[i]
		}
		end := ipt[i][0] + comp*ipt[i][1]*ipt[i][2] - 1
		if end > maxOffset {
			maxOffset = end
		}
	}
	return maxOffset
}

// detectByteOrder tries reading the segment-size double (offset 16
// within the numerical header, i.e. base+16) in both byte orders and
// keeps whichever yields a value in (1, 200) days.
func detectByteOrder(buf []byte, base int) (binary.ByteOrder, error) {
	off := base + 16
	if off+8 > len(buf) {
		return nil, errors.Wrap(ErrFileMalformed, "buffer too short for byte-order probe")
	}
	raw := buf[off : off+8]

	le := math.Float64frombits(binary.LittleEndian.Uint64(raw))
	if le > 1 && le < 200 {
		return binary.LittleEndian, nil
	}
	be := math.Float64frombits(binary.BigEndian.Uint64(raw))
	if be > 1 && be < 200 {
		return binary.BigEndian, nil
	}
	return nil, errors.Wrap(ErrFileMalformed, "endianness probe out of sane range")
}

// recordAt returns the ksize-double record covering jd, as a slice of
// float64 in the file's native order.
func (f *File) recordAt(jd float64) ([]float64, float64, error) {
	h := f.Header
	if jd < h.StartJD || jd > h.EndJD {
		return nil, 0, errors.WithStack(ErrOutsideRange)
	}
	nr := int(math.Floor((jd - h.StartJD) / h.StepDays))
	recStart := f.firstData + nr*f.recordSize
	if recStart+f.recordSize > len(f.data) {
		return nil, 0, errors.Wrap(ErrOutsideRange, "record beyond buffer")
	}

	raw := f.data[recStart : recStart+f.recordSize]
	n := f.recordSize / 8
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := f.order.Uint64(raw[i*8 : i*8+8])
		vals[i] = math.Float64frombits(bits)
	}

	recStartJD := vals[0]
	recEndJD := vals[1]
	t := (jd - recStartJD) / (recEndJD - recStartJD)
	return vals, t, nil
}

// PositionVelocity returns the Chebyshev-native (solar-system-barycentric;
// geocentric for the Moon) position and velocity for target body at jd, using the ipt pointer
// layout (start offset, coefficients per component, subintervals per
// record).
func (f *File) PositionVelocity(target int, jd float64) (pos, vel [3]float64, err error) {
	vals, t, err := f.recordAt(jd)
	if err != nil {
		return pos, vel, err
	}

	row := target - 1
	if row < 0 || row >= iptRows {
		return pos, vel, errors.Wrapf(ErrQuantityNotInEphemeris, "target %d out of range", target)
	}
	offset := f.Header.IPT[row][0]
	ncoef := f.Header.IPT[row][1]
	nsub := f.Header.IPT[row][2]
	if offset == 0 || ncoef == 0 {
		return pos, vel, errors.Wrapf(ErrQuantityNotInEphemeris, "target %d has no coefficients", target)
	}

	// Locate the sub-interval within the record and rescale t to [-1,1].
	sub := int(t * float64(nsub))
	if sub >= int(nsub) {
		sub = int(nsub) - 1
	}
	subLen := 1.0 / float64(nsub)
	tau := 2*(t-float64(sub)*subLen)/subLen - 1

	for comp := 0; comp < 3; comp++ {
		start := int(offset) - 1 + comp*int(ncoef) + sub*int(ncoef)*3
		coef := vals[start : start+int(ncoef)]
		pos[comp] = mathkernel.ChebEval(tau, coef)
		// d(tau)/d(jd) = 2*nsub/stepDays
		scale := 2 * float64(nsub) / f.Header.StepDays
		vel[comp] = mathkernel.ChebDeriv(tau, coef) * scale
	}
	return pos, vel, nil
}

// Pleph composes the position difference between target and center,
// with the Earth/Moon special case: Earth and Moon coordinates are
// derived from the Earth-Moon barycenter using the mass ratio read
// from the header, since the file stores EMB and geocentric Moon, not
// Earth and Moon directly.
func (f *File) Pleph(jdTT float64, target, center int) (pos, vel [3]float64, err error) {
	tpos, tvel, err := f.bodyState(jdTT, target)
	if err != nil {
		return pos, vel, err
	}
	cpos, cvel, err := f.bodyState(jdTT, center)
	if err != nil {
		return pos, vel, err
	}
	for i := 0; i < 3; i++ {
		pos[i] = tpos[i] - cpos[i]
		vel[i] = tvel[i] - cvel[i]
	}
	return pos, vel, nil
}

// bodyState resolves Earth/Moon from EMB + geocentric Moon using
// EMRAT, and treats SSB as the origin (zero state); all other bodies
// come directly from PositionVelocity.
func (f *File) bodyState(jdTT float64, body int) (pos, vel [3]float64, err error) {
	const ssb = 0
	if body == ssb {
		return pos, vel, nil
	}
	if body == 399 { // Earth
		emb, embv, err := f.PositionVelocity(EMB, jdTT)
		if err != nil {
			return pos, vel, err
		}
		moon, moonv, err := f.PositionVelocity(Moon, jdTT)
		if err != nil {
			return pos, vel, err
		}
		frac := 1.0 / (1.0 + f.Header.EMRat)
		for i := 0; i < 3; i++ {
			pos[i] = emb[i] - moon[i]*frac
			vel[i] = embv[i] - moonv[i]*frac
		}
		return pos, vel, nil
	}
	if body == 301 { // Moon (geocentric in file; add Earth to get barycentric)
		earthPos, earthVel, err := f.bodyState(jdTT, 399)
		if err != nil {
			return pos, vel, err
		}
		moon, moonv, err := f.PositionVelocity(Moon, jdTT)
		if err != nil {
			return pos, vel, err
		}
		for i := 0; i < 3; i++ {
			pos[i] = earthPos[i] + moon[i]
			vel[i] = earthVel[i] + moonv[i]
		}
		return pos, vel, nil
	}
	return f.PositionVelocity(body, jdTT)
}
