package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/batchatco/go-thrower"
)

// tableCol describes one column of a binary table: its TFORM repeat count
// and type letter, and its byte offset within a row.
type tableCol struct {
	name   string
	repeat int
	typ    byte
	offset int
	size   int
}

// Table is a fully-read BINTABLE extension. MWA tile tables are a few
// hundred rows, so the whole payload is held in memory.
type Table struct {
	NumRows  int
	rowBytes int
	cols     []tableCol
	index    map[string]int
	data     []byte
}

// Table reads HDU i, which must be a BINTABLE extension, into memory.
func (f *File) Table(i int) (t *Table, err error) {
	defer thrower.RecoverError(&err)

	hdu := f.hdu(i)
	if x, err := hdu.Header.Str("XTENSION"); err != nil || x != "BINTABLE" {
		thrower.Throw(fmt.Errorf("%w: HDU %d of %s is not a BINTABLE "+
			"extension", ErrBadTable, i, f.Path))
	}
	if len(hdu.Axes) != 2 {
		thrower.Throw(fmt.Errorf("%w: HDU %d of %s has NAXIS = %d, not 2",
			ErrBadTable, i, f.Path, len(hdu.Axes)))
	}

	nFields, err := hdu.Header.Int("TFIELDS")
	thrower.ThrowIfError(err)

	t = &Table{
		NumRows:  hdu.Axes[1],
		rowBytes: hdu.Axes[0],
		index:    map[string]int{},
	}
	offset := 0
	for j := 1; j <= int(nFields); j++ {
		name, err := hdu.Header.Str(fmt.Sprintf("TTYPE%d", j))
		thrower.ThrowIfError(err)
		form, err := hdu.Header.Str(fmt.Sprintf("TFORM%d", j))
		thrower.ThrowIfError(err)

		repeat, typ := parseForm(form)
		col := tableCol{
			name: name, repeat: repeat, typ: typ,
			offset: offset, size: repeat * typeSize(typ),
		}
		offset += col.size
		t.index[name] = len(t.cols)
		t.cols = append(t.cols, col)
	}
	if offset != t.rowBytes {
		thrower.Throw(fmt.Errorf("%w: HDU %d of %s declares %d-byte rows, "+
			"but its columns add up to %d bytes", ErrBadTable, i, f.Path,
			t.rowBytes, offset))
	}

	t.data = f.readData(hdu)
	return t, nil
}

// parseForm splits a TFORM value such as "16I" or "E" into a repeat count
// and a type letter.
func parseForm(form string) (int, byte) {
	form = strings.TrimSpace(form)
	i := 0
	for i < len(form) && form[i] >= '0' && form[i] <= '9' { i++ }
	if i == len(form) {
		thrower.Throw(fmt.Errorf("%w: the column format '%s' has no type "+
			"letter", ErrBadTable, form))
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(form[:i])
		thrower.ThrowIfError(err)
		repeat = n
	}
	return repeat, form[i]
}

func typeSize(typ byte) int {
	switch typ {
	case 'A', 'B', 'L': return 1
	case 'I': return 2
	case 'J', 'E': return 4
	case 'K', 'D': return 8
	}
	thrower.Throw(fmt.Errorf("%w: unsupported column type '%c'",
		ErrBadTable, typ))
	return 0
}

// HasCol returns true if the table contains the named column.
func (t *Table) HasCol(name string) bool {
	_, ok := t.index[name]
	return ok
}

// cell locates one cell and checks the row index.
func (t *Table) cell(name string, row int) tableCol {
	i, ok := t.index[name]
	if !ok {
		thrower.Throw(fmt.Errorf("%w: '%s'", ErrColNotFound, name))
	}
	if row < 0 || row >= t.NumRows {
		thrower.Throw(fmt.Errorf("%w: the table has %d rows, but row %d "+
			"was requested", ErrBadTable, t.NumRows, row))
	}
	return t.cols[i]
}

func (t *Table) raw(col tableCol, row int) []byte {
	start := row*t.rowBytes + col.offset
	return t.data[start : start+col.size]
}

// Str returns the value of an A-type cell with trailing spaces and NULs
// trimmed.
func (t *Table) Str(name string, row int) (s string, err error) {
	defer thrower.RecoverError(&err)
	col := t.cell(name, row)
	if col.typ != 'A' {
		thrower.Throw(fmt.Errorf("%w: the column '%s' has type '%c', "+
			"not the 'A' of a string", ErrBadValue, name, col.typ))
	}
	return strings.TrimRight(string(t.raw(col, row)), " \x00"), nil
}

// Int returns the value of a single-element integer cell (types B, I, J
// and K).
func (t *Table) Int(name string, row int) (n int, err error) {
	defer thrower.RecoverError(&err)
	col := t.cell(name, row)
	if col.repeat != 1 {
		thrower.Throw(fmt.Errorf("%w: the column '%s' holds %d values "+
			"per row, not 1", ErrBadValue, name, col.repeat))
	}
	return decodeInt(col, t.raw(col, row), name), nil
}

// Ints returns an integer array cell as a slice.
func (t *Table) Ints(name string, row int) (ns []int, err error) {
	defer thrower.RecoverError(&err)
	col := t.cell(name, row)
	raw := t.raw(col, row)
	size := typeSize(col.typ)
	ns = make([]int, col.repeat)
	for i := range ns {
		ns[i] = decodeInt(col, raw[i*size:(i+1)*size], name)
	}
	return ns, nil
}

// Float returns the value of a single-element E- or D-type cell.
func (t *Table) Float(name string, row int) (x float64, err error) {
	defer thrower.RecoverError(&err)
	col := t.cell(name, row)
	if col.repeat != 1 {
		thrower.Throw(fmt.Errorf("%w: the column '%s' holds %d values "+
			"per row, not 1", ErrBadValue, name, col.repeat))
	}
	raw := t.raw(col, row)
	switch col.typ {
	case 'E':
		return float64(math.Float32frombits(
			binary.BigEndian.Uint32(raw))), nil
	case 'D':
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
	}
	thrower.Throw(fmt.Errorf("%w: the column '%s' has type '%c', not a "+
		"floating-point type", ErrBadValue, name, col.typ))
	return 0, nil
}

func decodeInt(col tableCol, raw []byte, name string) int {
	switch col.typ {
	case 'B': return int(raw[0])
	case 'I': return int(int16(binary.BigEndian.Uint16(raw)))
	case 'J': return int(int32(binary.BigEndian.Uint32(raw)))
	case 'K': return int(int64(binary.BigEndian.Uint64(raw)))
	}
	thrower.Throw(fmt.Errorf("%w: the column '%s' has type '%c', not an "+
		"integer type", ErrBadValue, name, col.typ))
	return 0
}
