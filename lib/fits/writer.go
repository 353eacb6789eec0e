package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Card is one header card to be written. Use the IntCard, FloatCard,
// StrCard, BoolCard and LongStrCard constructors rather than filling the
// struct in directly.
type Card struct {
	Key      string
	Value    string
	IsString bool
	IsLong   bool
}

// IntCard makes an integer-valued card.
func IntCard(key string, v int64) Card {
	return Card{ Key: key, Value: strconv.FormatInt(v, 10) }
}

// FloatCard makes a floating-point card.
func FloatCard(key string, v float64) Card {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") { s += "." }
	return Card{ Key: key, Value: s }
}

// StrCard makes a string-valued card.
func StrCard(key, v string) Card {
	return Card{ Key: key, Value: v, IsString: true }
}

// BoolCard makes a logical card.
func BoolCard(key string, v bool) Card {
	s := "F"
	if v { s = "T" }
	return Card{ Key: key, Value: s }
}

// LongStrCard makes a string card that spills onto CONTINUE cards when its
// value does not fit on one card.
func LongStrCard(key, v string) Card {
	return Card{ Key: key, Value: v, IsString: true, IsLong: true }
}

// Column is one column of a binary table to be written. Form is a TFORM
// value ("J", "E", "8A", "16I", ...) and Data must match it: []int32 for J,
// []int16 for I, []float32 for E, []float64 for D, []string for A, and
// [][]int32 or [][]int16 for repeated J or I.
type Column struct {
	Name string
	Form string
	Data interface{}
}

// Writer accumulates HDUs in memory and writes them out as one file. It
// exists for building test fixtures and small derived files, not for
// streaming large data.
type Writer struct {
	blocks []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

// AddPrimary appends the primary HDU, which carries cards but no data.
func (w *Writer) AddPrimary(cards []Card) {
	all := []Card{
		BoolCard("SIMPLE", true),
		IntCard("BITPIX", 8),
		IntCard("NAXIS", 0),
	}
	all = append(all, cards...)
	w.blocks = append(w.blocks, renderHeader(all)...)
}

// AddImageFloat32 appends an IMAGE extension holding a naxis1 x naxis2
// float32 array. len(data) must be naxis1*naxis2.
func (w *Writer) AddImageFloat32(cards []Card, naxis1, naxis2 int, data []float32) {
	if len(data) != naxis1*naxis2 {
		panic(fmt.Sprintf("fits: an image of %d x %d needs %d values, "+
			"but %d were given", naxis1, naxis2, naxis1*naxis2, len(data)))
	}
	all := []Card{
		StrCard("XTENSION", "IMAGE"),
		IntCard("BITPIX", -32),
		IntCard("NAXIS", 2),
		IntCard("NAXIS1", int64(naxis1)),
		IntCard("NAXIS2", int64(naxis2)),
		IntCard("PCOUNT", 0),
		IntCard("GCOUNT", 1),
	}
	all = append(all, cards...)
	w.blocks = append(w.blocks, renderHeader(all)...)

	raw := make([]byte, 4*len(data))
	for i, x := range data {
		binary.BigEndian.PutUint32(raw[4*i:], math.Float32bits(x))
	}
	w.blocks = append(w.blocks, padded(raw)...)
}

// AddBinTable appends a BINTABLE extension. Every column must have the same
// number of rows.
func (w *Writer) AddBinTable(extName string, cards []Card, cols []Column) {
	numRows := -1
	rowBytes := 0
	for _, col := range cols {
		n, size := colShape(col)
		if numRows == -1 { numRows = n }
		if n != numRows {
			panic(fmt.Sprintf("fits: the column '%s' has %d rows, but "+
				"earlier columns have %d", col.Name, n, numRows))
		}
		rowBytes += size
	}
	if numRows == -1 { numRows = 0 }

	all := []Card{
		StrCard("XTENSION", "BINTABLE"),
		IntCard("BITPIX", 8),
		IntCard("NAXIS", 2),
		IntCard("NAXIS1", int64(rowBytes)),
		IntCard("NAXIS2", int64(numRows)),
		IntCard("PCOUNT", 0),
		IntCard("GCOUNT", 1),
		IntCard("TFIELDS", int64(len(cols))),
		StrCard("EXTNAME", extName),
	}
	for i, col := range cols {
		all = append(all,
			StrCard(fmt.Sprintf("TTYPE%d", i+1), col.Name),
			StrCard(fmt.Sprintf("TFORM%d", i+1), col.Form),
		)
	}
	all = append(all, cards...)
	w.blocks = append(w.blocks, renderHeader(all)...)

	raw := make([]byte, numRows*rowBytes)
	offset := 0
	for _, col := range cols {
		_, size := colShape(col)
		for row := 0; row < numRows; row++ {
			encodeCell(raw[row*rowBytes+offset:], col, row, size)
		}
		offset += size
	}
	w.blocks = append(w.blocks, padded(raw)...)
}

// WriteFile writes the accumulated HDUs to the named file.
func (w *Writer) WriteFile(path string) error {
	return os.WriteFile(path, w.blocks, 0644)
}

// colShape returns the row count and per-row byte size of a column.
func colShape(col Column) (rows, size int) {
	repeat, typ := 1, byte(0)
	i := 0
	for i < len(col.Form) && col.Form[i] >= '0' && col.Form[i] <= '9' { i++ }
	if i > 0 { repeat, _ = strconv.Atoi(col.Form[:i]) }
	typ = col.Form[i]

	switch d := col.Data.(type) {
	case []int32:
		return len(d), repeat * typeSize(typ)
	case []int16:
		return len(d), repeat * typeSize(typ)
	case []float32:
		return len(d), repeat * typeSize(typ)
	case []float64:
		return len(d), repeat * typeSize(typ)
	case []string:
		return len(d), repeat
	case [][]int32:
		return len(d), repeat * typeSize(typ)
	case [][]int16:
		return len(d), repeat * typeSize(typ)
	}
	panic(fmt.Sprintf("fits: the column '%s' has unsupported data type %T",
		col.Name, col.Data))
}

func encodeCell(out []byte, col Column, row, size int) {
	switch d := col.Data.(type) {
	case []int32:
		binary.BigEndian.PutUint32(out, uint32(d[row]))
	case []int16:
		binary.BigEndian.PutUint16(out, uint16(d[row]))
	case []float32:
		binary.BigEndian.PutUint32(out, math.Float32bits(d[row]))
	case []float64:
		binary.BigEndian.PutUint64(out, math.Float64bits(d[row]))
	case []string:
		s := d[row]
		if len(s) > size { s = s[:size] }
		copy(out, s)
		for i := len(s); i < size; i++ { out[i] = ' ' }
	case [][]int32:
		for i, v := range d[row] {
			binary.BigEndian.PutUint32(out[4*i:], uint32(v))
		}
	case [][]int16:
		for i, v := range d[row] {
			binary.BigEndian.PutUint16(out[2*i:], uint16(v))
		}
	}
}

// renderHeader lays cards out in 80-byte card images, appends END, and pads
// to a block boundary.
func renderHeader(cards []Card) []byte {
	out := []byte{}
	for _, c := range cards {
		out = append(out, renderCard(c)...)
	}
	out = append(out, pad80("END")...)
	for len(out)%blockSize != 0 {
		out = append(out, pad80("")...)
	}
	return out
}

func renderCard(c Card) []byte {
	key := fmt.Sprintf("%-8s", c.Key)
	if !c.IsString {
		return pad80(key + "= " + fmt.Sprintf("%20s", c.Value))
	}
	if !c.IsLong || len(c.Value) <= 67 {
		return pad80(key + "= " + quoted(c.Value, false))
	}

	// Long-string convention: each segment ends in '&' and continues on a
	// CONTINUE card.
	out := []byte{}
	val := c.Value
	prefix := key + "= "
	for len(val) > 67 {
		out = append(out, pad80(prefix+quoted(val[:67], true))...)
		val = val[67:]
		prefix = "CONTINUE  "
	}
	return append(out, pad80(prefix+quoted(val, false))...)
}

func quoted(s string, cont bool) string {
	s = strings.ReplaceAll(s, "'", "''")
	if cont { s += "&" }
	return "'" + s + "'"
}

// padded extends a data payload with zero bytes to a block boundary.
func padded(raw []byte) []byte {
	out := make([]byte, pad(int64(len(raw))))
	copy(out, raw)
	return out
}

func pad80(s string) []byte {
	out := make([]byte, cardSize)
	copy(out, s)
	for i := len(s); i < cardSize; i++ { out[i] = ' ' }
	return out
}
