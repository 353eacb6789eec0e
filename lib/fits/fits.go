/*package fits implements reading and writing for the subset of the FITS
standard used by MWA metafits and visibility files: ASCII headers made of
80-byte cards in 2880-byte blocks, IMAGE extensions holding big-endian
float32 data, and BINTABLE extensions holding fixed-width rows. It is not a
general FITS library: array descriptors, variable-length columns, and
compressed images are not supported because MWA files never contain them.

Opening a file parses every header eagerly but leaves the data payloads on
disk. Payloads are fetched on demand so that a caller can scan headers of a
multi-gigabyte visibility file without paying for its data.*/
package fits

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/batchatco/go-thrower"
)

const (
	blockSize = 2880
	cardSize  = 80
)

var (
	ErrNotFits     = errors.New("fits: the file does not begin with a SIMPLE card")
	ErrTruncated   = errors.New("fits: the file ends in the middle of an HDU")
	ErrBadCard     = errors.New("fits: malformed header card")
	ErrKeyNotFound = errors.New("fits: header key not found")
	ErrBadValue    = errors.New("fits: header value has the wrong type")
	ErrBadHDU      = errors.New("fits: HDU index out of range")
	ErrBadTable    = errors.New("fits: malformed binary table")
	ErrColNotFound = errors.New("fits: table column not found")
)

// card is a single parsed header card. For string-valued cards, value holds
// the text between the quotes with quote escapes undone.
type card struct {
	key      string
	value    string
	isString bool
}

// Header is the parsed header of one HDU. Lookups are by key, but the
// original card order is kept so that long-string CONTINUE runs can be
// reassembled.
type Header struct {
	cards []card
	index map[string]int
}

// HDU is one header-data unit. DataOffset and DataSize locate the raw data
// payload within the file; DataSize is the unpadded size in bytes.
type HDU struct {
	Header     *Header
	BitPix     int
	Axes       []int
	DataOffset int64
	DataSize   int64
}

// File is an open FITS file with all headers parsed. The underlying OS file
// is not held open: data reads reopen the file by path, so a File may be
// shared freely between goroutines.
type File struct {
	Path string
	HDUs []*HDU
}

// Open parses the headers of every HDU in the named file.
func Open(path string) (f *File, err error) {
	defer thrower.RecoverError(&err)

	file, err := os.Open(path)
	if err != nil { return nil, err }
	defer file.Close()

	f = &File{ Path: path }
	offset := int64(0)
	for {
		hdu, next, ok := readHDU(file, path, offset, len(f.HDUs) == 0)
		if !ok { break }
		f.HDUs = append(f.HDUs, hdu)
		offset = next
	}
	if len(f.HDUs) == 0 {
		thrower.Throw(fmt.Errorf("%w: %s", ErrNotFits, path))
	}
	return f, nil
}

// readHDU parses one HDU starting at offset. It returns ok = false at a
// clean end of file. Anything else that goes wrong is thrown.
func readHDU(file *os.File, path string, offset int64, primary bool) (*HDU, int64, bool) {
	hd, headerEnd, ok := readHeader(file, path, offset, primary)
	if !ok { return nil, 0, false }

	bitPix, err := hd.Int("BITPIX")
	thrower.ThrowIfError(err)
	nAxis, err := hd.Int("NAXIS")
	thrower.ThrowIfError(err)

	axes := make([]int, nAxis)
	dataSize := int64(0)
	if nAxis > 0 { dataSize = int64(abs(int(bitPix))) / 8 }
	for i := range axes {
		n, err := hd.Int(fmt.Sprintf("NAXIS%d", i+1))
		thrower.ThrowIfError(err)
		axes[i] = int(n)
		dataSize *= n
	}
	if pCount, err := hd.Int("PCOUNT"); err == nil {
		dataSize += pCount * int64(abs(int(bitPix))) / 8
	}

	next := headerEnd + pad(dataSize)
	if size := fileSize(file); next > size {
		thrower.Throw(fmt.Errorf("%w: %s: HDU data runs to byte %d, but "+
			"the file is only %d bytes long", ErrTruncated, path, next, size))
	}

	hdu := &HDU{
		Header: hd, BitPix: int(bitPix), Axes: axes,
		DataOffset: headerEnd, DataSize: dataSize,
	}
	return hdu, next, true
}

// readHeader parses header blocks starting at offset until the END card.
func readHeader(file *os.File, path string, offset int64, primary bool) (*Header, int64, bool) {
	hd := &Header{ index: map[string]int{} }
	block := make([]byte, blockSize)

	first := true
	for {
		n, err := file.ReadAt(block, offset)
		if err == io.EOF && n == 0 && first { return nil, 0, false }
		if err != nil {
			thrower.Throw(fmt.Errorf("%w: %s: header block at byte %d "+
				"cannot be read: %v", ErrTruncated, path, offset, err))
		}
		offset += blockSize

		for i := 0; i < blockSize; i += cardSize {
			raw := block[i : i+cardSize]
			if first && i == 0 {
				key := strings.TrimRight(string(raw[0:8]), " ")
				if primary && key != "SIMPLE" {
					thrower.Throw(fmt.Errorf("%w: %s", ErrNotFits, path))
				}
				if !primary && key != "XTENSION" {
					thrower.Throw(fmt.Errorf("%w: %s: extension at byte "+
						"%d does not begin with an XTENSION card",
						ErrBadCard, path, offset-blockSize))
				}
			}
			c, end := parseCard(raw)
			if end { return hd, offset, true }
			if c.key == "" || c.key == "COMMENT" || c.key == "HISTORY" {
				continue
			}
			if _, dup := hd.index[c.key]; !dup && c.key != "CONTINUE" {
				hd.index[c.key] = len(hd.cards)
			}
			hd.cards = append(hd.cards, c)
		}
		first = false
	}
}

// parseCard splits one 80-byte card into a key and a value. The second
// return is true for the END card.
func parseCard(raw []byte) (card, bool) {
	key := strings.TrimRight(string(raw[0:8]), " ")
	if key == "END" { return card{}, true }

	body := string(raw[8:])
	if strings.HasPrefix(body, "= ") {
		body = body[2:]
	} else if key != "CONTINUE" {
		// Commentary card with no value.
		return card{ key: key }, false
	}

	body = strings.TrimLeft(body, " ")
	if strings.HasPrefix(body, "'") {
		val, ok := parseQuoted(body)
		if !ok {
			thrower.Throw(fmt.Errorf("%w: the card '%s' has an "+
				"unterminated string", ErrBadCard,
				strings.TrimRight(string(raw), " ")))
		}
		return card{ key: key, value: val, isString: true }, false
	}
	if i := strings.IndexByte(body, '/'); i >= 0 { body = body[:i] }
	return card{ key: key, value: strings.TrimSpace(body) }, false
}

// parseQuoted extracts a FITS string value, undoing '' escapes and trimming
// the trailing padding spaces that the standard says are not significant.
func parseQuoted(body string) (string, bool) {
	out := []byte{}
	for i := 1; i < len(body); i++ {
		if body[i] != '\'' {
			out = append(out, body[i])
			continue
		}
		if i+1 < len(body) && body[i+1] == '\'' {
			out = append(out, '\'')
			i++
			continue
		}
		return strings.TrimRight(string(out), " "), true
	}
	return "", false
}

// Has returns true if the header contains the given key.
func (h *Header) Has(key string) bool {
	_, ok := h.index[key]
	return ok
}

// Str returns the value of a string-valued card.
func (h *Header) Str(key string) (string, error) {
	i, ok := h.index[key]
	if !ok { return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key) }
	return h.cards[i].value, nil
}

// Int returns the value of an integer-valued card. Values written as exact
// floats (e.g. "56.") are accepted, since metafits files do this.
func (h *Header) Int(key string) (int64, error) {
	s, err := h.Str(key)
	if err != nil { return 0, err }
	if n, err := strconv.ParseInt(s, 10, 64); err == nil { return n, nil }
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: the key %s has the value '%s', which "+
			"is not an integer", ErrBadValue, key, s)
	}
	return int64(f), nil
}

// Float returns the value of a floating-point card.
func (h *Header) Float(key string) (float64, error) {
	s, err := h.Str(key)
	if err != nil { return 0, err }
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: the key %s has the value '%s', which "+
			"is not a number", ErrBadValue, key, s)
	}
	return f, nil
}

// LongStr returns a string value reassembled across CONTINUE cards. A value
// ending in '&' continues onto the next CONTINUE card, per the standard's
// long-string convention.
func (h *Header) LongStr(key string) (string, error) {
	i, ok := h.index[key]
	if !ok { return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key) }
	val := h.cards[i].value
	for strings.HasSuffix(val, "&") {
		i++
		if i >= len(h.cards) || h.cards[i].key != "CONTINUE" { break }
		val = val[:len(val)-1] + h.cards[i].value
	}
	return val, nil
}

// HDUByName returns the index of the first extension whose EXTNAME matches
// name, or an error if there is none.
func (f *File) HDUByName(name string) (int, error) {
	for i, hdu := range f.HDUs {
		if s, err := hdu.Header.Str("EXTNAME"); err == nil && s == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s has no HDU named '%s'",
		ErrKeyNotFound, f.Path, name)
}

// ImageFloat32 reads the data payload of an IMAGE HDU holding float32
// values and returns it decoded from big-endian byte order.
func (f *File) ImageFloat32(i int) (data []float32, err error) {
	defer thrower.RecoverError(&err)

	hdu := f.hdu(i)
	if hdu.BitPix != -32 {
		thrower.Throw(fmt.Errorf("%w: HDU %d of %s has BITPIX = %d, not "+
			"the -32 of a float32 image", ErrBadValue, i, f.Path, hdu.BitPix))
	}

	raw := f.readData(hdu)
	data = make([]float32, hdu.DataSize/4)
	for j := range data {
		data[j] = math.Float32frombits(
			binary.BigEndian.Uint32(raw[4*j : 4*j+4]))
	}
	return data, nil
}

// hdu bounds-checks an HDU index.
func (f *File) hdu(i int) *HDU {
	if i < 0 || i >= len(f.HDUs) {
		thrower.Throw(fmt.Errorf("%w: %s has %d HDUs, but HDU %d was "+
			"requested", ErrBadHDU, f.Path, len(f.HDUs), i))
	}
	return f.HDUs[i]
}

// readData reopens the file and reads an HDU's full data payload.
func (f *File) readData(hdu *HDU) []byte {
	file, err := os.Open(f.Path)
	thrower.ThrowIfError(err)
	defer file.Close()

	raw := make([]byte, hdu.DataSize)
	_, err = file.ReadAt(raw, hdu.DataOffset)
	if err != nil {
		thrower.Throw(fmt.Errorf("%w: %s: the data of the HDU at byte "+
			"%d cannot be read: %v", ErrTruncated, f.Path,
			hdu.DataOffset, err))
	}
	return raw
}

func pad(n int64) int64 {
	if n%blockSize == 0 { return n }
	return n + blockSize - n%blockSize
}

func fileSize(file *os.File) int64 {
	info, err := file.Stat()
	thrower.ThrowIfError(err)
	return info.Size()
}

func abs(n int) int {
	if n < 0 { return -n }
	return n
}
