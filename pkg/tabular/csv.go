package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
)

var (
	errInvalidUTF8   = errors.New("invalid UTF-8")
	errMixedEncoding = errors.New("file holds valid multi-byte UTF-8; not a single-byte encoding")
)

// csvDialect is one way of decoding and tokenizing a CSV file.
type csvDialect struct {
	name string
	// decode wraps the raw file. A nil decode leaves the bytes untouched and
	// requires them to be valid UTF-8.
	decode func(io.Reader) io.Reader
	// lenient accepts bare quotes and ragged rows.
	lenient bool
	// precheck inspects the raw bytes before decoding and rejects files the
	// dialect would misread.
	precheck func(io.Reader) error
}

// csvDialects are tried in order; the first one that reads the file wins.
var csvDialects = []csvDialect{
	{
		name:   "csv-utf8",
		decode: nil,
	},
	{
		name: "csv-windows1252",
		decode: func(r io.Reader) io.Reader {
			return transform.NewReader(r, unicode.BOMOverride(charmap.Windows1252.NewDecoder()))
		},
		// Mostly-UTF-8 files with a stray bad byte go to the lenient dialect,
		// which keeps their valid characters.
		precheck: rejectMultiByteUTF8,
	},
	{
		name: "csv-lenient",
		decode: func(r io.Reader) io.Reader {
			// Invalid sequences become U+FFFD.
			return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
		},
		lenient: true,
	},
}

func (d csvDialect) open(path string) (*csv.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if d.precheck != nil {
		if err := d.precheck(f); err != nil {
			f.Close()
			return nil, nil, err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, nil, err
		}
	}

	var r io.Reader = f
	if d.decode != nil {
		r = d.decode(f)
	} else {
		r = transform.NewReader(f, unicode.BOMOverride(transform.Nop))
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	if d.lenient {
		cr.LazyQuotes = true
		cr.FieldsPerRecord = -1
	}
	return cr, f, nil
}

func (d csvDialect) checkRecord(record []string) error {
	if d.decode != nil {
		return nil
	}
	for _, field := range record {
		if !utf8.ValidString(field) {
			return errInvalidUTF8
		}
	}
	return nil
}

// readHeader returns the raw first record.
func (d csvDialect) readHeader(path string) ([]string, error) {
	cr, closer, err := d.open(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	record, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, err
	}
	if err := d.checkRecord(record); err != nil {
		return nil, err
	}
	return append([]string(nil), record...), nil
}

// readColumn streams the file and keeps only the cells of the named column.
// Short rows in lenient mode yield an empty (missing) cell.
func (d csvDialect) readColumn(path, column string) ([]string, error) {
	cr, closer, err := d.open(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	record, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, err
	}
	if err := d.checkRecord(record); err != nil {
		return nil, err
	}
	idx := columnIndex(NormalizeHeader(record), column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrColumnNotFound, column)
	}

	var cells []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if idx >= len(record) {
			cells = append(cells, "")
			continue
		}
		cell := record[idx]
		if d.decode == nil && !utf8.ValidString(cell) {
			return nil, errInvalidUTF8
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// rejectMultiByteUTF8 fails when the stream contains at least one valid
// multi-byte UTF-8 sequence. A leading UTF-8 BOM counts.
func rejectMultiByteUTF8(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64<<10)
	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if b < utf8.RuneSelf {
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return err
		}
		// A short peek at end of file still decodes what is there.
		buf, _ := br.Peek(utf8.UTFMax)
		if _, size := utf8.DecodeRune(buf); size > 1 {
			return errMixedEncoding
		}
		if _, err := br.Discard(1); err != nil {
			return err
		}
	}
}
