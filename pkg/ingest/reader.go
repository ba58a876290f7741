package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/logging"
	"github.com/agentstation/ledgermap/pkg/records"
)

// Format describes how a source writes its files.
type Format struct {
	Delimiter string `yaml:"delimiter"`
	Encoding  string `yaml:"encoding"`
}

// DefaultFormat returns the format used when a source configures none.
func DefaultFormat() Format {
	return Format{Delimiter: constants.DefaultDelimiter, Encoding: constants.DefaultEncoding}
}

// Validate checks the delimiter and the encoding name.
func (f Format) Validate() error {
	if _, err := f.delimiter(); err != nil {
		return err
	}
	_, err := f.decoder()
	return err
}

func (f Format) delimiter() (rune, error) {
	d := f.Delimiter
	switch strings.ToLower(d) {
	case "":
		d = constants.DefaultDelimiter
	case "tab", `\t`:
		d = "\t"
	}
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, errors.NewValidationError("delimiter", f.Delimiter, "delimiter must be a single character")
	}
	return r, nil
}

// decoder maps an encoding name onto a decoder that also drops a UTF-8 BOM.
func (f Format) decoder() (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.ReplaceAll(f.Encoding, "_", "-")) {
	case "", "utf-8", "utf8":
		enc = unicode.UTF8
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "iso-8859-1", "latin1", "latin-1":
		enc = charmap.ISO8859_1
	default:
		return nil, errors.NewValidationError("encoding", f.Encoding, "unsupported encoding")
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

// File is a fully read input.
type File struct {
	Input  Input
	Header []string
	Rows   []*records.Raw
}

// ReadFile opens and reads one input. Failures to open or read the file are
// IO errors and fatal for the store that owns it.
func ReadFile(ctx context.Context, in Input, format Format) (*File, error) {
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, errors.WrapIO("read", in.Path, err)
	}
	f, err := Read(bytes.NewReader(data), in, format)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().
		Str("source", string(in.Source)).
		Str("store", string(in.Store)).
		Str("kind", string(in.Kind)).
		Str("file", in.Path).
		Int("rows", len(f.Rows)).
		Msg("Read input file")
	return f, nil
}

// Read decodes and splits r. Blank lines are skipped. Short rows are padded
// with empty values and cells beyond the header are ignored.
func Read(r io.Reader, in Input, format Format) (*File, error) {
	delim, err := format.delimiter()
	if err != nil {
		return nil, errors.NewConfigError("ingest", err.Error(), err)
	}
	dec, err := format.decoder()
	if err != nil {
		return nil, errors.NewConfigError("ingest", err.Error(), err)
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return &File{Input: in}, nil
	}
	if err != nil {
		return nil, errors.WrapParse("csv", in.Path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	f := &File{Input: in, Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", in.Path, err)
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if _, dup := fields[h]; dup {
				continue
			}
			if i < len(rec) {
				fields[h] = rec[i]
			} else {
				fields[h] = ""
			}
		}
		f.Rows = append(f.Rows, &records.Raw{
			Source: in.Source,
			Store:  in.Store,
			Kind:   in.Kind,
			File:   in.Path,
			Line:   line,
			Fields: fields,
		})
	}
	return f, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
