// Package source supplies the decoded text lines of an ACMI recording,
// whether stored as plain text or inside a zip archive.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxLineSize is the longest line Lines accepts.
const MaxLineSize = 64 << 20

// Extension is the suffix of the archive entry that holds the recording.
const Extension = ".acmi"

var zipMagic = []byte("PK\x03\x04")

// ErrConsumed is yielded when Lines is iterated a second time.
var ErrConsumed = errors.New("source already consumed")

// Source is a single-pass line reader over one recording.
type Source struct {
	name    string
	entry   string
	r       io.Reader
	closers []io.Closer
	used    bool
}

// Open opens a plain or zipped recording on disk. The caller must Close it.
func Open(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Name: path, Err: err}
	}

	magic := make([]byte, len(zipMagic))
	n, err := io.ReadFull(file, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, &ReadError{Name: path, Err: err}
	}

	if n == len(zipMagic) && bytes.Equal(magic, zipMagic) {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, &ReadError{Name: path, Err: err}
		}
		s, err := openArchive(path, file, info.Size())
		if err != nil {
			file.Close()
			return nil, err
		}
		s.closers = append(s.closers, file)
		return s, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, &ReadError{Name: path, Err: err}
	}
	return &Source{name: path, r: file, closers: []io.Closer{file}}, nil
}

// FromReader wraps r. Zip archives are detected by their magic bytes and
// buffered in memory since the archive directory sits at the end.
func FromReader(name string, r io.Reader) (*Source, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(zipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &ReadError{Name: name, Err: err}
	}
	if !bytes.Equal(magic, zipMagic) {
		return &Source{name: name, r: br}, nil
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}
	return openArchive(name, bytes.NewReader(data), int64(len(data)))
}

func openArchive(name string, ra io.ReaderAt, size int64) (*Source, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), Extension) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &ReadError{Name: name + ":" + f.Name, Err: err}
		}
		return &Source{name: name, entry: f.Name, r: rc, closers: []io.Closer{rc}}, nil
	}
	return nil, ErrNotFound
}

// Name returns the path or name the source was opened with.
func (s *Source) Name() string {
	return s.name
}

// Entry returns the archive entry being read, or "" for plain text.
func (s *Source) Entry() string {
	return s.entry
}

// Lines yields every line in file order with its terminator removed.
// A UTF-8 or UTF-16 byte order mark selects the decoding; without one the
// input is read as UTF-8. Lines can be iterated only once.
func (s *Source) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.used {
			yield("", ErrConsumed)
			return
		}
		s.used = true

		decoded := transform.NewReader(s.r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		scanner := bufio.NewScanner(decoded)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

		for scanner.Scan() {
			if !yield(strings.TrimSuffix(scanner.Text(), "\r"), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", &ReadError{Name: s.display(), Err: err})
		}
	}
}

// Close releases the file and archive handles.
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Source) display() string {
	if s.entry == "" {
		return s.name
	}
	return s.name + ":" + s.entry
}
