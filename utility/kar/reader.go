// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// Open opens the kar archived from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	magic := make([]byte, MagicLength)
	if num, err := r.ReadAt(magic, 0); err != nil && err != io.EOF {
		return nil, err
	} else if num < MagicLength || !bytes.Equal(magic, Magic[:]) {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(headerSizeBytes, MagicLength); num < HeaderSizeNumberLength {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}

	if size, ok := readerSize(r); ok && headerSize > size-MagicLength-HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}

	// The section reader stops at the end of the data, so a forged size
	// never allocates more than the archive holds.
	headerBytes, err := ioutil.ReadAll(io.NewSectionReader(r, MagicLength+HeaderSizeNumberLength, headerSize))
	if err != nil {
		return nil, err
	}
	if int64(len(headerBytes)) < headerSize {
		return nil, ErrFileFormat
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	ar := &Archive{
		reader:    r,
		header:    header,
		dataStart: MagicLength + HeaderSizeNumberLength + headerSize,
		index:     make(map[string]IndexEntry, len(header.Index)),
	}
	for _, e := range header.Index {
		ar.index[e.Name] = e
	}
	return ar, nil
}

// readerSize reports the length of readers that know it, such as
// bytes.Reader and mmap.ReaderAt.
func readerSize(r io.ReaderAt) (int64, bool) {
	switch sized := r.(type) {
	case interface{ Size() int64 }:
		return sized.Size(), true
	case interface{ Len() int }:
		return int64(sized.Len()), true
	}
	return 0, false
}

// File is an Archive backed by a memory mapped file.
type File struct {
	*Archive

	mapped *mmap.ReaderAt
}

// OpenFile memory maps the archive at path.
func OpenFile(path string) (*File, error) {
	mapped, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := Open(mapped)
	if err != nil {
		mapped.Close()
		return nil, err
	}
	return &File{Archive: ar, mapped: mapped}, nil
}

// Close unmaps the archive. Readers obtained from it become invalid.
func (f *File) Close() error {
	return f.mapped.Close()
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader    io.ReaderAt
	header    Header
	dataStart int64
	index     map[string]IndexEntry
}

// Header returns the header of the archive.
func (a *Archive) Header() Header {
	return a.header
}

// Has reports whether the archive contains a file with the given name.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Names lists the archived files in the order they were added.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.header.Index))
	for _, e := range a.header.Index {
		names = append(names, e.Name)
	}
	return names
}

// ReadAll returns the entire contents of a file with a given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != r.entry.Size {
		return nil, ErrFileFormat
	}
	return data, nil
}

// Open returns a Reader for a file in the Archive
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, ErrNotExist
	}
	section := io.NewSectionReader(a.reader, a.dataStart+entry.Offset, entry.CompressedSize)
	return &Reader{
		entry:  entry,
		reader: lz4.NewReader(section),
	}, nil
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry  IndexEntry
	reader io.Reader
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}

// Size returns the decompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}
