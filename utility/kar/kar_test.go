// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/devblok/torero/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(t *testing.T, files map[string]string, order ...string) []byte {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	for _, name := range order {
		if err := builder.Add(name, strings.NewReader(files[name])); err != nil {
			t.Fatal(err)
		}
	}

	buf := bytes.NewBuffer([]byte{})
	written, err := builder.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(buf.Len()) {
		t.Errorf("written %d, buffer holds %d", written, buf.Len())
	}
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"test":  testString1,
		"test2": testString2,
	}, "test", "test2")

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.Open("test")
	if err != nil {
		t.Fatal(err)
	}

	result := make([]byte, len(testString1))
	n, err := f.Read(result)
	if err != nil {
		t.Error(err)
	}
	if n != len(testString1) {
		t.Errorf("read %d bytes, expected %d", n, len(testString1))
	}

	if strings.Compare(string(result), testString1) != 0 {
		t.Error("test string does not match up")
	}
}

func TestCreateAndReadAll(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"test":  testString1,
		"test2": testString2,
	}, "test", "test2")

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	for name, expected := range map[string]string{"test": testString1, "test2": testString2} {
		f, err := ar.ReadAll(name)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Compare(string(f), expected) != 0 {
			t.Errorf("%s: test string does not match up", name)
		}
	}

	header := ar.Header()
	if header.Author != "devblok" || header.Version != 1 {
		t.Errorf("header not preserved: %+v", header)
	}
	if names := ar.Names(); len(names) != 2 || names[0] != "test" || names[1] != "test2" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestMissingFile(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1}, "test")

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if ar.Has("nope") {
		t.Error("archive reports a file it does not have")
	}
	if _, err := ar.ReadAll("nope"); err != kar.ErrNotExist {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestNotAnArchive(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("PK\x03\x04 definitely a zip"),
		[]byte("KA"),
		append([]byte("KAR\x00"), make([]byte, 16)...),
	} {
		if _, err := kar.Open(bytes.NewReader(data)); err != kar.ErrFileFormat {
			t.Errorf("expected ErrFileFormat for %q, got %v", data, err)
		}
	}
}
