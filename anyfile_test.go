package anyfile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/anyfile/container"
	anyerrors "github.com/wippyai/anyfile/errors"
	"github.com/wippyai/anyfile/metadata"
	"github.com/wippyai/anyfile/wasm"
)

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x"+Extension)
	doc := container.Describe("x", "round trip", "x.bin", []byte{0, 1, 2})
	c := container.Create(wasm.Minimal().Encode(), []byte{0, 1, 2}, &doc)

	if err := WriteFile(path, c); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if c.Header.DataSize != 3 {
		t.Errorf("header not synced: %+v", c.Header)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got.Payload, c.Payload) || !bytes.Equal(got.Module, c.Module) {
		t.Error("regions differ after round trip")
	}
	if !got.Metadata.Equal(c.Metadata) {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadFile(filepath.Join(dir, "missing.any")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}

	short := filepath.Join(dir, "short.any")
	if err := os.WriteFile(short, []byte("ANYF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(short); anyerrors.KindOf(err) != anyerrors.KindTruncatedHeader {
		t.Errorf("short file error = %v", err)
	}

	trailing := filepath.Join(dir, "trailing.any")
	raw, _ := container.Create(nil, nil, nil).Serialize()
	if err := os.WriteFile(trailing, append(raw, 0xFF), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(trailing); err != nil {
		t.Errorf("lenient read: %v", err)
	}
	if _, err := ReadFile(trailing, container.Strict()); anyerrors.KindOf(err) != anyerrors.KindTrailingData {
		t.Errorf("strict read error = %v", err)
	}
}

func TestWriteFile_InvalidPath(t *testing.T) {
	c := container.Create(nil, nil, nil)
	c.Metadata.Set("k", metadata.Null())
	if err := WriteFile(filepath.Join(t.TempDir(), "no", "such", "dir.any"), c); err == nil {
		t.Error("write into missing directory succeeded")
	}
}
