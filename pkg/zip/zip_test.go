package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func archive(t *testing.T, assets []Asset) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, assets, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	return zr
}

func TestWrite(t *testing.T) {
	zr := archive(t, []Asset{
		{Filename: "modern.png", MIME: "image/png", Data: []byte("one")},
		{Filename: "industrial.jpg", MIME: "image/jpeg", Data: []byte("two")},
	})
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(zr.File))
	}
	want := map[string]string{"modern.png": "one", "industrial.jpg": "two"}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != want[f.Name] {
			t.Fatalf("%s = %q, want %q", f.Name, got, want[f.Name])
		}
		if f.Modified.Year() != 2025 {
			t.Fatalf("%s modified = %v", f.Name, f.Modified)
		}
	}
}

func TestWriteRejectsDuplicates(t *testing.T) {
	err := Write(io.Discard, []Asset{
		{Filename: "modern.png", Data: []byte("a")},
		{Filename: "modern.png", Data: []byte("b")},
	}, time.Now())
	if err == nil {
		t.Fatalf("expected duplicate entry error")
	}
}

func TestWriteEmpty(t *testing.T) {
	if zr := archive(t, nil); len(zr.File) != 0 {
		t.Fatalf("entries = %d, want 0", len(zr.File))
	}
}
