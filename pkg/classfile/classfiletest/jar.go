package classfiletest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Entry is one file inside a test archive. A name ending in "/" is written
// as a directory entry.
type Entry struct {
	Name string
	Data []byte
}

// ClassEntry names a class entry after its internal name.
func ClassEntry(b *Builder) Entry {
	return Entry{Name: b.name + ".class", Data: b.Bytes()}
}

// JarBytes zips entries in order.
func JarBytes(tb testing.TB, entries ...Entry) []byte {
	tb.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			tb.Fatalf("create %s: %v", e.Name, err)
		}

		if len(e.Data) > 0 {
			_, err = w.Write(e.Data)
			if err != nil {
				tb.Fatalf("write %s: %v", e.Name, err)
			}
		}
	}

	err := zw.Close()
	if err != nil {
		tb.Fatalf("close zip: %v", err)
	}

	return buf.Bytes()
}

// WriteJar writes a JAR named name under a fresh temporary directory and
// returns its path.
func WriteJar(tb testing.TB, name string, entries ...Entry) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)

	err := os.WriteFile(path, JarBytes(tb, entries...), 0o600)
	if err != nil {
		tb.Fatalf("write jar: %v", err)
	}

	return path
}

// Manifest renders a MANIFEST.MF entry from ordered key/value pairs.
func Manifest(pairs ...string) Entry {
	var buf bytes.Buffer

	buf.WriteString("Manifest-Version: 1.0\r\n")

	for i := 0; i+1 < len(pairs); i += 2 {
		buf.WriteString(pairs[i] + ": " + pairs[i+1] + "\r\n")
	}

	buf.WriteString("\r\n")

	return Entry{Name: "META-INF/MANIFEST.MF", Data: buf.Bytes()}
}
