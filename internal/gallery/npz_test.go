package gallery

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestNPZ_RoundTrip(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}

	var buf bytes.Buffer
	if err := writeNPZ(&buf, 2, 3, data); err != nil {
		t.Fatalf("writeNPZ failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "matrix.npz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	rows, dim, got, err := readNPZ(path)
	if err != nil {
		t.Fatalf("readNPZ failed: %v", err)
	}
	if rows != 2 || dim != 3 {
		t.Errorf("shape = (%d, %d), want (2, 3)", rows, dim)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("data[%d] = %v, want %v", i, got[i], data[i])
		}
	}
}

// buildNPY constructs a raw .npy byte stream for parser tests.
func buildNPY(t *testing.T, descr string, rows, dim int, payload []byte) []byte {
	return buildNPYShape(t, descr, strconv.Itoa(rows)+", "+strconv.Itoa(dim), payload)
}

// buildNPYShape is buildNPY with a verbatim shape string, for headers that
// declare shapes no honest writer produces.
func buildNPYShape(t *testing.T, descr, shape string, payload []byte) []byte {
	t.Helper()
	header := "{'descr': '" + descr + "', 'fortran_order': False, 'shape': (" + shape + "), }"
	if pad := 64 - (10+len(header)+1)%64; pad != 64 {
		header += strings.Repeat(" ", pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		t.Fatalf("writing header length: %v", err)
	}
	buf.WriteString(header)
	buf.Write(payload)
	return buf.Bytes()
}

func TestParseNPY_Float64(t *testing.T) {
	values := []float64{0.5, -0.25, 1.0, 0.125}
	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, values); err != nil {
		t.Fatalf("binary.Write failed: %v", err)
	}

	rows, dim, data, err := parseNPY(buildNPY(t, "<f8", 2, 2, payload.Bytes()))
	if err != nil {
		t.Fatalf("parseNPY failed: %v", err)
	}
	if rows != 2 || dim != 2 {
		t.Errorf("shape = (%d, %d), want (2, 2)", rows, dim)
	}
	for i, v := range values {
		if math.Abs(float64(data[i])-v) > 1e-6 {
			t.Errorf("data[%d] = %v, want %v", i, data[i], v)
		}
	}
}

func TestParseNPY_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"bad magic", []byte("NOTNUMPYXXXXXXXX")},
		{"truncated", []byte(npyMagic)},
		{"truncated payload", buildNPY(t, "<f4", 10, 10, []byte{1, 2, 3})},
		{"unsupported dtype", buildNPY(t, "<i8", 1, 1, make([]byte, 8))},
		// rows*dim would wrap around int64; must reject, not allocate.
		{"overflowing shape", buildNPY(t, "<f4", 1 << 61, 9, make([]byte, 36))},
		{"shape exceeds int range", buildNPYShape(t, "<f4", "99999999999999999999, 1", make([]byte, 4))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, _, err := parseNPY(tc.raw); !errors.Is(err, ErrCorruptGallery) {
				t.Errorf("parseNPY error = %v, want ErrCorruptGallery", err)
			}
		})
	}
}

func TestWriteNPZ_DataAligned(t *testing.T) {
	// The npy data section must start on a 64-byte boundary for a range of
	// shapes, matching NumPy's own writer.
	for _, shape := range [][2]int{{1, 1}, {3, 512}, {100, 768}, {0, 0}} {
		rows, dim := shape[0], shape[1]

		var buf bytes.Buffer
		if err := writeNPZ(&buf, rows, dim, make([]float32, rows*dim)); err != nil {
			t.Fatalf("writeNPZ failed: %v", err)
		}

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatalf("zip.NewReader failed: %v", err)
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			t.Fatalf("opening npz member failed: %v", err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading npz member failed: %v", err)
		}

		headerLen := int(binary.LittleEndian.Uint16(raw[8:10]))
		if (10+headerLen)%64 != 0 {
			t.Errorf("shape (%d, %d): header block is %d bytes, not 64-byte aligned", rows, dim, 10+headerLen)
		}
	}
}
