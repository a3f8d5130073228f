package gallery

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The matrix artifact uses the NumPy .npz container: a zip archive holding a
// single deflate-compressed .npy member, byte-compatible with
// numpy.savez_compressed. The member name matches the original tooling's
// array keyword.
const npzMemberName = "embeddings.npy"

const npyMagic = "\x93NUMPY"

var (
	npyDescrRe   = regexp.MustCompile(`'descr':\s*'([^']+)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape':\s*\((\d+),\s*(\d+)\)`)
)

// writeNPZ writes a rows x dim float32 matrix to w in .npz format.
func writeNPZ(w io.Writer, rows, dim int, data []float32) error {
	zw := zip.NewWriter(w)
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: npzMemberName, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("creating npz member: %w", err)
	}

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, dim)
	// The npy v1.0 preamble (magic + version + header length) is 10 bytes;
	// the header is space-padded and newline-terminated so the data section
	// starts on a 64-byte boundary.
	if pad := 64 - (10+len(header)+1)%64; pad != 64 {
		header += strings.Repeat(" ", pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		return fmt.Errorf("writing npy header length: %w", err)
	}
	buf.WriteString(header)
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("writing npy data: %w", err)
	}

	if _, err := fw.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing npz member: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing npz archive: %w", err)
	}
	return nil
}

// readNPZ reads a two-dimensional float matrix from an .npz archive,
// converting float64 payloads to float32. All format violations are
// reported as ErrCorruptGallery.
func readNPZ(path string) (rows, dim int, data []float32, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", ErrCorruptGallery, err)
	}
	defer zr.Close()

	var member *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".npy") {
			member = f
			break
		}
	}
	if member == nil {
		return 0, 0, nil, fmt.Errorf("%w: no .npy member in %s", ErrCorruptGallery, path)
	}

	rc, err := member.Open()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", ErrCorruptGallery, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", ErrCorruptGallery, err)
	}

	return parseNPY(raw)
}

func parseNPY(raw []byte) (rows, dim int, data []float32, err error) {
	if len(raw) < 10 || string(raw[:6]) != npyMagic {
		return 0, 0, nil, fmt.Errorf("%w: bad npy magic", ErrCorruptGallery)
	}

	var headerLen, headerStart int
	switch major := raw[6]; major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(raw[8:10]))
		headerStart = 10
	case 2, 3:
		if len(raw) < 12 {
			return 0, 0, nil, fmt.Errorf("%w: truncated npy header", ErrCorruptGallery)
		}
		headerLen = int(binary.LittleEndian.Uint32(raw[8:12]))
		headerStart = 12
	default:
		return 0, 0, nil, fmt.Errorf("%w: unsupported npy version %d", ErrCorruptGallery, major)
	}
	if len(raw) < headerStart+headerLen {
		return 0, 0, nil, fmt.Errorf("%w: truncated npy header", ErrCorruptGallery)
	}

	header := string(raw[headerStart : headerStart+headerLen])
	if m := npyFortranRe.FindStringSubmatch(header); m == nil || m[1] != "False" {
		return 0, 0, nil, fmt.Errorf("%w: fortran-ordered arrays are not supported", ErrCorruptGallery)
	}
	shape := npyShapeRe.FindStringSubmatch(header)
	if shape == nil {
		return 0, 0, nil, fmt.Errorf("%w: expected a two-dimensional array", ErrCorruptGallery)
	}
	if rows, err = strconv.Atoi(shape[1]); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: invalid shape %q", ErrCorruptGallery, shape[0])
	}
	if dim, err = strconv.Atoi(shape[2]); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: invalid shape %q", ErrCorruptGallery, shape[0])
	}

	descr := npyDescrRe.FindStringSubmatch(header)
	if descr == nil {
		return 0, 0, nil, fmt.Errorf("%w: missing dtype descriptor", ErrCorruptGallery)
	}
	var elemSize int
	switch descr[1] {
	case "<f4":
		elemSize = 4
	case "<f8":
		elemSize = 8
	default:
		return 0, 0, nil, fmt.Errorf("%w: unsupported dtype %q", ErrCorruptGallery, descr[1])
	}

	// The declared shape is untrusted input: bound it by the payload actually
	// present before allocating, dividing instead of multiplying so an
	// oversized shape cannot overflow.
	payload := raw[headerStart+headerLen:]
	if dim > 0 && rows > len(payload)/elemSize/dim {
		return 0, 0, nil, fmt.Errorf("%w: truncated payload for shape (%d, %d)", ErrCorruptGallery, rows, dim)
	}
	count := rows * dim
	data = make([]float32, count)

	switch elemSize {
	case 4:
		for i := 0; i < count; i++ {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
		}
	case 8:
		for i := 0; i < count; i++ {
			data[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:])))
		}
	}

	return rows, dim, data, nil
}
