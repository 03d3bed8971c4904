// Package output writes embeddings to .npy files and to the base64 form
// returned by the HTTP API.
package output

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Brownie44l1/sam-embed/internal/model"
)

// Suffix is appended to the input stem to name the output file.
const Suffix = "_embedding.npy"

var npyMagic = []byte("\x93NUMPY")

// FileName derives the output name from inputPath: the base name up to
// its first dot, followed by Suffix.
func FileName(inputPath string) string {
	base := filepath.Base(inputPath)
	stem, _, _ := strings.Cut(base, ".")
	return stem + Suffix
}

// WriteNPY encodes e as a version 1.0 .npy array of little-endian float32.
func WriteNPY(w io.Writer, e *model.Embedding) error {
	if len(e.Shape) == 0 {
		return fmt.Errorf("embedding has no shape")
	}
	n := 1
	for _, d := range e.Shape {
		n *= int(d)
	}
	if n != len(e.Data) {
		return fmt.Errorf("shape %v holds %d values, embedding has %d", e.Shape, n, len(e.Data))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(npyHeader(e.Shape)); err != nil {
		return err
	}
	var buf [model.ElementSize]byte
	for _, v := range e.Data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// npyHeader builds magic, version, header length and the padded header
// dict. The total preamble is a multiple of 64 bytes.
func npyHeader(shape []int64) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }", shapeStr)

	const preamble = 6 + 2 + 2
	total := preamble + len(dict) + 1
	pad := (64 - total%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	out := make([]byte, 0, preamble+len(dict))
	out = append(out, npyMagic...)
	out = append(out, 1, 0)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(dict)))
	return append(out, dict...)
}

// SaveNPY writes e into dir under FileName(inputPath) and returns the
// path written. dir is created when missing.
func SaveNPY(dir, inputPath string, e *model.Embedding) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", model.IOError("create output directory", err)
	}
	path := filepath.Join(dir, FileName(inputPath))

	f, err := os.Create(path)
	if err != nil {
		return "", model.IOError("create output file", err)
	}
	if err := WriteNPY(f, e); err != nil {
		f.Close()
		os.Remove(path)
		return "", model.IOError("write "+path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", model.IOError("close "+path, err)
	}
	return path, nil
}

// EncodeBase64 returns the one-element list sent back by the HTTP API:
// the raw embedding bytes in standard base64.
func EncodeBase64(e *model.Embedding) []string {
	return []string{base64.StdEncoding.EncodeToString(e.Bytes())}
}
