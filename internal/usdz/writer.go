package usdz

import (
	"archive/zip"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// Alignment is the byte boundary every file's data starts on.
const Alignment = 64

const (
	localHeaderSize = 30
	paddingExtraID  = 0x1986
	extraHeaderSize = 4
)

// Writer writes a USDZ package: an uncompressed zip archive in which every
// file's data is aligned to Alignment bytes. The first file added should be
// the root document.
type Writer struct {
	zw     *zip.Writer
	offset int64
	names  map[string]bool
}

// NewWriter returns a Writer writing the archive to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), names: make(map[string]bool)}
}

// Add stores data under name.
func (w *Writer) Add(name string, data []byte) error {
	if w.names[name] {
		return errors.Errorf("duplicate package entry %q", name)
	}
	w.names[name] = true

	extra := paddingExtra(w.offset + localHeaderSize + int64(len(name)))
	size := uint64(len(data))
	fh := &zip.FileHeader{
		Name:               name,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   size,
		UncompressedSize64: size,
		Extra:              extra,
	}
	fh.SetMode(0644)

	fw, err := w.zw.CreateRaw(fh)
	if err != nil {
		return errors.Wrapf(err, "creating entry %q", name)
	}
	if _, err := fw.Write(data); err != nil {
		return errors.Wrapf(err, "writing entry %q", name)
	}
	w.offset += localHeaderSize + int64(len(name)) + int64(len(extra)) + int64(size)
	return nil
}

// Close writes the central directory.
func (w *Writer) Close() error {
	return errors.Wrap(w.zw.Close(), "closing package")
}

// paddingExtra returns an extra field that moves the data following a local
// header ending at headerEnd onto the next aligned offset, or nil when it is
// already aligned.
func paddingExtra(headerEnd int64) []byte {
	if headerEnd%Alignment == 0 {
		return nil
	}
	pad := (Alignment - (headerEnd+extraHeaderSize)%Alignment) % Alignment
	extra := make([]byte, extraHeaderSize+pad)
	binary.LittleEndian.PutUint16(extra[0:], paddingExtraID)
	binary.LittleEndian.PutUint16(extra[2:], uint16(pad))
	return extra
}
