package favicon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// icoEntry is one directory entry of an ICO file.
type icoEntry struct {
	width  int
	height int
	bpp    int
	size   int
	offset int
}

func isICO(data []byte) bool {
	return len(data) >= 6 &&
		binary.LittleEndian.Uint16(data[0:2]) == 0 &&
		binary.LittleEndian.Uint16(data[2:4]) == 1 &&
		binary.LittleEndian.Uint16(data[4:6]) > 0
}

// decodeICO decodes the largest image of an ICO container. Entries may hold
// PNG data or a headerless BMP (DIB) whose height covers both the colour and
// the AND mask.
func decodeICO(data []byte) (image.Image, error) {
	entries, err := readICODirectory(data)
	if err != nil {
		return nil, err
	}

	best := entries[0]
	for _, e := range entries[1:] {
		if e.width*e.height > best.width*best.height ||
			(e.width*e.height == best.width*best.height && e.bpp > best.bpp) {
			best = e
		}
	}

	payload := data[best.offset : best.offset+best.size]
	if bytes.HasPrefix(payload, pngSignature) {
		cfg, err := png.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: ico png entry: %v", ErrUnsupportedImage, err)
		}
		if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		img, err := png.Decode(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: ico png entry: %v", ErrUnsupportedImage, err)
		}
		return img, nil
	}
	return decodeDIB(payload)
}

func readICODirectory(data []byte) ([]icoEntry, error) {
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if len(data) < 6+count*16 {
		return nil, fmt.Errorf("%w: truncated ico directory", ErrUnsupportedImage)
	}

	entries := make([]icoEntry, 0, count)
	for i := 0; i < count; i++ {
		d := data[6+i*16 : 6+(i+1)*16]
		e := icoEntry{
			width:  int(d[0]),
			height: int(d[1]),
			bpp:    int(binary.LittleEndian.Uint16(d[6:8])),
			size:   int(binary.LittleEndian.Uint32(d[8:12])),
			offset: int(binary.LittleEndian.Uint32(d[12:16])),
		}
		// A zero dimension byte means 256.
		if e.width == 0 {
			e.width = 256
		}
		if e.height == 0 {
			e.height = 256
		}
		if e.size <= 0 || e.offset < 0 || e.offset+e.size > len(data) {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: ico has no usable entries", ErrUnsupportedImage)
	}
	return entries, nil
}

// decodeDIB wraps a BITMAPINFOHEADER-prefixed bitmap in a BMP file header,
// halving the height to drop the AND mask, and decodes it.
func decodeDIB(dib []byte) (image.Image, error) {
	if len(dib) < 40 {
		return nil, fmt.Errorf("%w: truncated ico bitmap", ErrUnsupportedImage)
	}
	headerSize := int(binary.LittleEndian.Uint32(dib[0:4]))
	if headerSize < 40 || headerSize > len(dib) {
		return nil, fmt.Errorf("%w: bad ico bitmap header", ErrUnsupportedImage)
	}

	width := int(int32(binary.LittleEndian.Uint32(dib[4:8])))
	height := int32(binary.LittleEndian.Uint32(dib[8:12]))
	rows := int(height / 2)
	if rows < 0 {
		rows = -rows
	}
	if err := checkDimensions(width, rows); err != nil {
		return nil, err
	}

	patched := make([]byte, len(dib))
	copy(patched, dib)
	binary.LittleEndian.PutUint32(patched[8:12], uint32(height/2))

	bpp := int(binary.LittleEndian.Uint16(patched[14:16]))
	paletteSize := 0
	if bpp <= 8 {
		colors := int(binary.LittleEndian.Uint32(patched[32:36]))
		if colors == 0 {
			colors = 1 << bpp
		}
		paletteSize = colors * 4
	}

	const fileHeaderSize = 14
	file := make([]byte, fileHeaderSize, fileHeaderSize+len(patched))
	file[0], file[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(file[2:6], uint32(fileHeaderSize+len(patched)))
	binary.LittleEndian.PutUint32(file[10:14], uint32(fileHeaderSize+headerSize+paletteSize))
	file = append(file, patched...)

	img, err := bmp.Decode(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%w: ico bitmap: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}
