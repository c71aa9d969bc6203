package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	skip2 "github.com/skip2/go-qrcode"
	yeqown "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
	xdraw "golang.org/x/image/draw"
)

// Encoder turns text into a square QR bitmap of the given edge length at low
// error correction.
type Encoder interface {
	Encode(text string, size int) (image.Image, error)
}

// NewEncoder returns the encoder registered under name ("skip2" or "yeqown").
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", "skip2":
		return Skip2Encoder{}, nil
	case "yeqown":
		return YeqownEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown qr encoder %q", name)
	}
}

// Skip2Encoder renders with github.com/skip2/go-qrcode. Its output is
// black on white with the library's default quiet zone.
type Skip2Encoder struct{}

// Encode implements Encoder.
func (Skip2Encoder) Encode(text string, size int) (image.Image, error) {
	q, err := skip2.New(text, skip2.Low)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return q.Image(size), nil
}

// YeqownEncoder renders with github.com/yeqown/go-qrcode and scales the
// result to the requested size with nearest-neighbour sampling.
type YeqownEncoder struct{}

// Encode implements Encoder.
func (YeqownEncoder) Encode(text string, size int) (image.Image, error) {
	qrc, err := yeqown.NewWith(text,
		yeqown.WithEncodingMode(yeqown.EncModeByte),
		yeqown.WithErrorCorrectionLevel(yeqown.ErrorCorrectionLow),
	)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	buf := &bufferCloser{}
	w := standard.NewWithWriter(buf,
		standard.WithQRWidth(8),
		standard.WithBorderWidth(32),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("write qr image: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode qr image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// bufferCloser adapts bytes.Buffer to the io.WriteCloser the yeqown writer
// expects.
type bufferCloser struct {
	bytes.Buffer
}

func (*bufferCloser) Close() error { return nil }
