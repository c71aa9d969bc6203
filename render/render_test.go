package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	skip2 "github.com/skip2/go-qrcode"

	"github.com/openclaw/pageqr/favicon"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubLoader struct {
	img   image.Image
	err   error
	calls int
}

func (s *stubLoader) Load(ctx context.Context, src string) (image.Image, error) {
	s.calls++
	return s.img, s.err
}

func solid(size int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeQR(t *testing.T, img image.Image) string {
	t.Helper()
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		t.Fatalf("binary bitmap: %v", err)
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		t.Fatalf("decode qr: %v", err)
	}
	return res.GetText()
}

func sameImage(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	r := a.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if color.RGBAModel.Convert(a.At(x, y)) != color.RGBAModel.Convert(b.At(x, y)) {
				return false
			}
		}
	}
	return true
}

func TestRenderWithoutLogoIsPlainBitmap(t *testing.T) {
	const text = "https://example.com/a/b?c=d"
	loader := &stubLoader{}
	c := NewCompositor(Skip2Encoder{}, loader, testLogger())

	res, err := c.Render(context.Background(), text, Options{ShowLogo: false, FaviconSource: "https://example.com/favicon.ico"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Composited || res.LogoFallback {
		t.Fatalf("unexpected flags %+v", res)
	}
	if loader.calls != 0 {
		t.Fatal("favicon should not be loaded when the logo is off")
	}

	q, err := skip2.New(text, skip2.Low)
	if err != nil {
		t.Fatal(err)
	}
	if !sameImage(res.Image, q.Image(Size)) {
		t.Fatal("bitmap differs from encoder output")
	}

	decoded, err := png.Decode(bytes.NewReader(res.PNG))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if decoded.Bounds().Dx() != Size || decoded.Bounds().Dy() != Size {
		t.Fatalf("png bounds = %v", decoded.Bounds())
	}
	if got := decodeQR(t, decoded); got != text {
		t.Fatalf("decoded %q, want %q", got, text)
	}
}

func TestRenderCompositesLogo(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	loader := &stubLoader{img: solid(32, red)}
	c := NewCompositor(Skip2Encoder{}, loader, testLogger())

	res, err := c.Render(context.Background(), "https://example.com/", Options{
		ShowLogo:      true,
		FaviconSource: "https://example.com/favicon.png",
		Domain:        "example.com",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Composited || res.LogoFallback {
		t.Fatalf("flags = %+v", res)
	}

	centre := color.RGBAModel.Convert(res.Image.At(Size/2, Size/2)).(color.RGBA)
	if centre.R < 200 || centre.G > 60 || centre.B > 60 {
		t.Fatalf("centre = %+v, want logo red", centre)
	}
	// Between the clip radius and the backing radius the white disc shows.
	ring := color.RGBAModel.Convert(res.Image.At(Size/2+LogoRadius+1, Size/2)).(color.RGBA)
	if ring.R < 240 || ring.G < 240 || ring.B < 240 {
		t.Fatalf("backing ring = %+v, want white", ring)
	}
	// Outside the clip circle the logo must not leak into the corner of its box.
	corner := color.RGBAModel.Convert(res.Image.At(Size/2-LogoRadius+1, Size/2-LogoRadius+1)).(color.RGBA)
	if corner.R > 200 && corner.G < 60 {
		t.Fatalf("logo corner not clipped: %+v", corner)
	}
}

func TestRenderFaviconFailureUsesPlaceholder(t *testing.T) {
	loader := &stubLoader{err: errors.New("boom")}
	c := NewCompositor(Skip2Encoder{}, loader, testLogger())

	res, err := c.Render(context.Background(), "https://example.com/", Options{
		ShowLogo:      true,
		FaviconSource: "https://example.com/favicon.png",
		Domain:        "example.com",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Composited || !res.LogoFallback {
		t.Fatalf("flags = %+v", res)
	}

	// The placeholder background is light grey, never the QR's pure black.
	c0 := color.RGBAModel.Convert(res.Image.At(Size/2-LogoRadius/2, Size/2-LogoRadius/2)).(color.RGBA)
	if c0.R < 0xc0 {
		t.Fatalf("placeholder pixel = %+v", c0)
	}
}

func TestRenderOversizedFaviconUsesPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(1, color.White)); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], 60000)
	binary.BigEndian.PutUint32(data[20:24], 60000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	c := NewCompositor(Skip2Encoder{}, favicon.NewLoader(nil, 0), testLogger())
	res, err := c.Render(context.Background(), "https://example.com/", Options{
		ShowLogo:      true,
		FaviconSource: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		Domain:        "example.com",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Composited || !res.LogoFallback {
		t.Fatalf("flags = %+v", res)
	}
}

func TestRenderPlaceholderSourceSkipsLoader(t *testing.T) {
	loader := &stubLoader{}
	c := NewCompositor(Skip2Encoder{}, loader, testLogger())

	res, err := c.Render(context.Background(), "https://example.com/", Options{
		ShowLogo:      true,
		FaviconSource: favicon.Placeholder("example.com"),
		Domain:        "example.com",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if loader.calls != 0 {
		t.Fatal("placeholder source should be drawn directly")
	}
	if !res.LogoFallback {
		t.Fatal("expected LogoFallback")
	}
}

func TestRenderExportFailureFallsBackToBitmap(t *testing.T) {
	loader := &stubLoader{img: solid(16, color.RGBA{B: 255, A: 255})}
	c := NewCompositor(Skip2Encoder{}, loader, testLogger())

	calls := 0
	c.encodePNG = func(w io.Writer, img image.Image) error {
		calls++
		if calls > 1 {
			return errors.New("tainted canvas")
		}
		return png.Encode(w, img)
	}

	const text = "https://example.com/x"
	res, err := c.Render(context.Background(), text, Options{ShowLogo: true, FaviconSource: "https://example.com/i.png"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Composited {
		t.Fatal("composite should be abandoned")
	}
	q, _ := skip2.New(text, skip2.Low)
	if !sameImage(res.Image, q.Image(Size)) {
		t.Fatal("expected the raw bitmap")
	}
}

func TestRenderWithoutEncoder(t *testing.T) {
	c := NewCompositor(nil, nil, testLogger())
	if _, err := c.Render(context.Background(), "x", Options{}); !errors.Is(err, ErrEncoderUnavailable) {
		t.Fatalf("err = %v, want ErrEncoderUnavailable", err)
	}
}

func TestEncoders(t *testing.T) {
	const text = "https://tinyurl.com/abc123"
	for _, name := range []string{"skip2", "yeqown"} {
		t.Run(name, func(t *testing.T) {
			enc, err := NewEncoder(name)
			if err != nil {
				t.Fatal(err)
			}
			img, err := enc.Encode(text, Size)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if img.Bounds().Dx() != Size || img.Bounds().Dy() != Size {
				t.Fatalf("bounds = %v", img.Bounds())
			}
			if got := decodeQR(t, img); got != text {
				t.Fatalf("decoded %q, want %q", got, text)
			}
		})
	}

	if _, err := NewEncoder("zxing"); err == nil {
		t.Fatal("unknown encoder should fail")
	}
}
