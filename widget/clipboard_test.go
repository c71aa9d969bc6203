package widget

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFileClipboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clip.png")
	data := tinyPNG(t)

	if err := (FileClipboard{Path: path}).WriteImage(context.Background(), data); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("file contents differ")
	}

	if err := (FileClipboard{}).WriteImage(context.Background(), data); !errors.Is(err, ErrNoClipboard) {
		t.Fatalf("empty path err = %v", err)
	}
}

func TestCommandClipboard(t *testing.T) {
	missing := &CommandClipboard{Commands: [][]string{{"pageqr-no-such-clipboard-tool"}}}
	if err := missing.WriteImage(context.Background(), nil); !errors.Is(err, ErrNoClipboard) {
		t.Fatalf("missing tool err = %v", err)
	}

	out := filepath.Join(t.TempDir(), "piped.png")
	c := &CommandClipboard{Commands: [][]string{
		{"pageqr-no-such-clipboard-tool"},
		{"sh", "-c", "cat > " + out},
	}}
	data := tinyPNG(t)
	if err := c.WriteImage(context.Background(), data); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("piped data differs")
	}

	failing := &CommandClipboard{Commands: [][]string{{"sh", "-c", "echo nope >&2; exit 3"}}}
	if err := failing.WriteImage(context.Background(), data); err == nil {
		t.Fatal("expected command failure")
	}
}

func TestRasterizeRoundTrip(t *testing.T) {
	out, err := rasterize(tinyPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 4 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if _, err := rasterize([]byte("junk")); err == nil {
		t.Fatal("junk should fail")
	}
}
