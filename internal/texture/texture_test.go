package texture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func tgaHeader(imageType byte, width, height, bpp int, descriptor byte) []byte {
	h := make([]byte, tgaHeaderSize)
	h[2] = imageType
	h[12] = byte(width)
	h[13] = byte(width >> 8)
	h[14] = byte(height)
	h[15] = byte(height >> 8)
	h[16] = byte(bpp)
	h[17] = descriptor
	return h
}

func TestDecodeTGA(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 128}

	tests := []struct {
		name string
		data []byte
		want [4]color.NRGBA // (0,0) (1,0) (0,1) (1,1)
	}{
		{
			name: "uncompressed bottom-up",
			data: append(tgaHeader(2, 2, 2, 24, 0),
				0, 0, 255, 0, 0, 255, // bottom row: red red
				255, 0, 0, 255, 0, 0, // top row: blue blue (opaque)
			),
			want: [4]color.NRGBA{
				{B: 255, A: 255}, {B: 255, A: 255},
				red, red,
			},
		},
		{
			name: "rle top-down 32bit",
			data: append(tgaHeader(10, 2, 2, 32, 0x20),
				0x81, 0, 0, 255, 255,                 // run of 2 red
				0x01, 255, 0, 0, 128, 255, 0, 0, 128, // 2 raw blue
			),
			want: [4]color.NRGBA{red, red, blue, blue},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeTGA(tt.data)
			if err != nil {
				t.Fatalf("DecodeTGA() error = %v", err)
			}
			pts := []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
			for i, p := range pts {
				got := color.NRGBAModel.Convert(img.At(p.X, p.Y)).(color.NRGBA)
				if got != tt.want[i] {
					t.Errorf("pixel %v = %v, want %v", p, got, tt.want[i])
				}
			}
		})
	}
}

func TestDecodeTGAUnsupported(t *testing.T) {
	data := tgaHeader(1, 1, 1, 8, 0)
	if _, err := DecodeTGA(data); !errors.Is(err, ErrTGAUnsupported) {
		t.Errorf("DecodeTGA() error = %v, want ErrTGAUnsupported", err)
	}
	if _, err := DecodeTGA([]byte{1, 2}); err == nil {
		t.Error("expected error for short data")
	}
}

func TestSavePNGWritesEightBitImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tex.png")

	src := image.NewRGBA64(image.Rect(5, 5, 9, 7))
	src.Set(5, 5, color.RGBA64{R: 0xffff, A: 0xffff})

	if err := SavePNG(src, path); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 2 {
		t.Errorf("size = %dx%d, want 4x2", cfg.Width, cfg.Height)
	}
	if cfg.ColorModel == color.RGBA64Model || cfg.ColorModel == color.NRGBA64Model {
		t.Error("expected 8-bit color model")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	r, _, _, _ := loaded.At(0, 0).RGBA()
	if r != 0xffff {
		t.Errorf("red channel = %#x, want 0xffff", r)
	}
}

func TestSavePNGAlphaChannel(t *testing.T) {
	tests := []struct {
		name  string
		fill  color.NRGBA
		model color.Model
	}{
		{"opaque as rgb", color.NRGBA{R: 10, G: 20, B: 30, A: 255}, color.RGBAModel},
		{"translucent as rgba", color.NRGBA{R: 10, G: 20, B: 30, A: 128}, color.NRGBAModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tex.png")
			if err := SavePNG(Solid(2, 2, tt.fill), path); err != nil {
				t.Fatalf("SavePNG() error = %v", err)
			}
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			cfg, err := png.DecodeConfig(f)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.ColorModel != tt.model {
				t.Errorf("color model = %v, want %v", cfg.ColorModel, tt.model)
			}
		})
	}
}

func TestSolidAndResize(t *testing.T) {
	c := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	img := Solid(3, 3, c)
	if got := img.NRGBAAt(2, 2); got != c {
		t.Errorf("Solid pixel = %v, want %v", got, c)
	}
	small := Resize(img, 1, 1)
	if got := small.NRGBAAt(0, 0); got != c {
		t.Errorf("Resize pixel = %v, want %v", got, c)
	}
}

func TestToNRGBAOffsetsOrigin(t *testing.T) {
	src := image.NewGray(image.Rect(2, 3, 4, 5))
	src.SetGray(2, 3, color.Gray{Y: 200})
	dst := ToNRGBA(src)
	if dst.Bounds().Min != (image.Point{}) {
		t.Errorf("origin = %v, want (0,0)", dst.Bounds().Min)
	}
	if got := dst.NRGBAAt(0, 0); got.R != 200 || got.A != 255 {
		t.Errorf("pixel = %v", got)
	}
}
