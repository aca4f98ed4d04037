package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrTGAUnsupported is returned for TGA variants the decoder does not handle.
var ErrTGAUnsupported = errors.New("unsupported TGA image")

const tgaHeaderSize = 18

// DecodeTGA decodes uncompressed (type 2) and RLE compressed (type 10)
// true-color TGA data with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped", ErrTGAUnsupported)
	}
	if imageType != 2 && imageType != 10 {
		return nil, fmt.Errorf("%w: type %d", ErrTGAUnsupported, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrTGAUnsupported, bpp)
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	d := tgaDecoder{
		src:         data[offset:],
		img:         image.NewNRGBA(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		bytesPerPx:  bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}
	if imageType == 2 {
		if len(d.src) < width*height*d.bytesPerPx {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for i := 0; i < width*height; i++ {
			d.put(i, d.read())
		}
		return d.img, nil
	}
	d.decodeRLE()
	return d.img, nil
}

type tgaDecoder struct {
	src         []byte
	pos         int
	img         *image.NRGBA
	width       int
	height      int
	bytesPerPx  int
	topToBottom bool
}

// read consumes one BGR(A) pixel.
func (d *tgaDecoder) read() color.NRGBA {
	p := d.src[d.pos : d.pos+d.bytesPerPx]
	d.pos += d.bytesPerPx
	c := color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bytesPerPx == 4 {
		c.A = p[3]
	}
	return c
}

func (d *tgaDecoder) put(index int, c color.NRGBA) {
	x := index % d.width
	y := index / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetNRGBA(x, y, c)
}

func (d *tgaDecoder) decodeRLE() {
	total := d.width * d.height
	px := 0
	for px < total && d.pos < len(d.src) {
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if d.pos+d.bytesPerPx > len(d.src) {
				return
			}
			c := d.read()
			for i := 0; i < count && px < total; i++ {
				d.put(px, c)
				px++
			}
			continue
		}
		for i := 0; i < count && px < total; i++ {
			if d.pos+d.bytesPerPx > len(d.src) {
				return
			}
			d.put(px, d.read())
			px++
		}
	}
}
