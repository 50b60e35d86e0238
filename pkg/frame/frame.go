// Package frame defines the in-memory frame representation shared by
// the capture, motion, and classification stages. A frame stores one
// packed 0xAARRGGBB word per pixel; two pixels are equal only when
// their packed words are identical.
package frame

import (
	"fmt"
	"image"
)

// Frame is a single captured image in packed form.
// Pix is row-major, len(Pix) == Width*Height. Callers must treat a
// built Frame as immutable.
type Frame struct {
	Width  int
	Height int
	Pix    []uint32
}

// New builds a frame from an existing pixel buffer. The buffer is
// used directly, not copied.
func New(width, height int, pix []uint32) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("frame: pixel buffer has %d words, want %d for %dx%d",
			len(pix), width*height, width, height)
	}
	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

// FromImage packs img into a frame, reducing each channel to 8 bits.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := &Frame{Width: w, Height: h, Pix: make([]uint32, w*h)}

	// Camera sources hand us *image.RGBA; pack straight from its
	// pixel buffer instead of going through the color interface.
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*w {
		for i := range f.Pix {
			p := rgba.Pix[i*4 : i*4+4 : i*4+4]
			f.Pix[i] = uint32(p[3])<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		}
		return f
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			f.Pix[i] = (a>>8)<<24 | (r>>8)<<16 | (g>>8)<<8 | (b >> 8)
			i++
		}
	}
	return f
}

// ToImage unpacks the frame for encoding.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, p := range f.Pix {
		img.Pix[i*4+0] = uint8(p >> 16)
		img.Pix[i*4+1] = uint8(p >> 8)
		img.Pix[i*4+2] = uint8(p)
		img.Pix[i*4+3] = uint8(p >> 24)
	}
	return img
}
