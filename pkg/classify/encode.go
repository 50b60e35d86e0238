package classify

import (
	"bytes"
	"image/jpeg"

	"github.com/binsort/binwatch/pkg/frame"
)

// jpegQuality balances upload size against enough detail for the
// model to tell materials apart.
const jpegQuality = 85

// EncodeJPEG encodes a frame as JPEG for the wire.
func EncodeJPEG(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.ToImage(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
