package assets

import (
	"bytes"
	"fmt"
	"image"

	// registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes an image of any registered format.
func LoadImage(src Source, name string) (image.Image, error) {
	data, err := src.ReadFile(name)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return img, nil
}

// Pixels transforms a given image into tightly packed RGBA8
// by drawing it onto a controlled canvas.
func Pixels(img image.Image) []uint8 {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*b.Dx() && rgba.Rect.Min == image.ZP {
		out := make([]uint8, len(rgba.Pix))
		copy(out, rgba.Pix)
		return out
	}
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)
	return canvas.Pix
}
