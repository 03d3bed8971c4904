// Package imageio decodes encoded images into dense RGB pixel buffers.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/sam-embed/internal/model"
)

// Channels is the number of color channels in an Image.
const Channels = 3

// Image is an 8-bit RGB pixel buffer in height x width x channel order.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
	Format string
}

// At returns channel c of the pixel at (x, y).
func (im *Image) At(x, y, c int) uint8 {
	return im.Pix[(y*im.Width+x)*Channels+c]
}

// ToNRGBA converts the buffer into an opaque image.NRGBA.
func (im *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	for i, j := 0, 0; i < len(im.Pix); i, j = i+Channels, j+4 {
		out.Pix[j] = im.Pix[i]
		out.Pix[j+1] = im.Pix[i+1]
		out.Pix[j+2] = im.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// FromImage flattens img into an RGB buffer. Alpha is discarded.
func FromImage(img image.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &Image{Width: w, Height: h, Pix: make([]uint8, w*h*Channels)}

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w*4]
			for x := 0; x < w; x++ {
				copy(out.Pix[(y*w+x)*Channels:], row[x*4:x*4+Channels])
			}
		}
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*w + x) * Channels
			out.Pix[i] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
		}
	}
	return out
}

// Decode reads an encoded image from r.
func Decode(r io.Reader) (*Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, model.DecodeError("decode image", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, model.DecodeError("decode image", fmt.Errorf("image has no pixels"))
	}
	out := FromImage(img)
	out.Format = format
	return out, nil
}

// DecodeBytes decodes an uploaded image buffer.
func DecodeBytes(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, model.DecodeError("decode image", errors.New("empty image data"))
	}
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes the image stored at path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.IOError("read image", err)
	}
	defer f.Close()
	return Decode(f)
}
