package predictor

import (
	"github.com/nfnt/resize"

	"github.com/Brownie44l1/sam-embed/internal/imageio"
	"github.com/Brownie44l1/sam-embed/internal/model"
)

// Size is a height/width pair in pixels.
type Size struct {
	Height int
	Width  int
}

// TargetSize scales (h, w) so the longer side equals longSide.
func TargetSize(h, w, longSide int) Size {
	long := h
	if w > long {
		long = w
	}
	scale := float64(longSide) / float64(long)
	return Size{
		Height: int(float64(h)*scale + 0.5),
		Width:  int(float64(w)*scale + 0.5),
	}
}

// Preprocess resizes img so its longer side matches spec.InputSize,
// normalizes each channel with the spec mean/std and pads the result with
// zeros on the bottom and right. The returned slice is a 1x3xSxS NCHW
// tensor together with the resized (unpadded) size.
func Preprocess(img *imageio.Image, spec model.Spec) ([]float32, Size) {
	target := TargetSize(img.Height, img.Width, spec.InputSize)

	var src *imageio.Image
	if target.Width == img.Width && target.Height == img.Height {
		src = img
	} else {
		resized := resize.Resize(uint(target.Width), uint(target.Height), img.ToNRGBA(), resize.Bilinear)
		src = imageio.FromImage(resized)
	}

	side := spec.InputSize
	plane := side * side
	input := make([]float32, imageio.Channels*plane)

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			for c := 0; c < imageio.Channels; c++ {
				v := float32(src.At(x, y, c))
				input[c*plane+y*side+x] = (v - spec.PixelMean[c]) / spec.PixelStd[c]
			}
		}
	}

	return input, target
}
