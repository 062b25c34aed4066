package converter

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	defaultJPEGQuality = 80
	// A crop that removes at least this share of either dimension is taken
	// to mean a text page; smaller reductions keep illustrations intact.
	defaultCropThreshold = 0.15
	defaultLowCut        = 0.01
	defaultHighCut       = 0.99
	// Levels closer than this are treated as a flat image with nothing to trim.
	minCropContrast = 32
	// Channel spread tolerated in a pixel still counted as gray (JPEG noise).
	grayTolerance = 8
)

// ImageAdapter fits JPEG images into a viewport for reading devices.
type ImageAdapter struct {
	JPEGQuality   int
	CropThreshold float64
	LowCut        float64 // brightness percentile taken as the ink level
	HighCut       float64 // brightness percentile taken as the paper level
}

// AdaptedImage holds re-encoded image data and what was done to it.
type AdaptedImage struct {
	Data           []byte
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	Cropped        bool
	Resized        bool
}

// NewImageAdapter creates an image adapter with defaults.
func NewImageAdapter() *ImageAdapter {
	return &ImageAdapter{
		JPEGQuality:   defaultJPEGQuality,
		CropThreshold: defaultCropThreshold,
		LowCut:        defaultLowCut,
		HighCut:       defaultHighCut,
	}
}

// Adapt decodes input, trims the margins of grayscale text pages, shrinks
// the result to fit maxWidth x maxHeight keeping its aspect ratio, and
// re-encodes it as JPEG. Decode and encode failures wrap ErrImageAdaptation.
func (a *ImageAdapter) Adapt(input []byte, maxWidth, maxHeight int) (AdaptedImage, error) {
	src, err := imaging.Decode(bytes.NewReader(input))
	if err != nil {
		return AdaptedImage{}, fmt.Errorf("%w: decode: %v", ErrImageAdaptation, err)
	}

	out := AdaptedImage{
		OriginalWidth:  src.Bounds().Dx(),
		OriginalHeight: src.Bounds().Dy(),
	}

	processed := src
	if isGrayscale(src) {
		if rect, ok := a.contentBounds(src); ok && a.acceptCrop(src.Bounds(), rect) {
			processed = imaging.Crop(src, rect)
			out.Cropped = true
		}
	}

	w, h := processed.Bounds().Dx(), processed.Bounds().Dy()
	if fw, fh, ok := fitWithin(w, h, maxWidth, maxHeight); ok {
		processed = imaging.Resize(processed, fw, fh, imaging.Lanczos)
		out.Resized = true
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, imaging.JPEG, imaging.JPEGQuality(a.JPEGQuality)); err != nil {
		return AdaptedImage{}, fmt.Errorf("%w: encode: %v", ErrImageAdaptation, err)
	}

	out.Data = buf.Bytes()
	out.Width = processed.Bounds().Dx()
	out.Height = processed.Bounds().Dy()
	return out, nil
}

// fitWithin returns the size of a w x h image scaled by one factor so that it
// fits the box, or ok=false when it already fits. The limiting side lands
// exactly on its bound.
func fitWithin(w, h, maxW, maxH int) (int, int, bool) {
	if w <= maxW && h <= maxH {
		return w, h, false
	}
	sx := float64(maxW) / float64(w)
	sy := float64(maxH) / float64(h)
	if sx <= sy {
		nh := int(math.Round(float64(h) * sx))
		return maxW, clamp(nh, 1, maxH), true
	}
	nw := int(math.Round(float64(w) * sy))
	return clamp(nw, 1, maxW), maxH, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// acceptCrop reports whether rect shrinks bounds enough in either dimension.
func (a *ImageAdapter) acceptCrop(bounds, rect image.Rectangle) bool {
	dw := 1 - float64(rect.Dx())/float64(bounds.Dx())
	dh := 1 - float64(rect.Dy())/float64(bounds.Dy())
	return dw >= a.CropThreshold || dh >= a.CropThreshold
}

// contentBounds finds the box around pixels darker than the midpoint of the
// ink and paper levels, taken from the low and high brightness percentiles.
func (a *ImageAdapter) contentBounds(img image.Image) (image.Rectangle, bool) {
	hist := imaging.Histogram(img)
	low := percentileLevel(hist, a.LowCut)
	high := percentileLevel(hist, a.HighCut)
	if high-low < minCropContrast {
		return image.Rectangle{}, false
	}
	threshold := uint8((low + high) / 2)

	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := nrgba.Pix[(y-b.Min.Y)*nrgba.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			i := (x - b.Min.X) * 4
			if luminance(row[i], row[i+1], row[i+2]) > threshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	// The clone is zero-based; imaging.Crop takes source coordinates.
	return image.Rect(minX, minY, maxX+1, maxY+1).Add(img.Bounds().Min), true
}

// percentileLevel returns the first brightness level at which the
// cumulative share of pixels reaches p.
func percentileLevel(hist [256]float64, p float64) int {
	sum := 0.0
	for level, share := range hist {
		sum += share
		if sum >= p {
			return level
		}
	}
	return 255
}

func luminance(r, g, b uint8) uint8 {
	return uint8(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b) + 0.5)
}

// isGrayscale reports whether every pixel has (nearly) equal channels.
func isGrayscale(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	nrgba := imaging.Clone(img)
	pix := nrgba.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
		if absDiff(r, g) > grayTolerance || absDiff(g, b) > grayTolerance || absDiff(r, b) > grayTolerance {
			return false
		}
	}
	return true
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
