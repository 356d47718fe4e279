package ocr

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// PreprocessOptions tunes the OCR preprocessing chain.
type PreprocessOptions struct {
	// UpscaleFactor is the integer enlargement applied after grayscale; values below 2 are raised to 2.
	UpscaleFactor int
	// DenoiseKernel is the odd median window. Below 3 a light gaussian blur is used instead.
	DenoiseKernel int
	// ContrastTile is the number of equalization tiles per image side.
	ContrastTile int
	// ClipLimit caps each tile histogram bin at ClipLimit times the uniform bin height. 0 disables clipping.
	ClipLimit float64
	// ThresholdWindow is the odd neighbourhood size of the adaptive threshold.
	ThresholdWindow int
	// ThresholdBias is subtracted from the local mean before comparing.
	ThresholdBias int
	// Minimal selects the reduced chain: grayscale, 2x resize, blur, auto-contrast, fixed cutoff.
	Minimal bool
}

// DefaultPreprocessOptions returns the settings used for dense label text.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		UpscaleFactor:   2,
		DenoiseKernel:   3,
		ContrastTile:    8,
		ClipLimit:       2.0,
		ThresholdWindow: 31,
		ThresholdBias:   10,
	}
}

// minimalCutoff is the fixed threshold of the reduced chain.
const minimalCutoff = 160

var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// Preprocess turns a decoded photograph into a binarized, upscaled image
// suited to character recognition. It never mutates img.
func Preprocess(img image.Image, opts PreprocessOptions) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("preprocess: %v", r)
		}
	}()
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	factor := opts.UpscaleFactor
	if factor < 2 {
		factor = 2
	}
	if opts.Minimal {
		return preprocessMinimal(img, factor), nil
	}

	gray := imaging.Grayscale(img)
	up := imaging.Resize(gray, b.Dx()*factor, b.Dy()*factor, imaging.Lanczos)

	var den *image.NRGBA
	if opts.DenoiseKernel >= 3 {
		den = medianFilter(up, opts.DenoiseKernel)
	} else {
		den = imaging.Blur(up, 0.8)
	}
	eq := localContrast(den, opts.ContrastTile, opts.ClipLimit)
	sharp := imaging.Convolve3x3(eq, sharpenKernel, nil)
	return adaptiveThreshold(sharp, opts.ThresholdWindow, opts.ThresholdBias), nil
}

// PreprocessMinimal runs the reduced chain with the default 2x factor.
func PreprocessMinimal(img image.Image) (*image.NRGBA, error) {
	return Preprocess(img, PreprocessOptions{UpscaleFactor: 2, Minimal: true})
}

func preprocessMinimal(img image.Image, factor int) *image.NRGBA {
	b := img.Bounds()
	gray := imaging.Grayscale(img)
	gray = imaging.Resize(gray, b.Dx()*factor, b.Dy()*factor, imaging.CatmullRom)
	gray = imaging.Blur(gray, 1)
	gray = autoContrast(gray)
	return binarize(gray, minimalCutoff)
}

// luminance copies the red channel of a grayscale NRGBA into a dense buffer.
func luminance(img *image.NRGBA) ([]uint8, int, int) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	lum := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			lum[y*w+x] = row[x*4]
		}
	}
	return lum, w, h
}

func fromLuminance(lum []uint8, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			v := lum[y*w+x]
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = v, v, v, 255
		}
	}
	return out
}

// medianFilter removes speckle noise while keeping stroke edges.
func medianFilter(img *image.NRGBA, window int) *image.NRGBA {
	if window%2 == 0 {
		window++
	}
	lum, w, h := luminance(img)
	out := make([]uint8, len(lum))
	half := window / 2
	buf := make([]uint8, 0, window*window)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf = buf[:0]
			for dy := -half; dy <= half; dy++ {
				yy := clamp(y+dy, 0, h-1)
				for dx := -half; dx <= half; dx++ {
					xx := clamp(x+dx, 0, w-1)
					buf = append(buf, lum[yy*w+xx])
				}
			}
			out[y*w+x] = median(buf)
		}
	}
	return fromLuminance(out, w, h)
}

// median sorts buf in place (insertion sort, windows are tiny) and returns the middle value.
func median(buf []uint8) uint8 {
	for i := 1; i < len(buf); i++ {
		v := buf[i]
		j := i - 1
		for j >= 0 && buf[j] > v {
			buf[j+1] = buf[j]
			j--
		}
		buf[j+1] = v
	}
	return buf[len(buf)/2]
}

// localContrast performs tile-based histogram equalization with clipping and
// bilinear blending between neighbouring tile mappings.
func localContrast(img *image.NRGBA, tiles int, clip float64) *image.NRGBA {
	lum, w, h := luminance(img)
	if tiles < 1 {
		tiles = 1
	}
	tileW := ceilDiv(w, minInt(tiles, w))
	tileH := ceilDiv(h, minInt(tiles, h))
	tx := ceilDiv(w, tileW)
	ty := ceilDiv(h, tileH)

	luts := make([][256]uint8, tx*ty)
	for j := 0; j < ty; j++ {
		for i := 0; i < tx; i++ {
			x0, y0 := i*tileW, j*tileH
			x1, y1 := minInt(x0+tileW, w), minInt(y0+tileH, h)
			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[lum[y*w+x]]++
				}
			}
			n := (x1 - x0) * (y1 - y0)
			if clip > 0 {
				limit := int(clip * float64(n) / 256)
				if limit < 1 {
					limit = 1
				}
				excess := 0
				for k := range hist {
					if hist[k] > limit {
						excess += hist[k] - limit
						hist[k] = limit
					}
				}
				inc, rem := excess/256, excess%256
				for k := range hist {
					hist[k] += inc
					if k < rem {
						hist[k]++
					}
				}
			}
			lut := &luts[j*tx+i]
			cdf := 0
			for k := range hist {
				cdf += hist[k]
				lut[k] = uint8(cdf * 255 / n)
			}
		}
	}

	out := make([]uint8, len(lum))
	for y := 0; y < h; y++ {
		gy := (float64(y)+0.5)/float64(tileH) - 0.5
		j0 := clamp(int(math.Floor(gy)), 0, ty-1)
		j1 := clamp(j0+1, 0, ty-1)
		wy := clampF(gy-float64(j0), 0, 1)
		for x := 0; x < w; x++ {
			gx := (float64(x)+0.5)/float64(tileW) - 0.5
			i0 := clamp(int(math.Floor(gx)), 0, tx-1)
			i1 := clamp(i0+1, 0, tx-1)
			wx := clampF(gx-float64(i0), 0, 1)
			v := lum[y*w+x]
			top := (1-wx)*float64(luts[j0*tx+i0][v]) + wx*float64(luts[j0*tx+i1][v])
			bot := (1-wx)*float64(luts[j1*tx+i0][v]) + wx*float64(luts[j1*tx+i1][v])
			out[y*w+x] = uint8((1-wy)*top + wy*bot + 0.5)
		}
	}
	return fromLuminance(out, w, h)
}

// autoContrast stretches the global intensity range to 0..255.
func autoContrast(img *image.NRGBA) *image.NRGBA {
	lum, w, h := luminance(img)
	lo, hi := uint8(255), uint8(0)
	for _, v := range lum {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return fromLuminance(lum, w, h)
	}
	span := int(hi) - int(lo)
	for i, v := range lum {
		lum[i] = uint8((int(v) - int(lo)) * 255 / span)
	}
	return fromLuminance(lum, w, h)
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	lum, w, h := luminance(img)
	for i, v := range lum {
		if v <= threshold {
			lum[i] = 0
		} else {
			lum[i] = 255
		}
	}
	return fromLuminance(lum, w, h)
}

// adaptiveThreshold performs a mean adaptive threshold over an integral image.
func adaptiveThreshold(img *image.NRGBA, window int, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	lum, w, h := luminance(img)
	half := window / 2
	ints := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(lum[y*w+x])
			idx := y*w + x
			if y == 0 {
				ints[idx] = rowSum
			} else {
				ints[idx] = ints[(y-1)*w+x] + rowSum
			}
		}
	}
	at := func(x, y int) int {
		if x < 0 || y < 0 {
			return 0
		}
		return ints[y*w+x]
	}
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		y0, y1 := maxInt(y-half, 0), minInt(y+half, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := maxInt(x-half, 0), minInt(x+half, w-1)
			sum := at(x1, y1) - at(x0-1, y1) - at(x1, y0-1) + at(x0-1, y0-1)
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			th := mean - bias
			if th < 0 {
				th = 0
			}
			if int(lum[y*w+x]) < th {
				i := y*out.Stride + x*4
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = 0, 0, 0
			}
		}
	}
	return out
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

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
