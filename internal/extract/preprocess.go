package extract

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Preprocessor is one step of the scan-cleanup pipeline applied before OCR.
type Preprocessor interface {
	Process(img image.Image) (image.Image, error)
}

type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

type DenoiseProcessor struct {
	strength float64
}

func NewDenoiseProcessor(strength float64) *DenoiseProcessor {
	return &DenoiseProcessor{strength: strength}
}

func (p *DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Blur(img, p.strength), nil
}

type ContrastProcessor struct {
	amount float64
}

func NewContrastProcessor(amount float64) *ContrastProcessor {
	return &ContrastProcessor{amount: amount}
}

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.amount), nil
}

type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}

// DeskewProcessor straightens slightly tilted scans. Angles beyond the
// limit are left alone so a sideways page is not mangled.
type DeskewProcessor struct {
	angleLimit float64
}

func NewDeskewProcessor(angleLimit float64) *DeskewProcessor {
	return &DeskewProcessor{angleLimit: angleLimit}
}

func (p *DeskewProcessor) Process(img image.Image) (image.Image, error) {
	angle := p.detectSkewAngle(img)
	if angle != 0 && math.Abs(angle) < p.angleLimit {
		return imaging.Rotate(img, angle, color.White), nil
	}
	return img, nil
}

// detectSkewAngle estimates tilt from row darkness variance at candidate
// angles. Crude but adequate for office scanner output.
func (p *DeskewProcessor) detectSkewAngle(img image.Image) float64 {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	if bounds.Dx() < 100 || bounds.Dy() < 100 {
		return 0
	}

	best, bestScore := 0.0, -1.0
	for angle := -p.angleLimit; angle <= p.angleLimit; angle += 0.5 {
		rotated := gray
		if angle != 0 {
			rotated = imaging.Rotate(gray, angle, color.White)
		}
		score := rowVariance(rotated)
		if score > bestScore {
			best, bestScore = angle, score
		}
	}
	return -best
}

func rowVariance(img image.Image) float64 {
	bounds := img.Bounds()
	step := bounds.Dy() / 64
	if step < 1 {
		step = 1
	}
	var sums []float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		var rowSum float64
		for x := bounds.Min.X; x < bounds.Max.X; x += 4 {
			rowSum += float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
		sums = append(sums, rowSum)
	}
	if len(sums) == 0 {
		return 0
	}
	var mean float64
	for _, s := range sums {
		mean += s
	}
	mean /= float64(len(sums))
	var variance float64
	for _, s := range sums {
		variance += (s - mean) * (s - mean)
	}
	return variance / float64(len(sums))
}

func defaultPreprocessors() []Preprocessor {
	return []Preprocessor{
		NewGrayscaleProcessor(),
		NewDenoiseProcessor(0.5),
		NewContrastProcessor(20),
		NewDeskewProcessor(5),
		NewSharpenProcessor(0.5),
	}
}
