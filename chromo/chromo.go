// Package chromo 根据深度图生成红蓝色立体（chromostereopsis）效果：
// 近处偏红、远处偏蓝，亮度取自原图灰度。
package chromo

import (
	"image"
	"image/color"
	"math"

	"github.com/chaos-io/depthserve/depth"
)

// Params 各项取值范围 0-100（DepthScale 不设上限），与滑杆一致
type Params struct {
	Threshold      int
	DepthScale     int
	Feather        int
	RedBrightness  int
	BlueBrightness int
	Gamma          int
	BlackLevel     int
	WhiteLevel     int
	Smoothing      int
}

func DefaultParams() Params {
	return Params{
		Threshold:      50,
		DepthScale:     50,
		Feather:        10,
		RedBrightness:  50,
		BlueBrightness: 50,
		Gamma:          50,
		BlackLevel:     0,
		WhiteLevel:     100,
		Smoothing:      0,
	}
}

// Apply depth01 需已归一化到 [0, 1]，尺寸与 img 一致
func Apply(img image.Image, depth01 depth.Map, p Params) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := luminance(img, p)
	d := smooth(depth01, float64(p.Smoothing)/10)

	threshold := float64(p.Threshold) / 100
	steep := math.Max(float64(p.DepthScale), 1e-3)
	steep /= float64(p.Feather)/100*10 + 1
	red := float64(p.RedBrightness) / 50
	blue := float64(p.BlueBrightness) / 50

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			blend := 1 / (1 + math.Exp(-steep*(float64(d.At(x, y))-threshold)))
			g := gray[y*w+x]
			out.SetRGBA(x, y, color.RGBA{
				R: clampByte(red * g * blend * 255),
				B: clampByte(blue * g * (1 - blend) * 255),
				A: 255,
			})
		}
	}
	return out
}

// luminance 灰度 + 黑白电平拉伸 + gamma
func luminance(img image.Image, p Params) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	black := float64(p.BlackLevel) * 2.55
	white := float64(p.WhiteLevel) * 2.55
	gamma := 0.1 + float64(p.Gamma)/100*2.9

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			g := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
			g = (g - black) / math.Max(white-black, 1e-6)
			g = math.Min(math.Max(g, 0), 1)
			gray[y*w+x] = math.Pow(g, gamma)
		}
	}
	return gray
}

func clampByte(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
