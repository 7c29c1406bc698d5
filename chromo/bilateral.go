package chromo

import (
	"math"

	"github.com/chaos-io/depthserve/depth"
)

const bilateralDiameter = 5

// smooth 先量化到 8 位再做双边滤波，radius <= 0 时原样返回
func smooth(m depth.Map, radius float64) depth.Map {
	if radius <= 0 {
		return m
	}

	src := make([]uint8, len(m.Data))
	for i, v := range m.Data {
		src[i] = clampByte(math.Round(float64(v) * 255))
	}

	sigma := math.Max(radius*10, 1)
	filtered := bilateral(src, m.Width, m.Height, bilateralDiameter, sigma, sigma)

	out := depth.NewMap(m.Width, m.Height)
	for i, v := range filtered {
		out.Data[i] = float32(v) / 255
	}
	return out
}

// bilateral 圆形窗口，边界按 reflect101 取值
func bilateral(src []uint8, w, h, diameter int, sigmaColor, sigmaSpace float64) []uint8 {
	radius := diameter / 2
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)

	type tap struct {
		dx, dy int
		weight float64
	}
	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if math.Sqrt(r2) > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: math.Exp(r2 * spaceCoeff)})
		}
	}

	var colorWeight [256]float64
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	dst := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := int(src[y*w+x])
			var sum, norm float64
			for _, t := range taps {
				v := int(src[reflect101(y+t.dy, h)*w+reflect101(x+t.dx, w)])
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				wgt := t.weight * colorWeight[diff]
				sum += wgt * float64(v)
				norm += wgt
			}
			dst[y*w+x] = clampByte(math.Round(sum / norm))
		}
	}
	return dst
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
