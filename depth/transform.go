package depth

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

type ResizeMode int

const (
	// ResizeNative 保持原图尺寸，只在 MultipleOf > 0 时对齐到倍数
	ResizeNative ResizeMode = iota
	// ResizeMinimal 保持宽高比，在目标宽高中选缩放幅度最小的一边
	ResizeMinimal
)

// Transform 模型对应的预处理：缩放 + 归一化 + HWC 转 CHW
type Transform struct {
	Mode       ResizeMode
	Width      int
	Height     int
	MultipleOf int
	Mean       [3]float32
	Std        [3]float32
	Interp     resize.InterpolationFunction
}

// ToTensor 只做 /255 和 CHW 转换
func ToTensor(multipleOf int) Transform {
	return Transform{
		Mode:       ResizeNative,
		MultipleOf: multipleOf,
		Std:        [3]float32{1, 1, 1},
		Interp:     resize.Bicubic,
	}
}

// DPTTransform MiDaS DPT 模型的预处理，384 最小缩放、32 对齐、mean/std = 0.5
func DPTTransform() Transform {
	return Transform{
		Mode:       ResizeMinimal,
		Width:      384,
		Height:     384,
		MultipleOf: 32,
		Mean:       [3]float32{0.5, 0.5, 0.5},
		Std:        [3]float32{0.5, 0.5, 0.5},
		Interp:     resize.Bicubic,
	}
}

// TargetSize 计算送入模型的输入尺寸
func (t Transform) TargetSize(width, height int) (int, int) {
	switch t.Mode {
	case ResizeMinimal:
		scaleW := float64(t.Width) / float64(width)
		scaleH := float64(t.Height) / float64(height)
		if math.Abs(1-scaleW) < math.Abs(1-scaleH) {
			scaleH = scaleW
		} else {
			scaleW = scaleH
		}
		return t.align(scaleW * float64(width)), t.align(scaleH * float64(height))
	default:
		if t.MultipleOf <= 0 {
			return width, height
		}
		return t.align(float64(width)), t.align(float64(height))
	}
}

func (t Transform) align(v float64) int {
	if t.MultipleOf <= 0 {
		return max(1, int(math.Round(v)))
	}
	m := float64(t.MultipleOf)
	return max(t.MultipleOf, int(math.RoundToEven(v/m)*m))
}

// Apply 把图片转成 [1, 3, H, W] 的输入张量
func (t Transform) Apply(img image.Image) (Tensor, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Tensor{}, fmt.Errorf("%w: %dx%d", ErrEmptyImage, b.Dx(), b.Dy())
	}

	w, h := t.TargetSize(b.Dx(), b.Dy())
	src := img
	if w != b.Dx() || h != b.Dy() {
		src = resize.Resize(uint(w), uint(h), img, t.Interp)
	}
	rgb := toNRGBA(src)

	std := t.Std
	for i := range std {
		if std[i] == 0 {
			std[i] = 1
		}
	}

	plane := w * h
	data := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := rgb.Pix[y*rgb.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4:]
			i := y*w + x
			for c := 0; c < 3; c++ {
				data[c*plane+i] = (float32(p[c])/255 - t.Mean[c]) / std[c]
			}
		}
	}

	return Tensor{Shape: []int{1, 3, h, w}, Data: data}, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
