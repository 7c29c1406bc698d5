package depth

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
)

// 常量深度图时除数的下限
const epsilon = 1e-6

// Normalize 按本张图的最小/最大值线性映射到 [0, 1]。
// 不保留绝对深度，不同请求之间的结果不可比较。
func Normalize(m Map) Map {
	out := NewMap(m.Width, m.Height)
	if len(m.Data) == 0 {
		return out
	}

	lo := float32(math.Inf(1))
	for _, v := range m.Data {
		if v < lo {
			lo = v
		}
	}

	hi := float32(0)
	for i, v := range m.Data {
		d := v - lo
		out.Data[i] = d
		if d > hi {
			hi = d
		}
	}

	div := max(hi, epsilon)
	for i := range out.Data {
		out.Data[i] /= div
	}
	return out
}

// ToGray 归一化后乘 255 截断成 8 位灰度
func ToGray(m Map) *image.Gray {
	n := Normalize(m)
	gray := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < m.Width; x++ {
			row[x] = toUint8(n.At(x, y) * 255)
		}
	}
	return gray
}

func toUint8(v float32) uint8 {
	switch {
	case !(v > 0): // 包括 NaN
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

func EncodePNG(m Map) ([]byte, error) {
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, m.Width, m.Height)
	}
	if len(m.Data) != m.Width*m.Height {
		return nil, fmt.Errorf("%w: %dx%d map with %d values", ErrInvalidTensor, m.Width, m.Height, len(m.Data))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, ToGray(m)); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64PNG 深度图 -> 单通道 PNG -> base64
func EncodeBase64PNG(m Map) (string, error) {
	data, err := EncodePNG(m)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
