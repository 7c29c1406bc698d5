package depth

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrModelUnavailable = errors.New("model not available")
	ErrUnsupportedShape = errors.New("unsupported output shape")
	ErrInvalidTensor    = errors.New("invalid tensor")
	ErrEmptyImage       = errors.New("empty image")
)

// Tensor 行主序的 float32 张量
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor 校验 shape 与数据长度一致
func NewTensor(shape []int, data []float32) (Tensor, error) {
	t := Tensor{Shape: shape, Data: data}
	if err := t.validate(); err != nil {
		return Tensor{}, err
	}
	return t, nil
}

func (t Tensor) Rank() int {
	return len(t.Shape)
}

// Len 返回 shape 各维之积；shape 为空、含非正维度或乘积溢出时返回 -1
func (t Tensor) Len() int {
	n, ok := shapeLen(t.Shape)
	if !ok {
		return -1
	}
	return n
}

func shapeLen(shape []int) (int, bool) {
	if len(shape) == 0 {
		return 0, false
	}
	n := 1
	for _, d := range shape {
		if d <= 0 || n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

func (t Tensor) validate() error {
	n, ok := shapeLen(t.Shape)
	if !ok {
		return fmt.Errorf("%w: shape %v", ErrInvalidTensor, t.Shape)
	}
	if n != len(t.Data) {
		return fmt.Errorf("%w: shape %v needs %d values, got %d", ErrInvalidTensor, t.Shape, n, len(t.Data))
	}
	return nil
}

// Map 二维深度图，行主序，数值没有单位也没有范围保证
type Map struct {
	Width  int
	Height int
	Data   []float32
}

func NewMap(width, height int) Map {
	return Map{Width: width, Height: height, Data: make([]float32, width*height)}
}

func (m Map) At(x, y int) float32 {
	return m.Data[y*m.Width+x]
}

func (m Map) Set(x, y int, v float32) {
	m.Data[y*m.Width+x] = v
}

// Reduce 把模型输出统一成二维深度图
//
//	rank 2 [H, W]       原样使用
//	rank 3 [C, H, W]    按通道求均值
//	rank 4 [N, C, H, W] 取第 0 个 batch，再按 rank 3 处理
//
// 其它 rank 返回 ErrUnsupportedShape。
func Reduce(t Tensor) (Map, error) {
	if err := t.validate(); err != nil {
		return Map{}, err
	}

	switch t.Rank() {
	case 2:
		m := NewMap(t.Shape[1], t.Shape[0])
		copy(m.Data, t.Data)
		return m, nil
	case 3:
		return meanChannels(t.Shape[0], t.Shape[1], t.Shape[2], t.Data), nil
	case 4:
		c, h, w := t.Shape[1], t.Shape[2], t.Shape[3]
		return meanChannels(c, h, w, t.Data[:c*h*w]), nil
	default:
		return Map{}, fmt.Errorf("%w: rank %d %v", ErrUnsupportedShape, t.Rank(), t.Shape)
	}
}

func meanChannels(c, h, w int, data []float32) Map {
	m := NewMap(w, h)
	plane := h * w
	if c == 1 {
		copy(m.Data, data[:plane])
		return m
	}

	for i := 0; i < plane; i++ {
		var sum float64
		for ch := 0; ch < c; ch++ {
			sum += float64(data[ch*plane+i])
		}
		m.Data[i] = float32(sum / float64(c))
	}
	return m
}
