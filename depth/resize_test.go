package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rampMap(w, h int) Map {
	m := NewMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(x, y, float32(x+y*w))
		}
	}
	return m
}

func TestResizeBicubic_Size(t *testing.T) {
	t.Parallel()

	sizes := []struct{ inW, inH, outW, outH int }{
		{8, 8, 64, 64},
		{518, 518, 640, 480},
		{384, 512, 31, 17},
		{1, 1, 5, 3},
		{7, 3, 1, 1},
	}
	for _, s := range sizes {
		got := ResizeBicubic(rampMap(s.inW, s.inH), s.outW, s.outH)
		assert.Equal(t, s.outW, got.Width)
		assert.Equal(t, s.outH, got.Height)
		assert.Len(t, got.Data, s.outW*s.outH)
	}
}

func TestResizeBicubic_Golden(t *testing.T) {
	t.Parallel()

	// torch.nn.functional.interpolate(mode="bicubic", align_corners=False)
	src := Map{Width: 2, Height: 1, Data: []float32{0, 1}}
	got := ResizeBicubic(src, 4, 1)
	want := []float32{-0.10546875, 0.2265625, 0.7734375, 1.10546875}
	assert.InDeltaSlice(t, want, got.Data, 1e-6)
}

func TestResizeBicubic_Identity(t *testing.T) {
	t.Parallel()

	src := rampMap(5, 4)
	got := ResizeBicubic(src, 5, 4)
	assert.Equal(t, src.Data, got.Data)

	got.Data[0] = -1
	assert.Equal(t, float32(0), src.Data[0])
}

func TestResizeBicubic_ConstantStaysConstant(t *testing.T) {
	t.Parallel()

	src := NewMap(6, 6)
	for i := range src.Data {
		src.Data[i] = -2.5
	}
	got := ResizeBicubic(src, 13, 9)
	for _, v := range got.Data {
		assert.InDelta(t, -2.5, v, 1e-5)
	}
}

func TestResizeBicubic_DownscaleByTwo(t *testing.T) {
	t.Parallel()

	// 输出像素中心落在两个输入像素正中，线性数据插值后仍为中点
	src := NewMap(8, 1)
	for x := 0; x < 8; x++ {
		src.Set(x, 0, float32(x))
	}
	got := ResizeBicubic(src, 4, 1)
	assert.InDelta(t, 2.5, got.At(1, 0), 1e-5)
	assert.InDelta(t, 4.5, got.At(2, 0), 1e-5)
}
