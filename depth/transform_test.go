package depth

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestTransform_TargetSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		transform Transform
		w, h      int
		wantW     int
		wantH     int
	}{
		{"native", ToTensor(0), 640, 480, 640, 480},
		{"native 14 对齐", ToTensor(14), 64, 64, 70, 70},
		{"native 过小时取一个倍数", ToTensor(14), 3, 3, 14, 14},
		{"dpt 横图", DPTTransform(), 640, 480, 512, 384},
		{"dpt 竖图", DPTTransform(), 480, 640, 384, 512},
		{"dpt 正方形", DPTTransform(), 64, 64, 384, 384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, h := tt.transform.TargetSize(tt.w, tt.h)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestTransform_ApplyToTensor(t *testing.T) {
	t.Parallel()

	img := solidImage(4, 2, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	got, err := ToTensor(0).Apply(img)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 2, 4}, got.Shape)
	require.Len(t, got.Data, 24)
	assert.InDelta(t, 1.0, got.Data[0], 1e-6)
	assert.InDelta(t, 0.0, got.Data[8], 1e-6)
	assert.InDelta(t, 0.2, got.Data[16], 1e-6)
}

func TestTransform_ApplyDPTNormalizes(t *testing.T) {
	t.Parallel()

	img := solidImage(64, 64, color.NRGBA{R: 255, G: 0, B: 255, A: 255})
	got, err := DPTTransform().Apply(img)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 384, 384}, got.Shape)
	plane := 384 * 384
	assert.InDelta(t, 1.0, got.Data[0], 1e-2)
	assert.InDelta(t, -1.0, got.Data[plane], 1e-2)
	assert.InDelta(t, 1.0, got.Data[2*plane+plane/2], 1e-2)
}

func TestTransform_ApplyOffsetBounds(t *testing.T) {
	t.Parallel()

	// SubImage 的 Bounds 不从 0 开始
	img := solidImage(10, 10, color.NRGBA{R: 10, G: 20, B: 30, A: 255}).SubImage(image.Rect(2, 3, 7, 9))
	got, err := ToTensor(0).Apply(img)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 6, 5}, got.Shape)
}

func TestTransform_ApplyEmpty(t *testing.T) {
	t.Parallel()

	_, err := ToTensor(0).Apply(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyImage)
}
