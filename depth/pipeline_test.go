package depth

import (
	"context"
	"errors"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	calls   atomic.Int64
	closed  atomic.Bool
	forward func(in Tensor) (Tensor, error)
	err     error
}

func (f *fakeModel) Forward(_ context.Context, in Tensor) (Tensor, error) {
	f.calls.Add(1)
	if f.forward != nil {
		return f.forward(in)
	}
	// 固定输出 [1, 1, 8, 8] 的梯度图
	data := make([]float32, 64)
	for i := range data {
		data[i] = float32(i)
	}
	return Tensor{Shape: []int{1, 1, 8, 8}, Data: data}, nil
}

func (f *fakeModel) Close() error {
	f.closed.Store(true)
	return f.err
}

func TestRun_Unavailable(t *testing.T) {
	t.Parallel()

	slot := Unavailable(MiDaS, errors.New("boom"))
	_, err := Run(context.Background(), slot, solidImage(4, 4, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, int64(0), slot.Stats().Requests)
}

func TestRun_MatchesImageSize(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	slot := Available(DepthAnything, &Handle{Model: model, Transform: ToTensor(0)})

	sizes := [][2]int{{64, 64}, {30, 20}, {1, 1}, {3, 97}}
	for _, s := range sizes {
		m, err := Run(context.Background(), slot, solidImage(s[0], s[1], color.NRGBA{R: 128, G: 128, B: 128, A: 255}))
		require.NoError(t, err)
		assert.Equal(t, s[0], m.Width)
		assert.Equal(t, s[1], m.Height)
	}
	assert.Equal(t, int64(len(sizes)), model.calls.Load())
	assert.Equal(t, int64(len(sizes)), slot.Stats().Requests)
}

func TestRun_PassesTransformedInput(t *testing.T) {
	t.Parallel()

	var shape []int
	model := &fakeModel{forward: func(in Tensor) (Tensor, error) {
		shape = in.Shape
		return Tensor{Shape: []int{in.Shape[2], in.Shape[3]}, Data: make([]float32, in.Shape[2]*in.Shape[3])}, nil
	}}
	slot := Available(MiDaS, &Handle{Model: model, Transform: DPTTransform()})

	m, err := Run(context.Background(), slot, solidImage(640, 480, color.NRGBA{A: 255}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 384, 512}, shape)
	assert.Equal(t, 640, m.Width)
	assert.Equal(t, 480, m.Height)
}

func TestRun_ForwardErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("device lost")
	tests := []struct {
		name    string
		forward func(Tensor) (Tensor, error)
		wantErr error
	}{
		{
			name:    "前向失败",
			forward: func(Tensor) (Tensor, error) { return Tensor{}, boom },
			wantErr: boom,
		},
		{
			name: "输出 rank 不支持",
			forward: func(Tensor) (Tensor, error) {
				return Tensor{Shape: []int{4}, Data: make([]float32, 4)}, nil
			},
			wantErr: ErrUnsupportedShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slot := Available(Marigold, &Handle{Model: &fakeModel{forward: tt.forward}, Transform: ToTensor(0)})
			_, err := Run(context.Background(), slot, solidImage(4, 4, color.NRGBA{A: 255}))
			assert.ErrorIs(t, err, tt.wantErr)

			stats := slot.Stats()
			assert.Equal(t, int64(1), stats.Requests)
			assert.Equal(t, int64(1), stats.Failures)
		})
	}
}
