package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tensor  Tensor
		want    Map
		wantErr error
	}{
		{
			name:   "rank 2 原样返回",
			tensor: Tensor{Shape: []int{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}},
			want:   Map{Width: 3, Height: 2, Data: []float32{1, 2, 3, 4, 5, 6}},
		},
		{
			name:   "rank 3 按通道平均",
			tensor: Tensor{Shape: []int{2, 1, 2}, Data: []float32{1, 3, 5, -3}},
			want:   Map{Width: 2, Height: 1, Data: []float32{3, 0}},
		},
		{
			name:   "rank 3 单通道",
			tensor: Tensor{Shape: []int{1, 2, 2}, Data: []float32{1, 2, 3, 4}},
			want:   Map{Width: 2, Height: 2, Data: []float32{1, 2, 3, 4}},
		},
		{
			name:   "rank 4 取第一个 batch",
			tensor: Tensor{Shape: []int{2, 1, 1, 2}, Data: []float32{7, 8, 100, 100}},
			want:   Map{Width: 2, Height: 1, Data: []float32{7, 8}},
		},
		{
			name:   "rank 4 多尺度输出求均值",
			tensor: Tensor{Shape: []int{1, 3, 1, 1}, Data: []float32{1, 2, 6}},
			want:   Map{Width: 1, Height: 1, Data: []float32{3}},
		},
		{
			name:    "rank 1 不支持",
			tensor:  Tensor{Shape: []int{4}, Data: []float32{1, 2, 3, 4}},
			wantErr: ErrUnsupportedShape,
		},
		{
			name:    "rank 5 不支持",
			tensor:  Tensor{Shape: []int{1, 1, 1, 1, 1}, Data: []float32{1}},
			wantErr: ErrUnsupportedShape,
		},
		{
			name:    "数据长度不匹配",
			tensor:  Tensor{Shape: []int{2, 2}, Data: []float32{1, 2, 3}},
			wantErr: ErrInvalidTensor,
		},
		{
			name:    "维度乘积溢出",
			tensor:  Tensor{Shape: []int{1 << 32, 1 << 32}},
			wantErr: ErrInvalidTensor,
		},
		{
			name:    "rank 4 维度乘积溢出",
			tensor:  Tensor{Shape: []int{65536, 65536, 65536, 65536}},
			wantErr: ErrInvalidTensor,
		},
		{
			name:    "零维度",
			tensor:  Tensor{Shape: []int{0, 2}},
			wantErr: ErrInvalidTensor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Reduce(tt.tensor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReduce_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	in := Tensor{Shape: []int{1, 2}, Data: []float32{1, 2}}
	m, err := Reduce(in)
	require.NoError(t, err)

	m.Data[0] = 42
	assert.Equal(t, float32(1), in.Data[0])
}

func TestNewTensor(t *testing.T) {
	t.Parallel()

	_, err := NewTensor([]int{1, 2, 2}, make([]float32, 4))
	assert.NoError(t, err)

	_, err = NewTensor(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTensor)

	_, err = NewTensor([]int{3}, make([]float32, 4))
	assert.ErrorIs(t, err, ErrInvalidTensor)

	_, err = NewTensor([]int{1 << 32, 1 << 32}, nil)
	assert.ErrorIs(t, err, ErrInvalidTensor)
}

func TestTensor_Len(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 24, Tensor{Shape: []int{1, 2, 3, 4}}.Len())
	assert.Equal(t, -1, Tensor{}.Len())
	assert.Equal(t, -1, Tensor{Shape: []int{2, 0}}.Len())
	assert.Equal(t, -1, Tensor{Shape: []int{1 << 32, 1 << 32}}.Len())
}
