package depth

import (
	"context"
	"fmt"
	"image"
)

// Model 一个已加载的深度估计网络，只做前向推理
type Model interface {
	Forward(ctx context.Context, input Tensor) (Tensor, error)
	Close() error
}

// Handle 模型与其预处理，启动后只读，可被并发请求共享
type Handle struct {
	Model     Model
	Transform Transform
}

// Predict 预处理 -> 前向 -> 降维 -> 双三次缩放回原图尺寸
func (h *Handle) Predict(ctx context.Context, img image.Image) (Map, error) {
	input, err := h.Transform.Apply(img)
	if err != nil {
		return Map{}, fmt.Errorf("preprocess: %w", err)
	}

	output, err := h.Model.Forward(ctx, input)
	if err != nil {
		return Map{}, fmt.Errorf("forward: %w", err)
	}

	m, err := Reduce(output)
	if err != nil {
		return Map{}, err
	}

	b := img.Bounds()
	return ResizeBicubic(m, b.Dx(), b.Dy()), nil
}

// Run 对指定槽位执行推理，槽位不可用时直接返回 ErrModelUnavailable
func Run(ctx context.Context, slot *Slot, img image.Image) (Map, error) {
	h, err := slot.Handle()
	if err != nil {
		return Map{}, err
	}

	slot.requests.Add(1)
	m, err := h.Predict(ctx, img)
	if err != nil {
		slot.failures.Add(1)
		return Map{}, fmt.Errorf("%s: %w", slot.Name(), err)
	}
	return m, nil
}
