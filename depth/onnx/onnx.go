// Package onnx 通过 ONNX Runtime 运行导出为 .onnx 的深度模型
package onnx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/chaos-io/depthserve/depth"
)

type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

func ParseDevice(s string) (Device, error) {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DeviceAuto:
		return DeviceAuto, nil
	case DeviceCPU, DeviceCUDA:
		return d, nil
	default:
		return "", fmt.Errorf("unknown device %q", s)
	}
}

type Options struct {
	// LibraryPath onnxruntime 动态库路径，为空时使用默认查找
	LibraryPath string
	Device      Device
	// InputName / OutputName 为空时取模型的第一个输入和输出
	InputName  string
	OutputName string
}

var (
	envOnce sync.Once
	envErr  error
)

// Initialize 进程内只初始化一次 ONNX Runtime 环境
func Initialize(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Shutdown 在所有 Model 关闭后调用
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Model 一个 ONNX 会话。每次 Forward 单独分配输入输出张量，会话可并发调用。
type Model struct {
	path       string
	device     Device
	inputName  string
	outputName string
	session    *ort.DynamicAdvancedSession
}

func Load(path string, opts Options) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := Initialize(opts.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("read model io info: %w", err)
	}
	inputName, err := pickName(opts.InputName, inputs)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	outputName, err := pickName(opts.OutputName, outputs)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	so, device, err := sessionOptions(opts.Device)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = so.Destroy()
	}()

	session, err := ort.NewDynamicAdvancedSession(path, []string{inputName}, []string{outputName}, so)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	slog.Debug("onnx session created", "path", path, "device", device, "input", inputName, "output", outputName)
	return &Model{
		path:       path,
		device:     device,
		inputName:  inputName,
		outputName: outputName,
		session:    session,
	}, nil
}

func pickName(want string, infos []ort.InputOutputInfo) (string, error) {
	if len(infos) == 0 {
		return "", errors.New("model declares none")
	}
	if want == "" {
		return infos[0].Name, nil
	}
	for _, info := range infos {
		if info.Name == want {
			return want, nil
		}
	}
	return "", fmt.Errorf("%q not found", want)
}

// sessionOptions auto 模式下 CUDA 不可用时退回 CPU
func sessionOptions(device Device) (*ort.SessionOptions, Device, error) {
	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, "", fmt.Errorf("session options: %w", err)
	}
	if device == DeviceCPU {
		return so, DeviceCPU, nil
	}

	err = appendCUDA(so)
	if err == nil {
		return so, DeviceCUDA, nil
	}
	_ = so.Destroy()
	if device == DeviceCUDA {
		return nil, "", fmt.Errorf("enable cuda: %w", err)
	}

	slog.Info("cuda unavailable, using cpu", "error", err)
	so, err = ort.NewSessionOptions()
	if err != nil {
		return nil, "", fmt.Errorf("session options: %w", err)
	}
	return so, DeviceCPU, nil
}

func appendCUDA(so *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer func() {
		_ = cuda.Destroy()
	}()
	return so.AppendExecutionProviderCUDA(cuda)
}

func (m *Model) Device() Device {
	return m.device
}

// Forward 推理期间无法被 ctx 打断，只在开始前检查一次
func (m *Model) Forward(ctx context.Context, in depth.Tensor) (depth.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return depth.Tensor{}, err
	}

	shape := make(ort.Shape, len(in.Shape))
	for i, d := range in.Shape {
		shape[i] = int64(d)
	}
	input, err := ort.NewTensor(shape, in.Data)
	if err != nil {
		return depth.Tensor{}, fmt.Errorf("input tensor: %w", err)
	}
	defer func() {
		_ = input.Destroy()
	}()

	// 输出置 nil 由 onnxruntime 按实际 shape 分配
	outputs := []ort.ArbitraryTensor{nil}
	if err := m.session.Run([]ort.ArbitraryTensor{input}, outputs); err != nil {
		return depth.Tensor{}, fmt.Errorf("run %s: %w", m.path, err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return depth.Tensor{}, fmt.Errorf("%w: output %s is %T, want float32 tensor", depth.ErrInvalidTensor, m.outputName, outputs[0])
	}

	return fromOutput(out.GetShape(), out.GetData())
}

// fromOutput 数据归 onnxruntime 所有，Destroy 前必须拷贝
func fromOutput(dims ort.Shape, data []float32) (depth.Tensor, error) {
	shape := make([]int, len(dims))
	for i, d := range dims {
		if d <= 0 || d > math.MaxInt32 {
			return depth.Tensor{}, fmt.Errorf("%w: output shape %v", depth.ErrInvalidTensor, dims)
		}
		shape[i] = int(d)
	}
	return depth.NewTensor(shape, append([]float32(nil), data...))
}

func (m *Model) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
