package main

import (
	"context"

	"github.com/chaos-io/depthserve/config"
	"github.com/chaos-io/depthserve/depth"
	"github.com/chaos-io/depthserve/depth/onnx"
	"github.com/chaos-io/depthserve/depth/remote"
)

// registryEntries 三个模型槽位及各自的预处理
func registryEntries(cfg *config.Config) []depth.Entry {
	return []depth.Entry{
		{Name: depth.DepthAnything, Load: loader(cfg, cfg.DepthAnything, depth.ToTensor(14))},
		{Name: depth.MiDaS, Load: loader(cfg, cfg.MiDaS, depth.DPTTransform())},
		{Name: depth.Marigold, Load: loader(cfg, cfg.Marigold, depth.ToTensor(0))},
	}
}

func loader(cfg *config.Config, mc config.ModelConfig, transform depth.Transform) depth.Loader {
	return func(ctx context.Context) (*depth.Handle, error) {
		if mc.URL != "" {
			m, err := remote.New(mc.URL, cfg.RemoteTimeout)
			if err != nil {
				return nil, err
			}
			return &depth.Handle{Model: m, Transform: transform}, nil
		}

		device, err := onnx.ParseDevice(cfg.Device)
		if err != nil {
			return nil, err
		}
		m, err := onnx.Load(mc.Path, onnx.Options{LibraryPath: cfg.ORTLibraryPath, Device: device})
		if err != nil {
			return nil, err
		}
		return &depth.Handle{Model: m, Transform: transform}, nil
	}
}
