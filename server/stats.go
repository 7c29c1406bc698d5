package server

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/chaos-io/depthserve/depth"
)

// StatsReporter 定时输出每个模型槽位的请求计数
type StatsReporter struct {
	cron     *cron.Cron
	registry *depth.Registry
}

func NewStatsReporter(registry *depth.Registry, schedule string) (*StatsReporter, error) {
	r := &StatsReporter{cron: cron.New(), registry: registry}
	if _, err := r.cron.AddFunc(schedule, r.Report); err != nil {
		return nil, fmt.Errorf("stats schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *StatsReporter) Start() {
	r.cron.Start()
}

// Stop 等待正在执行的任务结束
func (r *StatsReporter) Stop() {
	<-r.cron.Stop().Done()
}

func (r *StatsReporter) Report() {
	for _, slot := range r.registry.Slots() {
		st := slot.Stats()
		slog.Info("model stats",
			"model", st.Name,
			"available", st.Available,
			"requests", st.Requests,
			"failures", st.Failures,
		)
	}
}
