package stats

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

// RuntimeStats holds the samples collected while a workload ran.
type RuntimeStats struct {
	StartTime    time.Time          `json:"start_time"`
	EndTime      time.Time          `json:"end_time"`
	TotalElapsed time.Duration      `json:"total_elapsed_ns"`
	Samples      []RuntimeStatPoint `json:"samples"`
	Summary      StatsSummary       `json:"summary"`
}

type RuntimeStatPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	HeapAlloc       uint64    `json:"heap_alloc"`
	Sys             uint64    `json:"sys"`
	NumGC           uint32    `json:"num_gc"`
	ProcessRSSBytes uint64    `json:"process_rss_bytes"`
	CPUPercent      float64   `json:"cpu_percent"`
	NumGoroutine    int       `json:"num_goroutine"`
}

type StatsSummary struct {
	PeakHeapAlloc  uint64  `json:"peak_heap_alloc"`
	PeakSys        uint64  `json:"peak_sys"`
	PeakProcessRSS uint64  `json:"peak_process_rss"`
	PeakCPUPercent float64 `json:"peak_cpu_percent"`
	AvgCPUPercent  float64 `json:"avg_cpu_percent"`
	PeakGoroutines int     `json:"peak_goroutines"`
	GCCycles       uint32  `json:"gc_cycles"`
	SampleCount    int     `json:"sample_count"`
}

// Collector samples process statistics on an interval until stopped.
type Collector struct {
	mu       sync.Mutex
	stats    RuntimeStats
	startGC  uint32
	stopChan chan struct{}
	doneChan chan struct{}
	interval time.Duration
	proc     *process.Process
}

func NewCollector(interval time.Duration) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}

	return &Collector{
		stats: RuntimeStats{
			Samples: make([]RuntimeStatPoint, 0, 256),
		},
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		proc:     proc,
	}, nil
}

func (c *Collector) Start() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	c.startGC = memStats.NumGC
	c.stats.StartTime = time.Now()

	go c.collect()
}

func (c *Collector) collect() {
	defer close(c.doneChan)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stopChan:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	point := RuntimeStatPoint{
		Timestamp:    time.Now(),
		HeapAlloc:    memStats.HeapAlloc,
		Sys:          memStats.Sys,
		NumGC:        memStats.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if memInfo, err := c.proc.MemoryInfo(); err == nil && memInfo != nil {
		point.ProcessRSSBytes = memInfo.RSS
	}
	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		point.CPUPercent = cpuPercent
	}

	c.mu.Lock()
	c.stats.Samples = append(c.stats.Samples, point)
	c.mu.Unlock()
}

// Stop ends collection and returns the summarized stats.
func (c *Collector) Stop() RuntimeStats {
	close(c.stopChan)
	<-c.doneChan

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.EndTime = time.Now()
	c.stats.TotalElapsed = c.stats.EndTime.Sub(c.stats.StartTime)
	c.stats.Summary = summarize(c.stats.Samples, c.startGC)

	return c.stats
}

func summarize(samples []RuntimeStatPoint, startGC uint32) StatsSummary {
	var s StatsSummary
	if len(samples) == 0 {
		return s
	}

	var totalCPU float64
	for _, p := range samples {
		s.PeakHeapAlloc = max(s.PeakHeapAlloc, p.HeapAlloc)
		s.PeakSys = max(s.PeakSys, p.Sys)
		s.PeakProcessRSS = max(s.PeakProcessRSS, p.ProcessRSSBytes)
		s.PeakCPUPercent = max(s.PeakCPUPercent, p.CPUPercent)
		s.PeakGoroutines = max(s.PeakGoroutines, p.NumGoroutine)
		totalCPU += p.CPUPercent
	}
	s.SampleCount = len(samples)
	s.AvgCPUPercent = totalCPU / float64(s.SampleCount)
	s.GCCycles = samples[len(samples)-1].NumGC - startGC

	return s
}

// WriteReport prints a human readable summary.
func (stats RuntimeStats) WriteReport(w io.Writer) error {
	s := stats.Summary
	_, err := fmt.Fprintf(w,
		"Elapsed:          %s\n"+
			"Samples:          %d\n"+
			"Peak heap:        %s\n"+
			"Peak sys:         %s\n"+
			"Peak RSS:         %s\n"+
			"CPU peak/avg:     %.1f%% / %.1f%%\n"+
			"Peak goroutines:  %d\n"+
			"GC cycles:        %s\n",
		stats.TotalElapsed.Round(time.Millisecond),
		s.SampleCount,
		humanize.Bytes(s.PeakHeapAlloc),
		humanize.Bytes(s.PeakSys),
		humanize.Bytes(s.PeakProcessRSS),
		s.PeakCPUPercent, s.AvgCPUPercent,
		s.PeakGoroutines,
		humanize.Comma(int64(s.GCCycles)),
	)
	return err
}
