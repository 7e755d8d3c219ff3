package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/gekko3d/prp/portalrt/rt/render"
)

// frameSample is what one rendered frame cost.
type frameSample struct {
	cpu    time.Duration
	stats  render.FrameStats
	clones int
}

// Profiler keeps the last Window frames and reports portal work averaged
// over them.
type Profiler struct {
	Window int

	samples []frameSample
	next    int
	started time.Time
}

func NewProfiler(window int) *Profiler {
	if window < 1 {
		window = 1
	}
	return &Profiler{Window: window}
}

func (p *Profiler) BeginFrame() { p.started = time.Now() }

// EndFrame records the frame started by BeginFrame. clones is the number of
// live portal clones.
func (p *Profiler) EndFrame(stats render.FrameStats, clones int) {
	var cpu time.Duration
	if !p.started.IsZero() {
		cpu = time.Since(p.started)
		p.started = time.Time{}
	}
	p.record(frameSample{cpu: cpu, stats: stats, clones: clones})
}

func (p *Profiler) record(s frameSample) {
	if len(p.samples) < p.Window {
		p.samples = append(p.samples, s)
		return
	}
	p.samples[p.next] = s
	p.next = (p.next + 1) % p.Window
}

func (p *Profiler) Frames() int { return len(p.samples) }

// AverageCPU is the mean recording time of the window.
func (p *Profiler) AverageCPU() time.Duration {
	if len(p.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range p.samples {
		total += s.cpu
	}
	return total / time.Duration(len(p.samples))
}

// LayersPerCamera is the mean number of scene draws per rendered camera.
func (p *Profiler) LayersPerCamera() float64 {
	layers, cameras := 0, 0
	for _, s := range p.samples {
		layers += s.stats.LayersDrawn
		cameras += s.stats.Cameras - s.stats.SkippedCameras
	}
	if cameras == 0 {
		return 0
	}
	return float64(layers) / float64(cameras)
}

// PeakDepth is the deepest portal layer seen in the window.
func (p *Profiler) PeakDepth() int {
	peak := 0
	for _, s := range p.samples {
		peak = max(peak, s.stats.MaxDepth)
	}
	return peak
}

func (p *Profiler) Skipped() int {
	n := 0
	for _, s := range p.samples {
		n += s.stats.SkippedCameras
	}
	return n
}

func (p *Profiler) Reset() {
	p.samples = p.samples[:0]
	p.next = 0
}

func (p *Profiler) String() string {
	var sb strings.Builder
	last := 0
	if n := len(p.samples); n > 0 {
		last = p.samples[(p.next+n-1)%n].clones
	}
	fmt.Fprintf(&sb, "portal frames over %d:\n", len(p.samples))
	fmt.Fprintf(&sb, "  cpu        %.2f ms\n", float64(p.AverageCPU().Microseconds())/1000)
	fmt.Fprintf(&sb, "  layers/cam %.2f\n", p.LayersPerCamera())
	fmt.Fprintf(&sb, "  peak depth %d\n", p.PeakDepth())
	fmt.Fprintf(&sb, "  skipped    %d\n", p.Skipped())
	fmt.Fprintf(&sb, "  clones     %d\n", last)
	return sb.String()
}
