package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"trafficdash/coordinator"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToExport is returned for frames without bars.
var ErrNothingToExport = errors.New("ui: chart has no data to export")

var (
	inboundFill  = drawing.Color{R: 54, G: 162, B: 235, A: 255}
	outboundFill = drawing.Color{R: 255, G: 99, B: 132, A: 255}
)

// ExportPNG renders frame as a bar chart with the inbound and outbound bars
// of each label side by side.
func ExportPNG(w io.Writer, frame coordinator.Frame) error {
	p := frame.Projection
	if p.Len() == 0 {
		return ErrNothingToExport
	}
	bars := make([]chart.Value, 0, 2*p.Len())
	for i, label := range p.Labels {
		bars = append(bars,
			chart.Value{
				Label: label + " in",
				Value: float64(p.Inbound[i]),
				Style: chart.Style{FillColor: inboundFill, StrokeColor: inboundFill},
			},
			chart.Value{
				Label: label + " out",
				Value: float64(p.Outbound[i]),
				Style: chart.Style{FillColor: outboundFill, StrokeColor: outboundFill},
			},
		)
	}
	max := float64(p.Max())
	if max <= 0 {
		max = 1
	}
	width := 160 + 2*p.Len()*60
	if width < 640 {
		width = 640
	}
	bc := chart.BarChart{
		Title:      frame.Title + ": " + frame.Subtitle,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		Width:      width,
		Height:     512,
		BarWidth:   40,
		BarSpacing: 20,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok && f >= 0 {
					return FormatBytes(uint64(f))
				}
				return ""
			},
		},
		Bars: bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// SavePNG writes frame to a timestamped file under dir and returns its path.
func SavePNG(dir string, frame coordinator.Frame, now time.Time) (string, error) {
	if frame.Projection.Len() == 0 {
		return "", ErrNothingToExport
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("traffic-%s-%s.png", frame.View.String(), now.Format("20060102-150405"))
	path := filepath.Join(dir, sanitizeFileName(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := ExportPNG(f, frame); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

// sanitizeFileName keeps client ids like IPv6 addresses filesystem safe.
func sanitizeFileName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '(', ')', ' ', '*', '?', '"', '<', '>', '|':
			out[i] = '_'
		}
	}
	return string(out)
}
