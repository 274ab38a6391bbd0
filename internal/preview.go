package zbxchart

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// DecodeChart decodes a PNG chart. A session that failed to log in gets the
// HTML login page back, which fails here.
func DecodeChart(r io.Reader) (image.Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	return img, nil
}

// FetchImage downloads graphID into memory and decodes it
func (s *ChartSession) FetchImage(ctx context.Context, graphID string, opts ChartOptions) (image.Image, error) {
	var buf bytes.Buffer
	if _, err := s.writeGraph(ctx, graphID, opts, &buf, "preview"); err != nil {
		return nil, err
	}
	return DecodeChart(&buf)
}

// Preview draws img in the terminal until q or Ctrl-C is pressed
func Preview(title string, img image.Image) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	defer ui.Close()

	termWidth, termHeight := ui.TerminalDimensions()

	chart := widgets.NewImage(img)
	chart.Title = title
	chart.Border = true
	chart.TitleStyle = ui.NewStyle(ui.ColorYellow)
	chart.SetRect(0, 0, termWidth, termHeight)

	ui.Render(chart)

	uiEvents := ui.PollEvents()
	for e := range uiEvents {
		switch e.ID {
		case "q", "<C-c>", "<Escape>":
			return nil
		case "m":
			chart.Monochrome = !chart.Monochrome
		case "<Resize>":
			payload := e.Payload.(ui.Resize)
			chart.SetRect(0, 0, payload.Width, payload.Height)
			ui.Clear()
		}
		ui.Render(chart)
	}
	return nil
}
