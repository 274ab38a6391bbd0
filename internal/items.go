package zbxchart

import (
	"context"
	"errors"
)

// ErrNotImplemented is returned by GetByItemIDs for every input
var ErrNotImplemented = errors.New("ad-hoc item graphs are not implemented")

// Graph types accepted by the ad-hoc chart endpoint
const (
	GRAPH_TYPE_NORMAL  = 0
	GRAPH_TYPE_STACKED = 1
)

// ItemChartOptions describes an ad-hoc graph built from item ids rather
// than a configured graph object
type ItemChartOptions struct {
	ChartOptions

	// Type is GRAPH_TYPE_STACKED or GRAPH_TYPE_NORMAL
	Type int
}

// GetByItemIDs will render itemIDs through ITEM_GRAPH_PATH. It currently
// always returns ErrNotImplemented.
// TODO: build the chart.php request (itemids[], type) and share the sink logic with FetchGraph
func (s *ChartSession) GetByItemIDs(ctx context.Context, itemIDs []string, opts ItemChartOptions) error {
	return ErrNotImplemented
}
