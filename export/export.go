// Package export persists joined site records. Exporters consume a
// record channel so pipeline stages can stream results as they are
// computed.
package export

import (
	"context"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

type Exporter interface {
	Write(context.Context, <-chan site.Record) error
}
