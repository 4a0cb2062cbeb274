package export

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

// CSV streams records as CSV rows with the canonical dataset header.
// A nil Out writes to stdout.
type CSV struct {
	Out io.Writer
}

func (c *CSV) Write(ctx context.Context, records <-chan site.Record) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	w := csv.NewWriter(out)
	if err := w.Write(site.Header()); err != nil {
		return err
	}

	for r := range records {
		if err := w.Write(r.Row()); err != nil {
			glog.Warningf("error while writing CSV line: %s\n", err)
		}

		w.Flush()
		if err := w.Error(); err != nil {
			glog.Warningf("error flushing CSV: %s\n", err)
		}
	}
	return nil
}
