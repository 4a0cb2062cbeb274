package raster

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ESRI ASCII grid IO. The format stores rows north to south while Grid
// keeps row 0 southernmost, so rows are flipped on both paths. Nodata
// stays the in-memory sentinel 0.

// WriteASCIIGrid writes the grid in ESRI ASCII format.
func WriteASCIIGrid(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\n", g.Cols)
	fmt.Fprintf(w, "nrows %d\n", g.Rows)
	fmt.Fprintf(w, "xllcorner %g\n", g.Extent.MinX)
	fmt.Fprintf(w, "yllcorner %g\n", g.Extent.MinY)
	fmt.Fprintf(w, "cellsize %g\n", g.CellSize)
	fmt.Fprintf(w, "NODATA_value 0\n")
	for r := g.Rows - 1; r >= 0; r-- {
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.FormatFloat(g.At(c, r), 'g', -1, 64))
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

// ReadASCIIGrid reads a grid written by WriteASCIIGrid.
func ReadASCIIGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	header := map[string]float64{}
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 2 && !isNumeric(fields[0]) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad header line %q", path, line)
			}
			header[strings.ToLower(fields[0])] = v
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	cols := int(header["ncols"])
	rows := int(header["nrows"])
	cell := header["cellsize"]
	if cols <= 0 || rows <= 0 || cell <= 0 {
		return nil, fmt.Errorf("%s: incomplete ASCII grid header", path)
	}
	if len(lines) != rows {
		return nil, fmt.Errorf("%s: want %d data rows, got %d", path, rows, len(lines))
	}

	g := &Grid{
		Extent: Extent{
			MinX: header["xllcorner"],
			MinY: header["yllcorner"],
			MaxX: header["xllcorner"] + float64(cols)*cell,
			MaxY: header["yllcorner"] + float64(rows)*cell,
		},
		CellSize: cell,
		Cols:     cols,
		Rows:     rows,
		Values:   make([]float64, cols*rows),
	}
	for i, line := range lines {
		r := rows - 1 - i
		fields := strings.Fields(line)
		if len(fields) != cols {
			return nil, fmt.Errorf("%s: row %d wants %d values, got %d", path, i, cols, len(fields))
		}
		for c, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad value %q in row %d", path, field, i)
			}
			g.Set(c, r, v)
		}
	}
	return g, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
