package partition

// Grid is the factorization of the worker count used by the Block strategy:
// the output matrix is cut into Rows×Cols rectangles, one per worker.
type Grid struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

// Factor returns the factor pair (R, Q) of workers with R*Q == workers and
// |R-Q| as small as possible. R ≤ Q always holds, so a prime worker count
// gives (1, workers). Worker counts below one yield the zero Grid.
func Factor(workers int) Grid {
	if workers < 1 {
		return Grid{}
	}
	best := Grid{Rows: 1, Cols: workers}
	for f := 2; f*f <= workers; f++ {
		if workers%f == 0 {
			best = Grid{Rows: f, Cols: workers / f}
		}
	}
	return best
}

// block returns the row and column spans of worker w for an N×N matrix.
//
// Nominal blocks are N/Rows tall and N/Cols wide. The last block row and the
// last block column extend to N so the remainder of the integer division is
// never dropped; those workers carry the extra load.
func (g Grid) block(size, w int) (rows, cols Span) {
	height := size / g.Rows
	width := size / g.Cols

	blockRow := w / g.Cols
	blockCol := w % g.Cols

	rows = Span{Start: blockRow * height, End: blockRow*height + height}
	if blockRow == g.Rows-1 {
		rows.End = size
	}
	cols = Span{Start: blockCol * width, End: blockCol*width + width}
	if blockCol == g.Cols-1 {
		cols.End = size
	}
	return rows, cols
}
