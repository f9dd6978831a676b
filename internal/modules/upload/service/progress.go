package service

import (
	"io"
	"sync"
)

// ProgressReader reports the share of total bytes read as a percentage.
// Reported values never decrease and 100 is reported at most once.
type ProgressReader struct {
	r        io.Reader
	total    int64
	read     int64
	last     int
	report   func(int)
	mu       sync.Mutex
	finished bool
}

func NewProgressReader(r io.Reader, total int64, report func(int)) *ProgressReader {
	return &ProgressReader{r: r, total: total, last: -1, report: report}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		pct := 99
		if p.total > 0 && p.read < p.total {
			pct = int(p.read * 100 / p.total)
		}
		p.emit(pct)
		p.mu.Unlock()
	}
	return n, err
}

// Finish reports completion once the remote side accepted the bytes.
func (p *ProgressReader) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(100)
	p.finished = true
}

func (p *ProgressReader) emit(pct int) {
	if p.report == nil || p.finished || pct <= p.last {
		return
	}
	p.last = pct
	p.report(pct)
}
