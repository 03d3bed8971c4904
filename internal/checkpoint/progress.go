package checkpoint

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
)

const renderInterval = 100 * time.Millisecond

// progressBar is an io.Writer that counts bytes and redraws a bar on out.
type progressBar struct {
	out     io.Writer
	bar     progress.Model
	total   int64
	written int64
	last    time.Time
}

func newProgressBar(out io.Writer, total int64) *progressBar {
	return &progressBar{
		out:   out,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		total: total,
	}
}

func (p *progressBar) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if now := time.Now(); now.Sub(p.last) >= renderInterval {
		p.last = now
		p.render()
	}
	return len(b), nil
}

func (p *progressBar) render() {
	if p.out == nil {
		return
	}
	if p.total <= 0 {
		fmt.Fprintf(p.out, "\r%s downloaded", humanize.Bytes(uint64(p.written)))
		return
	}
	pct := float64(p.written) / float64(p.total)
	if pct > 1 {
		pct = 1
	}
	fmt.Fprintf(p.out, "\r%s %s/%s", p.bar.ViewAs(pct),
		humanize.Bytes(uint64(p.written)), humanize.Bytes(uint64(p.total)))
}

func (p *progressBar) finish() {
	if p.out == nil {
		return
	}
	p.render()
	fmt.Fprintln(p.out)
}
