package tui

import (
	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/event"
)

// row is the dashboard line of one episode.
type row struct {
	episode    int
	status     downloader.Status
	downloaded int64
	total      int64
	speed      float64
	percentage float64
	err        string
}

func parseStatus(s string) downloader.Status {
	var status downloader.Status
	if err := status.UnmarshalText([]byte(s)); err != nil {
		return downloader.Failed
	}
	return status
}

func (r *row) progress(p event.DownloadProgress) {
	if r.status.Terminal() {
		return
	}
	if r.status == downloader.Pending {
		r.status = downloader.Downloading
	}
	r.downloaded = p.Downloaded
	r.total = p.Total
	r.speed = p.Speed
	r.percentage = p.Percentage
}

func (r *row) finish(res event.DownloadResult) {
	r.status = parseStatus(res.Status)
	r.speed = 0
	r.err = res.Error
	if res.Success {
		r.percentage = 100
		r.downloaded = res.Size
		r.total = res.Size
	}
}

// ratio is the completed fraction for progress bars.
func (r *row) ratio() float64 {
	return min(max(r.percentage/100, 0), 1)
}
