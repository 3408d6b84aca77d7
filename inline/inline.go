package inline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/anisan-cli/seriesdl/downloader"
	"github.com/anisan-cli/seriesdl/engine"
	"github.com/anisan-cli/seriesdl/event"
	"github.com/anisan-cli/seriesdl/icon"
	"github.com/anisan-cli/seriesdl/log"
	"github.com/anisan-cli/seriesdl/source"
	"github.com/anisan-cli/seriesdl/util"
	"github.com/samber/lo"
)

// Fetch resolves options.URL and prints the series.
func Fetch(ctx context.Context, e *engine.Engine, options *Options) error {
	if options.Out == nil {
		options.Out = os.Stdout
	}

	series, err := e.FetchSeries(ctx, options.URL)
	if err != nil {
		return err
	}

	if options.Fetched != nil {
		options.Fetched(series)
	}

	if options.Json {
		return writeJson(options.Out, &Output{URL: options.URL, Series: series, Episodes: series.Episodes()})
	}

	printSeries(options.Out, series)
	return nil
}

// Run resolves options.URL, downloads the selected episodes and reports every event.
// With Json set the events are written as JSON lines followed by the Output document.
func Run(ctx context.Context, e *engine.Engine, options *Options) error {
	if options.Out == nil {
		options.Out = os.Stdout
	}

	series, err := e.FetchSeries(ctx, options.URL)
	if err != nil {
		return err
	}

	if options.Fetched != nil {
		options.Fetched(series)
	}

	selector := options.Selector
	if selector == nil {
		selector = lo.Must(ParseSelector("all"))
	}

	episodes, err := selector(series.Episodes())
	if err != nil {
		return err
	}

	req := engine.NewRequest(series, episodes, e.Settings())
	if options.Configure != nil {
		options.Configure(&req)
	}

	log.Infof("downloading %s of %s", util.Quantify(len(episodes), "episode", "episodes"), series.Title)

	var sink event.Sink
	if options.Json {
		sink = event.NewJSONLines(options.Out)
	} else {
		sink = &textSink{out: options.Out}
	}

	results, err := e.StartDownload(ctx, req, sink)
	if err != nil {
		return err
	}

	if options.Json {
		return writeJson(options.Out, &Output{URL: options.URL, Series: series, Episodes: episodes, Results: results})
	}

	PrintSummary(options.Out, results)
	return nil
}

func printSeries(out io.Writer, series *source.Series) {
	fmt.Fprintf(out, "%s %s\n", icon.Get(icon.Info), series.Title)
	fmt.Fprintf(out, "id: %d\n", series.SeriesID)
	fmt.Fprintf(out, "episodes: %d\n", series.TotalEpisodes)
	if poster, ok := series.PosterURL.Get(); ok {
		fmt.Fprintf(out, "poster: %s\n", poster)
	}
	for _, ep := range series.Episodes() {
		url, _ := series.URL(ep)
		fmt.Fprintf(out, "%4d  %s\n", ep, url)
	}
}

// PrintSummary prints the episode counts of a finished batch.
func PrintSummary(out io.Writer, results []downloader.Result) {
	var completed, failed, cancelled int
	var size int64
	for _, r := range results {
		switch {
		case r.Success:
			completed++
			size += r.Size
		case r.Status == downloader.Cancelled:
			cancelled++
		default:
			failed++
		}
	}

	fmt.Fprintf(out, "%s %d completed, %d failed, %d cancelled (%s)\n",
		icon.Get(icon.Mark), completed, failed, cancelled, util.Bytes(size))
}

// textSink prints terminal events as plain lines. Progress samples are dropped.
type textSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (t *textSink) Emit(e event.Event) {
	var line string

	switch e := e.(type) {
	case event.DownloadResult:
		switch {
		case e.Success:
			line = fmt.Sprintf("%s episode %d done %s", icon.Get(icon.Success), e.Episode, util.Bytes(e.Size))
		case e.Status == downloader.Cancelled.String():
			line = fmt.Sprintf("%s episode %d cancelled", icon.Get(icon.Cancel), e.Episode)
		default:
			line = fmt.Sprintf("%s episode %d failed: %s", icon.Get(icon.Fail), e.Episode, e.Error)
		}
	case event.MergeStarted:
		line = fmt.Sprintf("%s merging %s into %s", icon.Get(icon.Merge), util.Quantify(len(e.Inputs), "episode", "episodes"), e.OutputPath)
	case event.MergeComplete:
		line = fmt.Sprintf("%s merged %s", icon.Get(icon.Success), e.OutputPath)
	case event.MergeError:
		line = fmt.Sprintf("%s merge failed: %s", icon.Get(icon.Fail), e.Message)
	case event.Log:
		line = fmt.Sprintf("%s %s", levelIcon(e.Level), e.Message)
	default:
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

func levelIcon(level event.Level) string {
	switch level {
	case event.LevelSuccess:
		return icon.Get(icon.Success)
	case event.LevelWarning:
		return icon.Get(icon.Warn)
	case event.LevelError:
		return icon.Get(icon.Fail)
	default:
		return icon.Get(icon.Info)
	}
}
