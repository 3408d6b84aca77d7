package rongyok

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/internal/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

const cdn = `https:\/\/cdn.discordapp.com\/attachments\/111\/222\/%d.mp4?ex=abc&is=def`

func watchPage(episodes int) string {
	var links []string
	for ep := 1; ep <= episodes; ep++ {
		links = append(links, fmt.Sprintf(`{"ep":%d,"src":"`+cdn+`"}`, ep, ep))
	}

	return `<!doctype html>
<html>
<head>
<title>รักนี้ไม่มีสิ้นสุด - ตอนที่ 1 ดูซีรีย์ออนไลน์</title>
<meta property="og:image" content="https://rongyok.com/poster/42.jpg">
<meta name="description" content="ซีรีย์จีน ` + fmt.Sprint(episodes) + ` ตอน">
</head>
<body>
<script>var episodes = [` + strings.Join(links, ",") + `];</script>
</body>
</html>`
}

func TestParseSeriesID(t *testing.T) {
	Convey("ParseSeriesID", t, func() {
		id, ok := ParseSeriesID("https://rongyok.com/watch/?series_id=123&ep=2")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, 123)

		id, ok = ParseSeriesID("https://rongyok.com/series/77/some-title")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, 77)

		_, ok = ParseSeriesID("https://rongyok.com/about")
		So(ok, ShouldBeFalse)
	})

	Convey("Match", t, func() {
		r := New(Options{})
		So(r.Match("https://rongyok.com/watch/?series_id=1"), ShouldBeTrue)
		So(r.Match("https://example.com/watch/?series_id=1"), ShouldBeFalse)
		So(r.Match("https://rongyok.com/"), ShouldBeFalse)
	})
}

func TestParse(t *testing.T) {
	Convey("Given a watch page with numbered CDN links", t, func() {
		series, err := parse(42, watchPage(3))

		Convey("parse should extract title, poster and episodes", func() {
			So(err, ShouldBeNil)
			So(series.SeriesID, ShouldEqual, 42)
			So(series.Title, ShouldEqual, "รักนี้ไม่มีสิ้นสุด")
			So(series.PosterURL.OrEmpty(), ShouldEqual, "https://rongyok.com/poster/42.jpg")
			So(series.TotalEpisodes, ShouldEqual, 3)
			So(series.Episodes(), ShouldResemble, []int{1, 2, 3})

			url, ok := series.URL(2)
			So(ok, ShouldBeTrue)
			So(url, ShouldEqual, "https://cdn.discordapp.com/attachments/111/222/2.mp4?ex=abc&is=def")
		})
	})

	Convey("EP-prefixed links and video_url fields should fill gaps", t, func() {
		html := `<title>Show</title><script>
			a = "https://cdn.discordapp.com/attachments/1/2/1.mp4?ex=1";
			b = "https://cdn.discordapp.com/attachments/1/2/ep01.mp4?ex=other";
			c = "https://cdn.discordapp.com/attachments/1/2/EP02.mp4?ex=2";
			d = {"video_url": "https:\/\/media.example\/show\/3.mp4"};
			e = {"video_url": "https://media.example/show/trailer.mp4"};
		</script>`

		series, err := parse(5, html)
		So(err, ShouldBeNil)
		So(series.EpisodeURLs, ShouldResemble, map[int]string{
			1: "https://cdn.discordapp.com/attachments/1/2/1.mp4?ex=1",
			2: "https://cdn.discordapp.com/attachments/1/2/EP02.mp4?ex=2",
			3: "https://media.example/show/3.mp4",
		})
		So(series.Title, ShouldEqual, "Show")
		So(series.PosterURL.IsAbsent(), ShouldBeTrue)
	})

	Convey("A page with gaps in its numbering should count only linked episodes", t, func() {
		html := `<html><head><title>Gaps</title></head><body><script>var e = [` +
			fmt.Sprintf(`{"src":"`+cdn+`"},{"src":"`+cdn+`"},{"src":"`+cdn+`"}`, 1, 2, 5) +
			`];</script></body></html>`

		series, err := parse(9, html)
		So(err, ShouldBeNil)
		So(series.Episodes(), ShouldResemble, []int{1, 2, 5})
		So(series.TotalEpisodes, ShouldEqual, 3)
		So(len(series.Episodes()), ShouldEqual, series.TotalEpisodes)
	})

	Convey("A page without links should fail with the advertised count", t, func() {
		_, err := parse(9, `<html><head><meta name="description" content="ทั้งหมด 24 ตอน"></head></html>`)
		So(errors.Is(err, ErrNoEpisodes), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "24")
	})

	Convey("A page without a title should fall back to the id", t, func() {
		series, err := parse(9, `<script>"https://cdn.discordapp.com/attachments/1/2/1.mp4?ex=1"</script>`)
		So(err, ShouldBeNil)
		So(series.Title, ShouldEqual, "Series 9")
	})
}

func TestResolve(t *testing.T) {
	Convey("Given a fake rongyok server", t, func() {
		var hits atomic.Int32
		var headers atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			headers.Store(r.Header.Clone())

			if r.URL.Path != "/watch/" || r.URL.Query().Get("series_id") == "404" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(watchPage(4)))
		}))
		defer srv.Close()

		c := cache.New("/cache/rongyok/"+fmt.Sprint(time.Now().UnixNano()), time.Hour)
		r := New(Options{BaseURL: srv.URL, Cache: c})

		Convey("Resolve should fetch and parse the watch page", func() {
			series, err := r.Resolve(context.Background(), "https://rongyok.com/watch/?series_id=42")
			So(err, ShouldBeNil)
			So(series.TotalEpisodes, ShouldEqual, 4)
			So(len(series.Episodes()), ShouldEqual, series.TotalEpisodes)

			h := headers.Load().(http.Header)
			So(h.Get("Accept-Language"), ShouldStartWith, "th")
			So(h.Get("Referer"), ShouldEqual, srv.URL+"/")
			So(h.Get("User-Agent"), ShouldContainSubstring, "Mozilla")
		})

		Convey("A second Resolve should be served from the cache", func() {
			_, err := r.Resolve(context.Background(), "https://rongyok.com/watch/?series_id=42")
			So(err, ShouldBeNil)
			again, err := r.Resolve(context.Background(), "https://rongyok.com/series/42")
			So(err, ShouldBeNil)
			So(hits.Load(), ShouldEqual, 1)
			So(again.Title, ShouldEqual, "รักนี้ไม่มีสิ้นสุด")
			So(again.PosterURL.IsPresent(), ShouldBeTrue)
		})

		Convey("A non-2xx page should be an error", func() {
			_, err := r.Resolve(context.Background(), "https://rongyok.com/watch/?series_id=404")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "404")
		})

		Convey("A URL without a series id should fail before any request", func() {
			_, err := r.Resolve(context.Background(), "https://rongyok.com/")
			So(errors.Is(err, ErrNoSeriesID), ShouldBeTrue)
			So(hits.Load(), ShouldEqual, 0)
		})
	})
}
