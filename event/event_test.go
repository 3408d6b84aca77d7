package event

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKind(t *testing.T) {
	Convey("Kinds map to wire names", t, func() {
		So(DownloadProgress{}.Kind().String(), ShouldEqual, "download-progress")
		So(DownloadResult{}.Kind().String(), ShouldEqual, "download-result")
		So(MergeStarted{}.Kind().String(), ShouldEqual, "merge-started")
		So(MergeProgress{}.Kind().String(), ShouldEqual, "merge-progress")
		So(MergeComplete{}.Kind().String(), ShouldEqual, "merge-complete")
		So(MergeError{}.Kind().String(), ShouldEqual, "merge-error")
		So(Kind(99).String(), ShouldEqual, "kind(99)")
	})
}

func TestMarshal(t *testing.T) {
	Convey("Given a download result event", t, func() {
		e := DownloadResult{Episode: 3, Success: false, Status: "failed", Error: "http 404"}

		Convey("Marshal wraps it in an envelope with camelCase fields", func() {
			data, err := Marshal(e)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(data, &decoded), ShouldBeNil)
			So(decoded["event"], ShouldEqual, "download-result")

			payload := decoded["payload"].(map[string]any)
			So(payload["episode"], ShouldEqual, float64(3))
			So(payload["error"], ShouldEqual, "http 404")
			So(payload, ShouldNotContainKey, "filePath")
		})
	})
}

func TestSinks(t *testing.T) {
	Convey("Chan sink", t, func() {
		c := NewChan(context.Background(), 2)
		c.Emit(MergeComplete{OutputPath: "/x.mp4"})
		c.Close()
		c.Emit(MergeComplete{OutputPath: "/dropped.mp4"})

		var got []Event
		for e := range c.C {
			got = append(got, e)
		}
		So(got, ShouldHaveLength, 1)
		So(got[0].(MergeComplete).OutputPath, ShouldEqual, "/x.mp4")
	})

	Convey("Chan sink gives up when its context ends", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		c := NewChan(ctx, 0)
		cancel()
		c.Emit(Log{Level: LevelInfo, Message: "nobody listens"})
		So(len(c.C), ShouldEqual, 0)
	})

	Convey("JSONLines writes one envelope per line", t, func() {
		var buf bytes.Buffer
		sink := NewJSONLines(&buf)
		sink.Emit(MergeStarted{OutputPath: "/out.mp4"})
		sink.Emit(MergeError{Message: "boom"})

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		So(lines, ShouldHaveLength, 2)
		So(lines[1], ShouldContainSubstring, `"event":"merge-error"`)
	})

	Convey("Multi and Recorder", t, func() {
		a, b := &Recorder{}, &Recorder{}
		Multi(a, nil, b).Emit(Log{Level: LevelSuccess, Message: "done"})
		So(a.Events(), ShouldHaveLength, 1)
		So(b.Of(KindLog), ShouldHaveLength, 1)
		So(b.Of(KindMergeError), ShouldBeEmpty)
	})
}
