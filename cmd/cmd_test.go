package cmd

import (
	"testing"
	"time"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/history"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/slices"
)

func TestParseValue(t *testing.T) {
	Convey("Given the registered config keys", t, func() {
		Convey("Values should take the type of the default", func() {
			v, err := parseValue(key.DownloadsConcurrent, []string{"4"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 4)

			v, err = parseValue(key.MergeAuto, []string{"false"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)

			v, err = parseValue(key.DownloadsFileNaming, []string{"episode_1"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "episode_1")

			v, err = parseValue(key.DownloadsSchedule, []string{"* 01:00-06:00 0", "mon-fri 09:00-17:00 500"})
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []string{"* 01:00-06:00 0", "mon-fri 09:00-17:00 500"})
		})

		Convey("Malformed values should be rejected", func() {
			_, err := parseValue(key.DownloadsConcurrent, []string{"many"})
			So(err, ShouldNotBeNil)

			_, err = parseValue(key.MergeAuto, []string{"perhaps"})
			So(err, ShouldNotBeNil)

			_, err = parseValue(key.MergeAuto, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Unknown keys should suggest the closest one", func() {
			_, err := parseValue("downloads.concurent", []string{"2"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, key.DownloadsConcurrent)
		})
	})
}

func TestClosest(t *testing.T) {
	Convey("closest should pick the smallest edit distance", t, func() {
		So(closest("merge-stared", []string{"merge-started", "merge-error", "log"}), ShouldEqual, "merge-started")
		So(errUnknownEvent("download-progres").Error(), ShouldContainSubstring, "download-progress")
	})
}

func TestPickSelector(t *testing.T) {
	Convey("An explicit selector should be parsed", t, func() {
		selector, err := pickSelector("2-3", false)
		So(err, ShouldBeNil)

		episodes, err := selector([]int{1, 2, 3, 4})
		So(err, ShouldBeNil)
		So(episodes, ShouldResemble, []int{2, 3})
	})

	Convey("JSON mode without a selector should take every episode", t, func() {
		selector, err := pickSelector("", true)
		So(err, ShouldBeNil)

		episodes, err := selector([]int{1, 2})
		So(err, ShouldBeNil)
		So(episodes, ShouldResemble, []int{1, 2})
	})

	Convey("A malformed selector should fail", t, func() {
		_, err := pickSelector("three", false)
		So(err, ShouldNotBeNil)
	})
}

func TestInstallHint(t *testing.T) {
	Convey("Known platforms should get an install command", t, func() {
		So(installHint(constant.Darwin), ShouldEqual, "brew install ffmpeg")
		So(installHint(constant.Linux), ShouldContainSubstring, "ffmpeg")
		So(installHint("plan9"), ShouldBeEmpty)
	})

	Convey("The missing tool box should carry the reason", t, func() {
		So(missingToolBox("ffmpeg not found"), ShouldContainSubstring, "ffmpeg not found")
	})
}

func TestFormatRecord(t *testing.T) {
	Convey("Given a partial batch", t, func() {
		started := time.Now().Add(-time.Hour)
		record := history.NewRecord(7, "Night Market", []int{1, 2, 3}, started)
		record.Completed = []int{1, 3}
		record.Failed = []int{2}
		record.TotalSize = 2048
		record.OutputDir = "/downloads/night"
		record.MergedPath = "/downloads/night/Night Market.mp4"
		record.Finish(started.Add(90 * time.Second))

		out := formatRecord(record)

		So(out, ShouldContainSubstring, record.ShortID())
		So(out, ShouldContainSubstring, "Night Market")
		So(out, ShouldContainSubstring, "2/3 completed")
		So(out, ShouldContainSubstring, "[2]")
		So(out, ShouldContainSubstring, "1m30s")
		So(out, ShouldContainSubstring, "/downloads/night/Night Market.mp4")
	})
}

func TestEnvNames(t *testing.T) {
	Convey("Every exposed key should have a prefixed variable", t, func() {
		names := envNames()
		So(slices.IsSorted(names), ShouldBeTrue)
		So(names, ShouldContain, where.EnvConfigPath)
		So(names, ShouldContain, "SERIESDL_MERGE_AUTO")
		So(names, ShouldContain, "SERIESDL_DOWNLOADS_SPEED_LIMIT")
	})
}

func TestClearTarget(t *testing.T) {
	Convey("Given a directory with files", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()

		fs := filesystem.API()
		So(fs.MkdirAll("/scratch/nested", 0755), ShouldBeNil)
		So(fs.WriteFile("/scratch/a", make([]byte, 100), 0644), ShouldBeNil)
		So(fs.WriteFile("/scratch/nested/b", make([]byte, 24), 0644), ShouldBeNil)

		target := clearTarget{"scratch", "scratch", mo.None[string](), func() string { return "/scratch" }}

		Convey("Clearing should remove it and report its size", func() {
			size, err := target.clear()
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 124)
			So(lo.Must(fs.Exists("/scratch")), ShouldBeFalse)
		})

		Convey("Clearing twice should free nothing the second time", func() {
			_, _ = target.clear()
			size, err := target.clear()
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 0)
		})
	})
}
