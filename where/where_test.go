package where

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anisan-cli/seriesdl/constant"
	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func isDir(path string) bool {
	return lo.Must(filesystem.API().IsDir(path))
}

func TestPaths(t *testing.T) {
	Convey("Given the in-memory filesystem", t, func() {
		Convey("Directories are created when resolved", func() {
			for _, dir := range []func() string{Config, Cache, Logs, Series, Temp, Downloads} {
				So(isDir(dir()), ShouldBeTrue)
			}
		})

		Convey("Application directories are named after the program", func() {
			So(filepath.Base(Config()), ShouldEqual, constant.App)
			So(filepath.Base(Cache()), ShouldEqual, constant.App)
			So(filepath.Base(Temp()), ShouldEqual, constant.App)
		})

		Convey("Nested locations sit under their parents", func() {
			So(filepath.Dir(Logs()), ShouldEqual, Config())
			So(filepath.Dir(History()), ShouldEqual, Config())
			So(filepath.Dir(Series()), ShouldEqual, Cache())
			So(filepath.Dir(Queries()), ShouldEqual, Cache())
		})

		Convey("Files are not created as directories", func() {
			So(strings.HasSuffix(History(), ".json"), ShouldBeTrue)
			exists, _ := filesystem.API().Exists(History())
			So(exists, ShouldBeFalse)
		})

		Convey("The override variable replaces the config directory", func() {
			t.Setenv(EnvConfigPath, "/custom/seriesdl")
			So(Config(), ShouldEqual, "/custom/seriesdl")
			So(isDir("/custom/seriesdl"), ShouldBeTrue)
			So(History(), ShouldEqual, "/custom/seriesdl/history.json")
		})
	})

	Convey("userDir falls back when the lookup fails", t, func() {
		failing := func() (string, error) { return "", errors.New("no home") }
		working := func() (string, error) { return "/home/me", nil }

		So(userDir(failing, "fallback"), ShouldEqual, "fallback")
		So(userDir(working, "fallback"), ShouldEqual, "/home/me")
	})
}
