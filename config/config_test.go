package config

import (
	"testing"
	"time"

	"github.com/anisan-cli/seriesdl/filesystem"
	"github.com/anisan-cli/seriesdl/key"
	"github.com/anisan-cli/seriesdl/source"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.IsSet(name), ShouldBeTrue)
			}
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("downloads.speed_limit")
			So(result, ShouldEqual, "downloads_speed_limit")
		})

		Convey("Env names carry the application prefix", func() {
			f := Default[key.DownloadsConcurrent]
			So(f.Env(), ShouldEqual, "SERIESDL_DOWNLOADS_CONCURRENT")
		})

		Convey("Fields know their section and render their key", func() {
			f := Default[key.MergeAuto]
			So(f.Section(), ShouldEqual, "merge")
			So(f.Pretty(), ShouldContainSubstring, key.MergeAuto)
			So(EnvExposed, ShouldContain, key.MergeAuto)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		_ = Setup()

		Convey("Load should return the registered defaults", func() {
			s := Load()
			So(s.Concurrent, ShouldEqual, 3)
			So(s.SpeedLimitKB, ShouldEqual, 0)
			So(s.FileNaming, ShouldEqual, source.NamingPadded)
			So(s.AutoMerge, ShouldBeTrue)
			So(s.DeleteAfterMerge, ShouldBeFalse)
			So(s.ProgressInterval, ShouldEqual, 100*time.Millisecond)
			So(s.OutputDir, ShouldNotStartWith, "~")
			So(s.ResolverCacheTTL, ShouldEqual, 24*time.Hour)
			So(s.TLSFingerprint, ShouldBeTrue)
		})

		Convey("Out of range values should be clamped", func() {
			viper.Set(key.DownloadsConcurrent, 42)
			viper.Set(key.DownloadsSpeedLimit, -5)
			viper.Set(key.DownloadsFileNaming, "weird")
			defer func() {
				viper.Set(key.DownloadsConcurrent, 3)
				viper.Set(key.DownloadsSpeedLimit, 0)
				viper.Set(key.DownloadsFileNaming, "ep_001")
			}()

			s := Load()
			So(s.Concurrent, ShouldEqual, MaxConcurrent)
			So(s.SpeedLimitKB, ShouldEqual, 0)
			So(s.FileNaming, ShouldEqual, source.NamingPadded)
		})
	})

	Convey("ClampConcurrent", t, func() {
		So(ClampConcurrent(0), ShouldEqual, 1)
		So(ClampConcurrent(3), ShouldEqual, 3)
		So(ClampConcurrent(9), ShouldEqual, 5)
	})
}
