package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/da-x/user-netns/internal/failure"
)

func TestLoad(t *testing.T) {
	Convey("Given a config directory owned by the test user", t, func() {
		dir, err := ioutil.TempDir("", "config-test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		trustedUID = uint32(os.Getuid())
		defer func() { trustedUID = 0 }()
		path := filepath.Join(dir, "config.yaml")

		Convey("a missing file gives the defaults", func() {
			cfg, err := Load(path)
			So(err, ShouldBeNil)
			So(cfg.NetnsDir, ShouldEqual, "/run/netns")
			So(cfg.LogLevel, ShouldEqual, "warn")
			So(cfg.ToolPath, ShouldEqual, "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin")
			So(ipCandidates, ShouldContain, cfg.IPPath)
		})

		Convey("a trusted file overrides the defaults", func() {
			So(ioutil.WriteFile(path, []byte("netns-dir: /var/run/netns\nip-path: /opt/iproute2/ip\nlog-level: debug\n"), 0644), ShouldBeNil)
			cfg, err := Load(path)
			So(err, ShouldBeNil)
			So(cfg.NetnsDir, ShouldEqual, "/var/run/netns")
			So(cfg.IPPath, ShouldEqual, "/opt/iproute2/ip")
			So(cfg.LogLevel, ShouldEqual, "debug")
		})

		Convey("environment variables are ignored", func() {
			os.Setenv("NETNS-DIR", "/tmp")
			os.Setenv("NETNS_DIR", "/tmp")
			defer os.Unsetenv("NETNS-DIR")
			defer os.Unsetenv("NETNS_DIR")
			cfg, err := Load(path)
			So(err, ShouldBeNil)
			So(cfg.NetnsDir, ShouldEqual, "/run/netns")
		})

		Convey("a group- or world-writable file is refused", func() {
			So(ioutil.WriteFile(path, []byte("log-level: debug\n"), 0644), ShouldBeNil)
			So(os.Chmod(path, 0666), ShouldBeNil)
			_, err := Load(path)
			So(failure.Is(err, failure.ConfigError), ShouldBeTrue)
			So(failure.Message(err), ShouldContainSubstring, "writable")
		})

		Convey("a file owned by someone else is refused", func() {
			So(ioutil.WriteFile(path, []byte("log-level: debug\n"), 0644), ShouldBeNil)
			trustedUID = uint32(os.Getuid()) + 1
			_, err := Load(path)
			So(failure.Is(err, failure.ConfigError), ShouldBeTrue)
			So(failure.Message(err), ShouldContainSubstring, "owned by root")
		})

		Convey("relative paths are refused", func() {
			So(ioutil.WriteFile(path, []byte("ip-path: ip\n"), 0644), ShouldBeNil)
			_, err := Load(path)
			So(failure.Is(err, failure.ConfigError), ShouldBeTrue)
		})

		Convey("malformed YAML is a config error", func() {
			So(ioutil.WriteFile(path, []byte("netns-dir: [unclosed\n"), 0644), ShouldBeNil)
			_, err := Load(path)
			So(failure.Is(err, failure.ConfigError), ShouldBeTrue)
		})
	})
}
