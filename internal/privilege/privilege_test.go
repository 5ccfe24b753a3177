package privilege

import (
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel/kerneltest"
)

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

func TestPrivilegeTransitions(t *testing.T) {
	Convey("Given a setuid-root binary run by uid 1000", t, func() {
		k := kerneltest.NewSetuid(1000, 100)

		Convey("Capture parks the effective uid at the caller", func() {
			initial, err := Capture(k, quietLog())
			So(err, ShouldBeNil)
			So(k.Euid, ShouldEqual, 1000)
			So(k.Suid, ShouldEqual, 0)

			Convey("Escalate makes real and effective uid root", func() {
				esc, err := initial.Escalate()
				So(err, ShouldBeNil)
				So(esc.Active(), ShouldBeTrue)
				So(k.Ruid, ShouldEqual, 0)
				So(k.Euid, ShouldEqual, 0)

				Convey("Drop returns to the caller for good", func() {
					dropped, err := esc.Drop()
					So(err, ShouldBeNil)
					So(dropped.Confirmed(), ShouldBeTrue)
					So(k.Ruid, ShouldEqual, 1000)
					So(k.Euid, ShouldEqual, 1000)
					So(k.Suid, ShouldEqual, 1000)

					Convey("real uid is set before effective uid", func() {
						So(k.Calls, ShouldResemble, []string{
							"seteuid(1000)",
							"seteuid(0)", "setuid(0)",
							"setuid(1000)", "seteuid(1000)",
							"setuid(0)", // the irreversibility probe, refused
						})
					})

					Convey("and no token can go back to escalated", func() {
						_, err := initial.Escalate()
						So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)
						_, err = esc.Drop()
						So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)
						So(esc.Active(), ShouldBeFalse)
						So(k.Ruid, ShouldEqual, 1000)
					})
				})
			})

			Convey("A second Escalate on the same token is refused", func() {
				_, err := initial.Escalate()
				So(err, ShouldBeNil)
				_, err = initial.Escalate()
				So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)
			})
		})

		Convey("A failing setuid during drop is fatal and leaves no usable token", func() {
			initial, _ := Capture(k, quietLog())
			esc, _ := initial.Escalate()
			k.Fail["setuid(1000)"] = true

			dropped, err := esc.Drop()
			So(dropped, ShouldBeNil)
			So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)
			So(failure.Message(err), ShouldContainSubstring, "privilege drop failed")
			So(esc.Active(), ShouldBeFalse)
			So(k.Called("seteuid(1000)"), ShouldBeTrue) // only the capture-time park
			So(len(k.Calls), ShouldEqual, 4)
		})

		Convey("A failing seteuid during drop is fatal", func() {
			initial, _ := Capture(k, quietLog())
			esc, _ := initial.Escalate()
			k.Fail["seteuid(1000)"] = true

			_, err := esc.Drop()
			So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)
		})

		Convey("A binary that is also setgid drops its group first", func() {
			k.Egid = 0
			initial, _ := Capture(k, quietLog())
			esc, _ := initial.Escalate()
			_, err := esc.Drop()
			So(err, ShouldBeNil)
			So(k.Egid, ShouldEqual, 100)
			So(k.Calls[3], ShouldEqual, "setgid(100)")
		})
	})

	Convey("Given a binary that was not installed setuid-root", t, func() {
		k := kerneltest.NewSetuid(1000, 100)
		k.Euid, k.Suid = 1000, 1000

		initial, err := Capture(k, quietLog())
		So(err, ShouldBeNil)

		Convey("Escalate is a hard failure", func() {
			esc, err := initial.Escalate()
			So(esc, ShouldBeNil)
			So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)
			So(failure.Message(err), ShouldContainSubstring, "setuid root")
		})
	})

	Convey("Given root invoking the binary", t, func() {
		k := kerneltest.NewSetuid(0, 0)
		initial, err := Capture(k, quietLog())
		So(err, ShouldBeNil)
		esc, err := initial.Escalate()
		So(err, ShouldBeNil)

		Convey("Drop stays root without probing", func() {
			dropped, err := esc.Drop()
			So(err, ShouldBeNil)
			So(dropped.Confirmed(), ShouldBeTrue)
			So(k.Calls[len(k.Calls)-1], ShouldEqual, "seteuid(0)")
		})
	})

	Convey("Nil tokens are refused", t, func() {
		var initial *Initial
		_, err := initial.Escalate()
		So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)

		var esc *Escalated
		_, err = esc.Drop()
		So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)

		var dropped *Dropped
		So(dropped.Confirmed(), ShouldBeFalse)
	})
}
