package nsenter

import (
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel/kerneltest"
	"github.com/da-x/user-netns/internal/privilege"
	"github.com/da-x/user-netns/internal/validate"
)

func TestEnter(t *testing.T) {
	log := logrus.New()
	log.Out = ioutil.Discard

	Convey("Given an escalated process and one known namespace", t, func() {
		k := kerneltest.NewSetuid(1000, 100)
		k.Namespaces["/run/netns/h1"] = "h1"
		initial, err := privilege.Capture(k, log)
		So(err, ShouldBeNil)
		esc, err := initial.Escalate()
		So(err, ShouldBeNil)

		Convey("entering it switches the network namespace and closes the handle", func() {
			ns, _ := validate.Identifier("h1")
			err := Enter(esc, k, DefaultDir, ns, log)
			So(err, ShouldBeNil)
			So(k.Current, ShouldEqual, "h1")
			So(k.AllHandlesClosed(), ShouldBeTrue)
		})

		Convey("an unknown namespace is an open error", func() {
			ns, _ := validate.Identifier("doesnotexist")
			err := Enter(esc, k, DefaultDir, ns, log)
			So(failure.Is(err, failure.NamespaceOpenError), ShouldBeTrue)
			So(failure.Message(err), ShouldContainSubstring, "doesnotexist")
			So(k.Called("setns"), ShouldBeFalse)
			So(k.Current, ShouldEqual, "host")
		})

		Convey("a refused switch is a switch error and still closes the handle", func() {
			k.Fail["setns"] = true
			ns, _ := validate.Identifier("h1")
			err := Enter(esc, k, DefaultDir, ns, log)
			So(failure.Is(err, failure.NamespaceSwitchError), ShouldBeTrue)
			So(k.Current, ShouldEqual, "host")
			So(k.AllHandlesClosed(), ShouldBeTrue)
		})

		Convey("an unvalidated name opens nothing", func() {
			err := Enter(esc, k, DefaultDir, validate.Token{}, log)
			So(failure.Is(err, failure.ValidationError), ShouldBeTrue)
			So(k.Called("open"), ShouldBeFalse)
		})

		Convey("a spent escalation token opens nothing", func() {
			_, err := esc.Drop()
			So(err, ShouldBeNil)
			ns, _ := validate.Identifier("h1")
			err = Enter(esc, k, DefaultDir, ns, log)
			So(failure.Is(err, failure.PrivilegeError), ShouldBeTrue)
			So(k.Called("open"), ShouldBeFalse)
		})
	})
}
