package failure

import (
	stderrors "errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExitCodes(t *testing.T) {
	Convey("Exit codes travel with the error", t, func() {
		So(ExitCodeOf(nil), ShouldEqual, ExitCode(0))
		So(ExitCodeOf(stderrors.New("plain")), ShouldEqual, EXIT_FAILURE)
		So(ExitCodeOf(ValidationError.New("bad")), ShouldEqual, EXIT_FAILURE)
		So(ExitCodeOf(Exit.NewWith("child", SetExitCode(42))), ShouldEqual, ExitCode(42))
		So(ExitCodeOf(LaunchError.NewWith("nope", SetExitCode(EXIT_NOT_FOUND))), ShouldEqual, EXIT_NOT_FOUND)
	})

	Convey("Classes nest under Error, except Exit", t, func() {
		So(Is(ValidationError.New("x"), Error), ShouldBeTrue)
		So(Is(PrivilegeError.New("x"), Error), ShouldBeTrue)
		So(Is(PrivilegeError.New("x"), ValidationError), ShouldBeFalse)
		So(Is(Exit.New("x"), Error), ShouldBeFalse)
		So(Is(stderrors.New("x"), Error), ShouldBeFalse)
		So(Is(nil, Error), ShouldBeFalse)
	})

	Convey("Message drops class names", t, func() {
		So(Message(NamespaceOpenError.New("could not open namespace %s", "h1")), ShouldEqual, "could not open namespace h1")
		So(Message(ValidationError.New(`"x!" is not valid`)), ShouldEqual, `"x!" is not valid`)
		So(Message(Exit.NewWith("child exited", SetExitCode(3))), ShouldEqual, "child exited")
		So(Message(stderrors.New("plain")), ShouldEqual, "plain")
		So(Message(nil), ShouldEqual, "")

		Convey("even when one message is built from another", func() {
			inner := NamespaceOpenError.New("open /run/netns/x: no such file or directory")
			outer := NamespaceOpenError.New("could not open namespace x: %s", Message(inner))
			So(Message(outer), ShouldEqual, "could not open namespace x: open /run/netns/x: no such file or directory")
		})
	})
}
