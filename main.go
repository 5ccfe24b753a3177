package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/da-x/user-netns/internal/config"
	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/kernel"
	"github.com/da-x/user-netns/internal/launch"
	"github.com/da-x/user-netns/internal/nsexec"
	"github.com/da-x/user-netns/internal/privilege"
	"github.com/da-x/user-netns/internal/topology"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app is everything a command needs. main builds the real one; tests build
// one around fakes.
type app struct {
	kernel   kernel.Kernel
	initial  *privilege.Initial
	cfg      *config.Config
	log      *logrus.Logger
	tool     topology.Tool
	launcher nsexec.Launcher
	links    topology.LinkLister
	verbose  bool
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "user-netns",
		Short: "Run commands in network namespaces without being root",
		Long: fmt.Sprintf(`user-netns lets an unprivileged user run a program inside an existing
network namespace, and manage bridges, namespaces and the veth links
between them. It is installed setuid root; the program started by 'run'
always executes with the caller's own identity.

Build Info: Commit %s, Date %s

Example:
  user-netns net-add net55 192.168.55.250/24
  user-netns namespace-add h1
  user-netns net-link-namespace net55 h1 192.168.55.1/24
  user-netns run h1 ping -c1 192.168.55.250
  user-netns net-unlink-namespace net55 h1
  user-netns namespace-del h1
  user-netns net-del net55`, commit, date),
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				a.log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every privilege and namespace transition to stderr")

	rootCmd.AddCommand(newRunCmd(a))
	for _, name := range topology.Names() {
		rootCmd.AddCommand(newTopologyCmd(a, topology.Operations[name]))
	}
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newExistsCmd(a))
	return rootCmd
}

// execute runs the command line and returns the process exit code.
func execute(a *app, args []string) failure.ExitCode {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return 0
	}
	if failure.Is(err, failure.Exit) {
		return failure.ExitCodeOf(err)
	}
	if !failure.Is(err, failure.Error) {
		// cobra's own errors, e.g. an unknown subcommand or flag
		err = failure.UsageError.New("%s", err.Error())
	}
	a.log.Error(diagnostic(rootCmd, cmd, err))
	return failure.ExitCodeOf(err)
}

// diagnostic names the failing subcommand and the failure on one line.
func diagnostic(rootCmd, cmd *cobra.Command, err error) string {
	msg := strings.Replace(failure.Message(err), "\n", " ", -1)
	if cmd != nil && cmd != rootCmd {
		return cmd.Name() + ": " + msg
	}
	return msg
}

func main() {
	k := kernel.Host()
	log := newLogger(os.Stderr)

	// Nothing may happen before the invoking identity is captured.
	initial, err := privilege.Capture(k, log)
	if err != nil {
		log.Error(failure.Message(err))
		os.Exit(int(failure.EXIT_FAILURE))
	}

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Error(failure.Message(err))
		os.Exit(int(failure.EXIT_FAILURE))
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Error(failure.Message(failure.ConfigError.New("%s: %v", config.LogLevel, err)))
		os.Exit(int(failure.EXIT_FAILURE))
	}
	log.SetLevel(level)

	a := &app{
		kernel:  k,
		initial: initial,
		cfg:     cfg,
		log:     log,
		tool: &topology.IPTool{
			Path:     cfg.IPPath,
			ToolPath: cfg.ToolPath,
			Stdout:   os.Stdout,
			Log:      log,
		},
		launcher: launch.Inherit(),
		links:    kernel.ListLinks,
	}
	os.Exit(int(execute(a, os.Args[1:])))
}
