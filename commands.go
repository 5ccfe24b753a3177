package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/da-x/user-netns/internal/failure"
	"github.com/da-x/user-netns/internal/launch"
	"github.com/da-x/user-netns/internal/nsexec"
	"github.com/da-x/user-netns/internal/topology"
	"github.com/da-x/user-netns/internal/validate"
)

func minimumArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return failure.UsageError.New("expected %s", usage)
		}
		return nil
	}
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return failure.UsageError.New("expected %s", usage)
		}
		return nil
	}
}

func newRunCmd(a *app) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <namespace> <program> [args...]",
		Short: "Run a program inside a network namespace as yourself",
		Long: `Enter the network namespace /run/netns/<namespace>, drop back to the
invoking user, and run the program. The program's exit status becomes
the exit status of user-netns. Flags after <namespace> belong to the
program.`,
		Args: minimumArgs(2, "<namespace> <program> [args...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := validate.Identifier(args[0])
			if err != nil {
				return err
			}
			r := &nsexec.Runner{
				Kernel:   a.kernel,
				NetnsDir: a.cfg.NetnsDir,
				Launcher: a.launcher,
				Log:      a.log,
			}
			res, err := r.Run(a.initial, ns, launch.Invocation{Program: args[1], Args: args[2:]})
			if err != nil {
				return err
			}
			if res.Outcome == launch.Signaled {
				a.log.Warnf("run: %s killed by signal %v", args[1], res.Signal)
			}
			if code := res.ExitStatus(); code != 0 {
				return failure.Exit.NewWith(fmt.Sprintf("%s exited with status %d", args[1], code), failure.SetExitCode(code))
			}
			return nil
		},
	}
	// Stop flag parsing at <namespace> so the program keeps its own flags.
	runCmd.Flags().SetInterspersed(false)
	return runCmd
}

func newTopologyCmd(a *app, op *topology.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   op.Name + " " + op.Usage(),
		Short: op.Short,
		Args:  exactArgs(len(op.Params), op.Usage()),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := topology.Prepare(op.Name, args)
			if err != nil {
				return err
			}
			if _, err := a.initial.Escalate(); err != nil {
				return err
			}
			m := &topology.Manager{Tool: a.tool, Log: a.log}
			return m.Apply(plan)
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "namespace-list",
		Short: "List network namespaces with their interfaces and IPv4 addresses",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			esc, err := a.initial.Escalate()
			if err != nil {
				return err
			}
			infos, err := topology.Inspect(a.cfg.NetnsDir, a.links, a.log)
			if err != nil {
				return failure.NamespaceOpenError.New("%s: %v", a.cfg.NetnsDir, err)
			}
			if _, err := esc.Drop(); err != nil {
				return err
			}
			topology.Render(cmd.OutOrStdout(), infos)
			return nil
		},
	}
}

func newExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "namespace-exists <namespace>",
		Short: "Check whether a network namespace exists (exit status 0 or 1)",
		Args:  exactArgs(1, "<namespace>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := validate.Identifier(args[0])
			if err != nil {
				return err
			}
			ok, err := topology.Exists(a.cfg.NetnsDir, ns)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Network namespace '%s' does not exist.\n", ns)
				return failure.Exit.NewWith("namespace does not exist", failure.SetExitCode(failure.EXIT_FAILURE))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Network namespace '%s' exists.\n", ns)
			return nil
		},
	}
}
