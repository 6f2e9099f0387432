package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/appmanager/appman/internal/apps"
	"github.com/appmanager/appman/internal/config"
	"github.com/appmanager/appman/internal/logging"
	"github.com/appmanager/appman/internal/privilege"
	"github.com/appmanager/appman/internal/procs"
	"github.com/appmanager/appman/internal/procsnap"
	"github.com/appmanager/appman/internal/startup"
	"github.com/appmanager/appman/internal/winsys"
	"github.com/appmanager/appman/internal/winver"
)

var (
	version = "0.1.0"
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "appman",
	Short: "Startup entry and application manager",
	Long:  `AppMan - inventory and control of Windows startup entries, installed applications, processes, and services`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logging.Init(cfg.LogFormat, cfg.LogLevel, nil)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List startup entries from every source",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := runEngine(cmd.Context())
		if err != nil {
			return err
		}
		printEntries(report)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export startup entries as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := runEngine(cmd.Context())
		if err != nil {
			return err
		}

		out := os.Stdout
		path := cfg.ExportPath
		if len(args) == 1 {
			path = args[0]
		}
		if path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return startup.WriteCSV(out, report.Entries)
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a startup entry in every source that registers it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleEntry(cmd.Context(), args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a startup entry in every source that registers it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleEntry(cmd.Context(), args[0], false)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a startup entry's registration from every source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		entry, err := findEntry(cmd.Context(), eng, args[0])
		if err != nil {
			return err
		}
		if err := checkScope(entry); err != nil {
			return err
		}
		return reportResults(eng.Delete(entry))
	},
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List installed applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		installed, err := apps.List()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSION\tPUBLISHER\tSCOPE")
		for _, app := range installed {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", app.Name, app.Version, app.Publisher, app.Scope)
		}
		return w.Flush()
	},
}

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List running processes by memory use",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := procs.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PID\tNAME\tUSER\tMEMORY\tCPU%\tSTARTED")
		for _, p := range infos {
			started := ""
			if !p.StartTime.IsZero() {
				started = p.StartTime.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f\t%s\n", p.PID, p.Name, p.User, formatBytes(p.MemoryBytes), p.CPUPercent, started)
		}
		return w.Flush()
	},
}

var killCmd = &cobra.Command{
	Use:   "kill <executable>",
	Short: "Terminate every process with the given executable name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := procs.KillByExe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("terminated %d process(es)\n", count)
		return nil
	},
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services configured to start automatically",
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc winsys.ServiceControl
		services, err := svc.AutostartServices(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tSTATE\tACCOUNT\tORIGIN")
		for _, s := range services {
			state := "stopped"
			if s.Running {
				state = "running"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.DisplayName, state, s.Account, serviceOrigin(s.BinaryPath))
		}
		return w.Flush()
	},
}

var serviceStartCmd = &cobra.Command{
	Use:   "service-start <name>",
	Short: "Start a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc winsys.ServiceControl
		return svc.Start(args[0])
	},
}

var serviceStopCmd = &cobra.Command{
	Use:   "service-stop <name>",
	Short: "Stop a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc winsys.ServiceControl
		return svc.Stop(args[0])
	},
}

var startCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Launch a startup entry's program now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		entry, err := findEntry(cmd.Context(), eng, args[0])
		if err != nil {
			return err
		}

		// A service-backed entry starts through the service manager; anything
		// else launches the registered command directly.
		if svcName, ok := serviceSource(entry); ok {
			var svc winsys.ServiceControl
			return svc.Start(svcName)
		}

		exe, rest := startup.SplitCommand(entry.Command())
		if exe == "" {
			return fmt.Errorf("%q has no launchable command", entry.Name)
		}
		launch := exec.Command(exe, startup.ShellSplit(rest)...)
		if err := launch.Start(); err != nil {
			return fmt.Errorf("launch %s: %w", exe, err)
		}
		fmt.Printf("started %s (pid %d)\n", exe, launch.Process.Pid)
		return launch.Process.Release()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a startup entry's running program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := newEngine()
		entry, err := findEntry(cmd.Context(), eng, args[0])
		if err != nil {
			return err
		}

		if svcName, ok := serviceSource(entry); ok {
			var svc winsys.ServiceControl
			return svc.Stop(svcName)
		}

		exeName := entry.Identity.ExeName()
		if exeName == "" {
			return fmt.Errorf("%q has no resolvable executable", entry.Name)
		}
		count, err := procs.KillByExe(cmd.Context(), exeName)
		if err != nil {
			return err
		}
		fmt.Printf("terminated %d process(es)\n", count)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("AppMan v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is appman.yaml in the config directory)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(processesCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(serviceStartCmd)
	rootCmd.AddCommand(serviceStopCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEngine() *startup.Engine {
	return &startup.Engine{
		Registry:         winsys.Registry{},
		Shortcuts:        winsys.ShellLinkResolver{},
		Tasks:            winsys.TaskService{},
		Services:         winsys.ServiceControl{},
		Processes:        procsnap.Provider{},
		PrefetchDir:      cfg.PrefetchDir,
		UserStartupDir:   winsys.UserStartupDir(),
		CommonStartupDir: winsys.CommonStartupDir(),
		IncludeServices:  cfg.IncludeServices,
		ProductName:      winver.ProductName,
	}
}

func runEngine(ctx context.Context) (*startup.Report, error) {
	return newEngine().Run(ctx)
}

func toggleEntry(ctx context.Context, name string, enabled bool) error {
	eng := newEngine()
	entry, err := findEntry(ctx, eng, name)
	if err != nil {
		return err
	}
	if err := checkScope(entry); err != nil {
		return err
	}
	return reportResults(eng.SetEnabled(entry, enabled))
}

// checkScope fails fast when a machine-scope entry is targeted without
// elevation, before any per-source writes are attempted.
func checkScope(entry *startup.Entry) error {
	if entry.Scope.Has(startup.ScopeMachine) &&
		privilege.RequiresElevation(privilege.OpMachineToggle) && !privilege.IsElevated() {
		return fmt.Errorf("%q has machine-scope registrations; run elevated", entry.Name)
	}
	return nil
}

// findEntry resolves a display name to a single merged entry, rejecting
// ambiguous names so an action never hits the wrong registration.
func findEntry(ctx context.Context, eng *startup.Engine, name string) (*startup.Entry, error) {
	report, err := eng.Run(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*startup.Entry
	for _, e := range report.Entries {
		if strings.EqualFold(e.Name, name) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no startup entry named %q", name)
	case 1:
		return matches[0], nil
	default:
		commands := make([]string, len(matches))
		for i, m := range matches {
			commands[i] = m.Command()
		}
		return nil, fmt.Errorf("name %q is ambiguous, matching commands: %s", name, strings.Join(commands, "; "))
	}
}

// serviceSource returns the service name when one of the entry's sources
// is a service registration.
func serviceSource(entry *startup.Entry) (string, bool) {
	for _, src := range entry.Sources {
		if src.Kind == startup.SourceService {
			return src.Location, true
		}
	}
	return "", false
}

// serviceOrigin distinguishes OS-shipped services from vendor-installed
// ones by the image location. A heuristic, but a useful triage column.
func serviceOrigin(binaryPath string) string {
	path := strings.ToLower(strings.Trim(strings.ReplaceAll(binaryPath, "/", `\`), `"`))
	root := strings.ToLower(os.Getenv("SystemRoot"))
	if root == "" {
		root = `c:\windows`
	}
	for _, prefix := range []string{root + `\system32\`, root + `\syswow64\`} {
		if strings.HasPrefix(path, prefix) {
			return "windows"
		}
	}
	return "third-party"
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func reportResults(results []startup.SourceResult) error {
	failed := 0
	for _, r := range results {
		if r.OK() {
			fmt.Printf("ok\t%s\t%s\n", r.Kind, r.Location)
		} else {
			failed++
			fmt.Printf("error\t%s\t%s\t%v\n", r.Kind, r.Location, r.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d source(s) failed", failed, len(results))
	}
	return nil
}

func printEntries(report *startup.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCES\tSCOPE\tPOLICY\tRUNTIME\tLAST RAN\tCONFIDENCE")
	for _, row := range startup.ExportRows(report.Entries) {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()

	if len(report.Orphans) > 0 {
		fmt.Println()
		fmt.Println("Orphaned approval records:")
		for _, o := range report.Orphans {
			fmt.Printf("  %s (%s)\n", o.Key, o.Record.Value)
		}
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}
	if !report.PrefetchAccessible && !privilege.IsElevated() {
		fmt.Fprintln(os.Stderr, "note: prefetch history unavailable (requires elevation)")
	}
}
