package startup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testEngine(t *testing.T) (*Engine, *fakeRegistry, *fakeTasks, *fakeServices) {
	t.Helper()
	reg := newFakeRegistry()
	tasks := &fakeTasks{}
	services := &fakeServices{}
	eng := &Engine{
		Registry:         reg,
		Shortcuts:        &fakeShortcuts{},
		Tasks:            tasks,
		Services:         services,
		Processes:        &fakeProcesses{},
		UserStartupDir:   t.TempDir(),
		CommonStartupDir: t.TempDir(),
		IncludeServices:  true,
	}
	return eng, reg, tasks, services
}

func findEntry(t *testing.T, entries []*Entry, name string) *Entry {
	t.Helper()
	for _, e := range entries {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entry %q not found among %d entries", name, len(entries))
	return nil
}

func TestRunMergesRegistryAndTask(t *testing.T) {
	eng, reg, tasks, _ := testEngine(t)
	reg.set(HiveMachine, `Software\Microsoft\Windows\CurrentVersion\Run`,
		RegValue{Name: "Sync Tool", Kind: RegString, Str: `C:\Apps\sync.exe`})
	tasks.tasks = []TaskDescriptor{
		{Name: "SyncAtLogon", Path: `\Vendor\Sync`, Enabled: true, ExecPath: `c:/apps/SYNC.EXE`},
	}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}

	entry := findEntry(t, report.Entries, "Sync Tool")
	if len(entry.Sources) != 2 {
		t.Fatalf("sources = %d, want registry + task merged", len(entry.Sources))
	}
}

func TestRunSkipsServiceLauncherTasks(t *testing.T) {
	eng, _, tasks, _ := testEngine(t)
	tasks.tasks = []TaskDescriptor{
		{Name: "RealTask", Path: `\A`, Enabled: true, ExecPath: `C:\a.exe`},
		{Name: "SvcKick", Path: `\B`, Enabled: true, ExecPath: `C:\Windows\System32\svchost.exe`, ServiceLauncher: true},
	}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range report.Entries {
		if e.Name == "SvcKick" {
			t.Fatal("service-launcher task leaked into the entry list")
		}
	}
	findEntry(t, report.Entries, "RealTask")
}

func TestRunDegradesOnProbeFailure(t *testing.T) {
	eng, reg, tasks, _ := testEngine(t)
	reg.readErr = errors.New("access denied")
	tasks.tasks = []TaskDescriptor{
		{Name: "Survivor", Path: `\S`, Enabled: true, ExecPath: `C:\s.exe`},
	}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("registry failure produced no warning")
	}
	findEntry(t, report.Entries, "Survivor")
}

func TestRunStartupFolderShortcut(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	link := filepath.Join(eng.UserStartupDir, "Notes.lnk")
	if err := os.WriteFile(link, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	eng.Shortcuts = &fakeShortcuts{targets: map[string]string{link: `C:\Apps\notes.exe`}}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	entry := findEntry(t, report.Entries, "Notes")
	if entry.Identity.Exe != `c:\apps\notes.exe` {
		t.Fatalf("identity = %q, want the resolved target", entry.Identity.Exe)
	}
	if entry.Sources[0].Location != link {
		t.Fatalf("location = %q, want the link path", entry.Sources[0].Location)
	}
}

func TestRunUnresolvableShortcutStaysVisible(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	link := filepath.Join(eng.UserStartupDir, "Broken.lnk")
	if err := os.WriteFile(link, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	eng.Shortcuts = &fakeShortcuts{err: ErrMalformed}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	entry := findEntry(t, report.Entries, "Broken")
	if entry.Sources[0].RawTarget != link {
		t.Fatalf("target = %q, want fallback to the link path", entry.Sources[0].RawTarget)
	}
}

func TestRunCorrelatesRuntimeAndPolicy(t *testing.T) {
	eng, reg, _, _ := testEngine(t)
	start := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)

	reg.set(HiveUser, `Software\Microsoft\Windows\CurrentVersion\Run`,
		RegValue{Name: "Runner", Kind: RegString, Str: `C:\Apps\runner.exe`},
		RegValue{Name: "Sleeper", Kind: RegString, Str: `C:\Apps\sleeper.exe`})
	reg.set(HiveUser, startupApprovedBase+`\Run`,
		RegValue{Name: "Sleeper", Kind: RegBinary, Bin: approvedDisabled(start.Add(-time.Hour))})
	eng.Processes = &fakeProcesses{procs: []Process{
		{PID: 7, ImagePath: `C:\Apps\runner.exe`, StartTime: start},
	}}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	runner := findEntry(t, report.Entries, "Runner")
	if runner.Runtime != RunStateRunning || runner.LastRan.Tier != TierProcessObserved {
		t.Fatalf("runner: runtime=%v tier=%v", runner.Runtime, runner.LastRan.Tier)
	}
	if runner.Policy != PolicyStateEnabled {
		t.Fatalf("runner policy = %v", runner.Policy)
	}

	sleeper := findEntry(t, report.Entries, "Sleeper")
	if sleeper.Runtime != RunStateStopped {
		t.Fatalf("sleeper runtime = %v", sleeper.Runtime)
	}
	if sleeper.Policy != PolicyStateDisabled {
		t.Fatalf("sleeper policy = %v", sleeper.Policy)
	}
	if sleeper.LastRan.Tier != TierDisabledTimestamp {
		t.Fatalf("sleeper tier = %v, want disabled-timestamp", sleeper.LastRan.Tier)
	}
}

func TestRunReportsOrphans(t *testing.T) {
	eng, reg, _, _ := testEngine(t)
	reg.set(HiveUser, startupApprovedBase+`\Run`,
		RegValue{Name: "Ghost", Kind: RegBinary, Bin: approvedDisabled(time.Now())})

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Orphans) != 1 {
		t.Fatalf("orphans = %d, want 1", len(report.Orphans))
	}
}

func TestRunServicesExcludedByDefault(t *testing.T) {
	eng, _, _, services := testEngine(t)
	eng.IncludeServices = false
	services.services = []ServiceConfig{
		{Name: "svc1", DisplayName: "Service One", BinaryPath: `C:\svc1.exe`},
	}

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range report.Entries {
		if e.Name == "Service One" {
			t.Fatal("service entry present with IncludeServices off")
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
