package startup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetEnabledWritesApprovalBlob(t *testing.T) {
	eng, reg, _, _ := testEngine(t)
	entry := &Entry{Sources: []RawEntry{
		{
			Kind:     SourceRegistryRun,
			Name:     "Tool",
			Scope:    ScopeUser,
			Location: `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`,
		},
	}}

	results := eng.SetEnabled(entry, false)
	if len(results) != 1 || !results[0].OK() {
		t.Fatalf("results = %+v", results)
	}

	values, err := reg.ReadValues(HiveUser, startupApprovedBase+`\Run`)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := parseApprovedBlob(values[0].Bin)
	if !ok || rec.Value != PolicyDisabled {
		t.Fatalf("written blob parsed as %+v ok=%v", rec, ok)
	}
	if rec.DisabledAt.IsZero() {
		t.Fatal("disable blob carries no timestamp")
	}

	results = eng.SetEnabled(entry, true)
	if !results[0].OK() {
		t.Fatalf("enable failed: %v", results[0].Err)
	}
	values, _ = reg.ReadValues(HiveUser, startupApprovedBase+`\Run`)
	rec, _ = parseApprovedBlob(values[0].Bin)
	if rec.Value != PolicyApproved {
		t.Fatalf("re-enable blob parsed as %v", rec.Value)
	}
}

func TestSetEnabledWow6432GoesToRun32(t *testing.T) {
	eng, reg, _, _ := testEngine(t)
	entry := &Entry{Sources: []RawEntry{
		{
			Kind:     SourceRegistryRun,
			Name:     "Legacy",
			Scope:    ScopeMachine,
			Location: `HKLM\Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Run`,
		},
	}}

	if results := eng.SetEnabled(entry, false); !results[0].OK() {
		t.Fatalf("toggle failed: %v", results[0].Err)
	}
	if _, err := reg.ReadValues(HiveMachine, startupApprovedBase+`\Run32`); err != nil {
		t.Fatalf("Run32 store not written: %v", err)
	}
}

func TestSetEnabledRunOnceRejected(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	entry := &Entry{Sources: []RawEntry{
		{
			Kind:     SourceRegistryRunOnce,
			Name:     "OneShot",
			Scope:    ScopeUser,
			Location: `HKCU\Software\Microsoft\Windows\CurrentVersion\RunOnce`,
		},
	}}

	results := eng.SetEnabled(entry, false)
	if results[0].OK() {
		t.Fatal("runonce toggle must be rejected")
	}
	if !errors.Is(results[0].Err, errRunOnceToggle) {
		t.Fatalf("err = %v", results[0].Err)
	}
}

func TestSetEnabledPerSourceResults(t *testing.T) {
	eng, _, tasks, services := testEngine(t)
	entry := &Entry{Sources: []RawEntry{
		{Kind: SourceTaskScheduler, Name: "T", Location: `\Vendor\T`},
		{Kind: SourceService, Name: "S", Location: "svcname"},
		{Kind: SourceRegistryRunOnce, Name: "O", Scope: ScopeUser, Location: `HKCU\Software\Microsoft\Windows\CurrentVersion\RunOnce`},
	}}

	results := eng.SetEnabled(entry, false)
	if len(results) != 3 {
		t.Fatalf("results = %d, want one per source", len(results))
	}
	if !results[0].OK() || !results[1].OK() {
		t.Fatalf("task/service toggles failed: %+v", results[:2])
	}
	if results[2].OK() {
		t.Fatal("runonce failure must not be masked by the other successes")
	}

	if enabled, ok := tasks.toggled[`\Vendor\T`]; !ok || enabled {
		t.Fatalf("task toggle = %v, %v", enabled, ok)
	}
	if auto, ok := services.startSet["svcname"]; !ok || auto {
		t.Fatalf("service start type = %v, %v", auto, ok)
	}
}

func TestDeleteRegistryValueAndApprovalResidue(t *testing.T) {
	eng, reg, _, _ := testEngine(t)
	runKey := `Software\Microsoft\Windows\CurrentVersion\Run`
	reg.set(HiveUser, runKey, RegValue{Name: "Tool", Kind: RegString, Str: `C:\t.exe`})
	reg.set(HiveUser, startupApprovedBase+`\Run`,
		RegValue{Name: "Tool", Kind: RegBinary, Bin: approvedDisabled(time.Now())})

	entry := &Entry{Sources: []RawEntry{
		{Kind: SourceRegistryRun, Name: "Tool", Scope: ScopeUser, Location: `HKCU\` + runKey},
	}}

	results := eng.Delete(entry)
	if !results[0].OK() {
		t.Fatalf("delete failed: %v", results[0].Err)
	}

	if values, err := reg.ReadValues(HiveUser, runKey); err == nil && len(values) != 0 {
		t.Fatal("run value still present")
	}
	values, _ := reg.ReadValues(HiveUser, startupApprovedBase+`\Run`)
	if len(values) != 0 {
		t.Fatal("approval residue not cleaned up")
	}
}

func TestDeleteStartupFolderItem(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	link := filepath.Join(eng.UserStartupDir, "Gone.lnk")
	if err := os.WriteFile(link, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}

	entry := &Entry{Sources: []RawEntry{
		{Kind: SourceStartupFolder, Name: "Gone", Scope: ScopeUser, Location: link},
	}}

	results := eng.Delete(entry)
	if !results[0].OK() {
		t.Fatalf("delete failed: %v", results[0].Err)
	}
	if _, err := os.Stat(link); !os.IsNotExist(err) {
		t.Fatal("link file still exists")
	}
}

func TestDeleteTaskAndService(t *testing.T) {
	eng, _, tasks, services := testEngine(t)
	entry := &Entry{Sources: []RawEntry{
		{Kind: SourceTaskScheduler, Name: "T", Location: `\Vendor\T`},
		{Kind: SourceService, Name: "S", Location: "svcname"},
	}}

	results := eng.Delete(entry)
	for _, r := range results {
		if !r.OK() {
			t.Fatalf("delete failed for %v: %v", r.Kind, r.Err)
		}
	}
	if len(tasks.deleted) != 1 || tasks.deleted[0] != `\Vendor\T` {
		t.Fatalf("task delete calls = %v", tasks.deleted)
	}
	if len(services.deleted) != 1 || services.deleted[0] != "svcname" {
		t.Fatalf("service delete calls = %v", services.deleted)
	}
}

func TestDeleteMissingRegistryValueFails(t *testing.T) {
	eng, _, _, _ := testEngine(t)
	entry := &Entry{Sources: []RawEntry{
		{
			Kind:     SourceRegistryRun,
			Name:     "Absent",
			Scope:    ScopeUser,
			Location: `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`,
		},
	}}

	results := eng.Delete(entry)
	if results[0].OK() {
		t.Fatal("deleting a value that does not exist must report failure")
	}
}
