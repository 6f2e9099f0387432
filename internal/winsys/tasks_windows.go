//go:build windows

package winsys

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/appmanager/appman/internal/startup"
)

// Task Scheduler 2.0 COM constants.
const (
	taskTriggerLogon        = 9
	taskActionExec          = 0
	taskLogonS4U            = 2
	taskLogonServiceAccount = 5
	taskEnumHidden          = 1
)

// TaskService enumerates logon tasks through the Schedule.Service COM
// object and applies changes through schtasks, which handles the
// elevation and XML rewriting details itself.
type TaskService struct{}

func (TaskService) LogonTasks(ctx context.Context) ([]startup.TaskDescriptor, error) {
	var tasks []startup.TaskDescriptor
	err := withTaskService(func(svc *ole.IDispatch) error {
		rootVar, err := oleutil.CallMethod(svc, "GetFolder", `\`)
		if err != nil {
			return fmt.Errorf("failed to open task root folder: %w", err)
		}
		defer rootVar.Clear()

		root := rootVar.ToIDispatch()
		if root == nil {
			return errors.New("task root folder unavailable")
		}
		defer root.Release()

		return walkTaskFolder(ctx, root, &tasks)
	})
	return tasks, err
}

func (TaskService) SetEnabled(path string, enabled bool) error {
	flag := "/disable"
	if enabled {
		flag = "/enable"
	}
	cmd := exec.Command("schtasks", "/change", "/tn", path, flag)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("schtasks change %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (TaskService) Delete(path string) error {
	cmd := exec.Command("schtasks", "/delete", "/tn", path, "/f")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("schtasks delete %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func withTaskService(action func(svc *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Schedule.Service")
	if err != nil {
		return fmt.Errorf("failed to create scheduler object: %w", err)
	}
	defer unknown.Release()

	svc, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("failed to query scheduler object: %w", err)
	}
	defer svc.Release()

	if _, err := oleutil.CallMethod(svc, "Connect"); err != nil {
		return fmt.Errorf("failed to connect to task scheduler: %w", err)
	}

	return action(svc)
}

// walkTaskFolder recurses through the task folder tree collecting every
// task with a logon trigger. Per-task read failures lose that task only.
func walkTaskFolder(ctx context.Context, folder *ole.IDispatch, out *[]startup.TaskDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tasksVar, err := oleutil.CallMethod(folder, "GetTasks", taskEnumHidden)
	if err == nil {
		if coll := tasksVar.ToIDispatch(); coll != nil {
			forEachItem(coll, func(task *ole.IDispatch) {
				if desc, ok := describeTask(task); ok {
					*out = append(*out, desc)
				}
			})
			coll.Release()
		}
		tasksVar.Clear()
	}

	foldersVar, err := oleutil.CallMethod(folder, "GetFolders", 0)
	if err != nil {
		return nil
	}
	defer foldersVar.Clear()

	coll := foldersVar.ToIDispatch()
	if coll == nil {
		return nil
	}
	defer coll.Release()

	var walkErr error
	forEachItem(coll, func(sub *ole.IDispatch) {
		if walkErr == nil {
			walkErr = walkTaskFolder(ctx, sub, out)
		}
	})
	return walkErr
}

// forEachItem iterates a 1-based COM collection, releasing each item.
func forEachItem(coll *ole.IDispatch, fn func(item *ole.IDispatch)) {
	countVar, err := oleutil.GetProperty(coll, "Count")
	if err != nil {
		return
	}
	count := int(countVar.Val)
	countVar.Clear()

	for i := 1; i <= count; i++ {
		itemVar, err := oleutil.CallMethod(coll, "Item", i)
		if err != nil {
			continue
		}
		if item := itemVar.ToIDispatch(); item != nil {
			fn(item)
			item.Release()
		}
		itemVar.Clear()
	}
}

// describeTask reduces one registered task to a descriptor, returning
// false unless the task has a logon trigger and an exec action.
func describeTask(task *ole.IDispatch) (startup.TaskDescriptor, bool) {
	var desc startup.TaskDescriptor
	desc.Name = getStringProperty(task, "Name")
	desc.Path = getStringProperty(task, "Path")
	desc.Enabled = getBoolProperty(task, "Enabled")

	defVar, err := oleutil.GetProperty(task, "Definition")
	if err != nil {
		return desc, false
	}
	defer defVar.Clear()

	def := defVar.ToIDispatch()
	if def == nil {
		return desc, false
	}
	defer def.Release()

	if !hasLogonTrigger(def) {
		return desc, false
	}
	if !fillExecAction(def, &desc) {
		return desc, false
	}

	fillPrincipal(def, &desc)
	if !desc.ServiceLauncher && isSvchost(desc.ExecPath) {
		desc.ServiceLauncher = true
	}
	return desc, true
}

func hasLogonTrigger(def *ole.IDispatch) bool {
	triggersVar, err := oleutil.GetProperty(def, "Triggers")
	if err != nil {
		return false
	}
	defer triggersVar.Clear()

	coll := triggersVar.ToIDispatch()
	if coll == nil {
		return false
	}
	defer coll.Release()

	found := false
	forEachItem(coll, func(trigger *ole.IDispatch) {
		if getIntProperty(trigger, "Type") == taskTriggerLogon {
			found = true
		}
	})
	return found
}

func fillExecAction(def *ole.IDispatch, desc *startup.TaskDescriptor) bool {
	actionsVar, err := oleutil.GetProperty(def, "Actions")
	if err != nil {
		return false
	}
	defer actionsVar.Clear()

	coll := actionsVar.ToIDispatch()
	if coll == nil {
		return false
	}
	defer coll.Release()

	forEachItem(coll, func(action *ole.IDispatch) {
		if desc.ExecPath != "" {
			return
		}
		if getIntProperty(action, "Type") != taskActionExec {
			return
		}
		desc.ExecPath = strings.Trim(getStringProperty(action, "Path"), `"`)
		desc.ExecArgs = getStringProperty(action, "Arguments")
	})
	return desc.ExecPath != ""
}

func fillPrincipal(def *ole.IDispatch, desc *startup.TaskDescriptor) {
	principalVar, err := oleutil.GetProperty(def, "Principal")
	if err != nil {
		return
	}
	defer principalVar.Clear()

	principal := principalVar.ToIDispatch()
	if principal == nil {
		return
	}
	defer principal.Release()

	runsAs := getStringProperty(principal, "UserId")
	if i := strings.LastIndex(runsAs, `\`); i >= 0 {
		runsAs = runsAs[i+1:]
	}
	desc.RunsAs = runsAs
	logonType := getIntProperty(principal, "LogonType")
	if logonType == taskLogonS4U || logonType == taskLogonServiceAccount {
		desc.ServiceLauncher = true
	}
}

func isSvchost(execPath string) bool {
	path := strings.ToLower(strings.ReplaceAll(execPath, "/", `\`))
	return strings.HasSuffix(path, `\svchost.exe`) || path == "svchost.exe"
}

func getStringProperty(disp *ole.IDispatch, name string) string {
	v, err := oleutil.GetProperty(disp, name)
	if err != nil {
		return ""
	}
	defer v.Clear()
	return v.ToString()
}

func getBoolProperty(disp *ole.IDispatch, name string) bool {
	v, err := oleutil.GetProperty(disp, name)
	if err != nil {
		return false
	}
	defer v.Clear()
	b, ok := v.Value().(bool)
	return ok && b
}

func getIntProperty(disp *ole.IDispatch, name string) int {
	v, err := oleutil.GetProperty(disp, name)
	if err != nil {
		return -1
	}
	defer v.Clear()
	return int(v.Val)
}
