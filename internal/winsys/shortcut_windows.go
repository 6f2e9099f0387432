//go:build windows

package winsys

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/appmanager/appman/internal/startup"
)

// ShellLinkResolver resolves .lnk files through the WScript.Shell COM
// object. Every call runs on a locked OS thread with its own apartment.
type ShellLinkResolver struct{}

func (ShellLinkResolver) Resolve(path string) (target, args string, err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return "", "", fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return "", "", fmt.Errorf("failed to create shell object: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", "", fmt.Errorf("failed to query shell object: %w", err)
	}
	defer shell.Release()

	linkVar, err := oleutil.CallMethod(shell, "CreateShortcut", path)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, startup.ErrMalformed)
	}
	defer linkVar.Clear()

	link := linkVar.ToIDispatch()
	if link == nil {
		return "", "", fmt.Errorf("%s: %w", path, startup.ErrMalformed)
	}
	defer link.Release()

	targetVar, err := oleutil.GetProperty(link, "TargetPath")
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, startup.ErrMalformed)
	}
	target = targetVar.ToString()
	targetVar.Clear()

	if argsVar, err := oleutil.GetProperty(link, "Arguments"); err == nil {
		args = argsVar.ToString()
		argsVar.Clear()
	}

	if target == "" {
		return "", "", fmt.Errorf("%s: %w", path, startup.ErrMalformed)
	}
	if _, statErr := os.Stat(target); os.IsNotExist(statErr) {
		return target, args, fmt.Errorf("%s -> %s: %w", path, target, startup.ErrTargetMissing)
	}
	return target, args, nil
}
