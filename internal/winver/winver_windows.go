//go:build windows

package winver

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

type langCodepage struct {
	Lang     uint16
	Codepage uint16
}

// ProductName reads the ProductName string from an executable's version
// resource using the file's own translation table. Any failure yields ""
// since the name is cosmetic enrichment only.
func ProductName(path string) string {
	size, err := windows.GetFileVersionInfoSize(path, nil)
	if err != nil || size == 0 {
		return ""
	}

	data := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&data[0])); err != nil {
		return ""
	}

	var transPtr unsafe.Pointer
	var transLen uint32
	err = windows.VerQueryValue(unsafe.Pointer(&data[0]), `\VarFileInfo\Translation`, unsafe.Pointer(&transPtr), &transLen)
	if err != nil || transLen < uint32(unsafe.Sizeof(langCodepage{})) {
		return ""
	}
	trans := *(*langCodepage)(transPtr)

	query := fmt.Sprintf(`\StringFileInfo\%04x%04x\ProductName`, trans.Lang, trans.Codepage)
	var namePtr unsafe.Pointer
	var nameLen uint32
	if err := windows.VerQueryValue(unsafe.Pointer(&data[0]), query, unsafe.Pointer(&namePtr), &nameLen); err != nil || nameLen == 0 {
		return ""
	}
	return windows.UTF16PtrToString((*uint16)(namePtr))
}
