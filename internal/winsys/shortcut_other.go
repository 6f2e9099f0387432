//go:build !windows

package winsys

type ShellLinkResolver struct{}

func (ShellLinkResolver) Resolve(path string) (string, string, error) {
	return "", "", ErrUnsupported
}
