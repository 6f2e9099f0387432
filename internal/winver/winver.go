// Package winver reads version resources out of PE executables.
package winver
