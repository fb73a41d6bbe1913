//go:build !(linux || darwin || freebsd)

package file

import "os"

func load(path string) ([]byte, func() error, error) {
	b, err := os.ReadFile(path)
	return b, func() error { return nil }, err
}
