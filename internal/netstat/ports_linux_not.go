//go:build !linux

package netstat

import (
	"errors"
)

func ListenersNetlink() (map[uint16]bool, error) {
	return nil, errors.New("ListenersNetlink is available only on Linux")
}
