//go:build !unix

package layer4

import "syscall"

func setBroadcast(_, _ string, _ syscall.RawConn) error {
	return nil
}
