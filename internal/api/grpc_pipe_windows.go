//go:build windows

package api

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// listenPipe слушает именованный пайп Windows для control канала
func listenPipe(addr string) (net.Listener, error) {
	return winio.ListenPipe(addr, nil)
}
