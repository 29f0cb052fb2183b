//go:build !windows

package api

import (
	"fmt"
	"net"
)

// listenPipe на unix-платформах не поддерживается: control канал
// слушает unix сокет
func listenPipe(addr string) (net.Listener, error) {
	return nil, fmt.Errorf("named pipes are supported only on Windows (requested %s)", addr)
}
