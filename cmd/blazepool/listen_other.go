//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package main

import "net"

func listen(addr string) (net.Listener, error) {
	return net.Listen("tcp4", addr)
}
