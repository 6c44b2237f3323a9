//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package main

import (
	"net"

	"github.com/valyala/tcplisten"
)

var listenConfig = tcplisten.Config{
	ReusePort:   true,
	DeferAccept: true,
	FastOpen:    true,
}

func listen(addr string) (net.Listener, error) {
	return listenConfig.NewListener("tcp4", addr)
}
