//go:build !linux

package blazepool

import "runtime"

func numCPU() int {
	return runtime.NumCPU()
}
