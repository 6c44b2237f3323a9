package pool

import "github.com/GoBlaze/blazepool/constants"

const cacheLinePadSize = constants.CacheLinePadSize

type cacheLinePadding struct {
	_ [cacheLinePadSize]byte
}
