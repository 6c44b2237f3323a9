package blazepool

import "github.com/GoBlaze/blazepool/constants"

// MaxThreads caps the number of workers a Scheduler will run.
const MaxThreads = constants.MaxThreads

// spinLimit is how many times an idle worker yields before going to sleep.
const spinLimit = 40

const (
	parallelForName = "parallel_for"
	runTaskName     = "run_task"
)

const cacheLinePadSize = constants.CacheLinePadSize

type cacheLinePadding struct{ _ [cacheLinePadSize]byte }
