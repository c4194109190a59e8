package metrics

import (
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"
)

// StartSystemMonitor samples low-level runtime metrics in the background.
// The returned stop function terminates the sampler.
func StartSystemMonitor(walDirectoryPath string) func() {
	stopChannel := make(chan struct{})

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				var memoryStats runtime.MemStats
				runtime.ReadMemStats(&memoryStats)
				atomic.StoreInt64(&Global.SystemMemoryBytes, int64(memoryStats.Alloc))
				atomic.StoreInt64(&Global.GoroutineCount, int64(runtime.NumGoroutine()))

				atomic.StoreInt64(&Global.WalSizeBytes, totalDirectorySize(walDirectoryPath))
			case <-stopChannel:
				return
			}
		}
	}()

	return func() { close(stopChannel) }
}

func totalDirectorySize(directoryPath string) int64 {
	entries, err := os.ReadDir(directoryPath)
	if err != nil {
		return 0
	}

	total := int64(0)
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(directoryPath, entry.Name()))
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
	}
	return total
}
