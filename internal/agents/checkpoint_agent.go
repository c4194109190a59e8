package agents

import (
	"path/filepath"
	"time"

	"durakv/internal/core"
	"durakv/internal/logger"
)

// StartCheckpointAgentInBackground appends a CHECKPOINT record on a fixed
// cadence so recovery always has a recent logical root. Disabled when the
// interval is zero. The returned stop function terminates the agent.
func StartCheckpointAgentInBackground(engine *core.DatabaseEngine, dataDirectoryPath string, intervalInSeconds int) func() {
	stopChannel := make(chan struct{})
	if intervalInSeconds <= 0 {
		return func() { close(stopChannel) }
	}

	checkpointLabel := filepath.Join(dataDirectoryPath, "checkpoint.db")

	go func() {
		ticker := time.NewTicker(time.Duration(intervalInSeconds) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := engine.Backup(checkpointLabel); err != nil {
					logger.LogErrorEvent("Periodic checkpoint failed: %v", err)
				} else {
					logger.LogDebugEvent("Periodic checkpoint written: %s", checkpointLabel)
				}
			case <-stopChannel:
				return
			}
		}
	}()

	return func() { close(stopChannel) }
}
