package mux

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"fetchbot/pkg/logger"
)

// minFreeMem is the floor below which no new ffmpeg process is spawned.
// A muxer that starts swapping mid-stream stalls every active job.
const minFreeMem = 128 * 1024 * 1024

func checkResources() error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warn("Could not read memory stats", "error", err)
		return nil
	}
	if vm.Available < minFreeMem {
		return fmt.Errorf("not enough free memory for ffmpeg: %d available", vm.Available)
	}
	return nil
}
