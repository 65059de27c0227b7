package probe

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/dumontcloud/dumont-qa/app/config"
)

// CheckConditions verifies the host is in a state where browser-heavy work
// makes sense. Returns true if conditions are satisfied, false with reason
// otherwise. Nil conditions always pass.
func CheckConditions(conditions *config.Conditions) (bool, string) {
	if conditions == nil {
		return true, ""
	}

	// check CPU
	if conditions.CPUBelow != nil {
		if ok, reason := checkCPU(*conditions.CPUBelow); !ok {
			return false, reason
		}
	}

	// check memory
	if conditions.MemoryBelow != nil {
		if ok, reason := checkMemory(*conditions.MemoryBelow); !ok {
			return false, reason
		}
	}

	// check disk free space, screenshots need room
	if conditions.DiskFreeAbove != nil {
		path := conditions.DiskFreePath
		if path == "" {
			path = "/"
		}
		if ok, reason := checkDiskFree(*conditions.DiskFreeAbove, path); !ok {
			return false, reason
		}
	}

	return true, ""
}

func checkCPU(threshold int) (bool, string) {
	percentages, err := cpu.Percent(time.Second, false)
	if err != nil || len(percentages) == 0 {
		return true, "" // can't check, don't block the run
	}
	if percentages[0] >= float64(threshold) {
		return false, fmt.Sprintf("cpu usage %.1f%% exceeds threshold %d%%", percentages[0], threshold)
	}
	return true, ""
}

func checkMemory(threshold int) (bool, string) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return true, ""
	}
	if vmStat.UsedPercent >= float64(threshold) {
		return false, fmt.Sprintf("memory usage %.1f%% exceeds threshold %d%%", vmStat.UsedPercent, threshold)
	}
	return true, ""
}

func checkDiskFree(threshold int, path string) (bool, string) {
	usage, err := disk.Usage(path)
	if err != nil {
		return true, ""
	}
	free := 100 - usage.UsedPercent
	if free <= float64(threshold) {
		return false, fmt.Sprintf("disk free %.1f%% on %s below threshold %d%%", free, path, threshold)
	}
	return true, ""
}
