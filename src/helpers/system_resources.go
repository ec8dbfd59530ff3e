package helpers

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

const (
	meminfoPath      = "/proc/meminfo"
	fallbackMemoryMB = 512
)

// ResolveMemoryLimitMB turns the configured series memory limit into the
// effective one: a positive value is used as is, zero means 75% of physical
// RAM (at least 512MB), a negative value disables the guard (returns 0).
func ResolveMemoryLimitMB(configured int) int {
	switch {
	case configured > 0:
		return configured
	case configured < 0:
		return 0
	}
	return recommendedLimit(totalMemoryMB(meminfoPath))
}

func recommendedLimit(totalMB int) int {
	if totalMB <= 0 {
		return fallbackMemoryMB
	}
	limit := totalMB * 3 / 4
	if limit < fallbackMemoryMB {
		if totalMB < fallbackMemoryMB {
			return totalMB
		}
		return fallbackMemoryMB
	}
	return limit
}

// totalMemoryMB reads MemTotal from a meminfo file. 0 when unavailable,
// which is always the case off Linux.
func totalMemoryMB(path string) int {
	file, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "MemTotal:" {
			continue
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0
		}
		return kb / 1024
	}
	return 0
}
