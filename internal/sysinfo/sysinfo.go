// Package sysinfo reports the host the dev panel runs on.
package sysinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
)

const meminfoPath = "/proc/meminfo"

// Host is the host report served on the dev panel's health endpoint
type Host struct {
	CPUCount       int     `json:"cpu_count"`
	GoVersion      string  `json:"go_version"`
	MemoryTotalGB  float64 `json:"memory_total_gb,omitempty"`
	MemoryUsedGB   float64 `json:"memory_used_gb,omitempty"`
	MemoryFreeGB   float64 `json:"memory_free_gb,omitempty"`
	DatabaseSizeMB float64 `json:"database_size_mb"`
}

// Collect builds a Host report. Memory figures stay zero where
// /proc/meminfo is unavailable; the returned error says why.
func Collect(databasePath string) (Host, error) {
	host := Host{
		CPUCount:  runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}

	if info, err := os.Stat(databasePath); err == nil {
		host.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	file, err := os.Open(meminfoPath)
	if err != nil {
		return host, fmt.Errorf("failed to open %s: %w", meminfoPath, err)
	}
	defer file.Close()

	if err := readMeminfo(file, &host); err != nil {
		return host, err
	}
	return host, nil
}

// readMeminfo fills the memory fields from /proc/meminfo content
func readMeminfo(r io.Reader, host *Host) error {
	var memTotal, memAvailable float64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			memTotal = value / (1024 * 1024) // KB to GB
		case strings.HasPrefix(line, "MemAvailable:"):
			memAvailable = value / (1024 * 1024) // KB to GB
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading meminfo: %w", err)
	}

	host.MemoryTotalGB = memTotal
	host.MemoryFreeGB = memAvailable
	host.MemoryUsedGB = memTotal - memAvailable
	return nil
}
