package providers

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/felixgeelhaar/mcp-resources/server"
)

// MemoryInfo is host memory usage in bytes.
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"usedPercent"`
}

// LoadInfo is the host load average.
type LoadInfo struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// HostInfo is the content of system://info. Metrics the platform cannot
// report are omitted.
type HostInfo struct {
	Hostname        string      `json:"hostname,omitempty"`
	Platform        string      `json:"platform"`
	PlatformVersion string      `json:"platformVersion,omitempty"`
	Arch            string      `json:"arch"`
	CPUs            int         `json:"cpus"`
	GoVersion       string      `json:"goVersion"`
	PID             int         `json:"pid"`
	Uptime          uint64      `json:"uptime,omitempty"`
	Memory          *MemoryInfo `json:"memory,omitempty"`
	Load            *LoadInfo   `json:"load,omitempty"`
}

// SystemInfo reports host and process information.
type SystemInfo struct{}

// NewSystemInfo creates the system://info provider.
func NewSystemInfo() *SystemInfo {
	return &SystemInfo{}
}

// Describe returns the metadata of the host information resource.
func (s *SystemInfo) Describe() server.ResourceInfo {
	return server.ResourceInfo{
		URI:         URISystemInfo,
		Name:        "System Information",
		Description: "Host, memory and load information for the machine running the server",
		MimeType:    MimeJSON,
	}
}

// Produce returns a fresh host snapshot as JSON.
func (s *SystemInfo) Produce(ctx context.Context) (string, string, error) {
	info := HostInfo{
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
		PID:       os.Getpid(),
	}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.Uptime = h.Uptime
		if h.Platform != "" {
			info.PlatformVersion = h.Platform + " " + h.PlatformVersion
		}
	} else if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.CPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.Memory = &MemoryInfo{Total: vm.Total, Free: vm.Available, UsedPercent: vm.UsedPercent}
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.Load = &LoadInfo{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}

	text, err := marshal(info)
	return text, MimeJSON, err
}
