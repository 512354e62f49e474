package parbench

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// HostInfo describes the machine a benchmark runs on. Reports from
// different hosts are only comparable with this attached.
type HostInfo struct {
	OS          string   `json:"os"`
	Arch        string   `json:"arch"`
	NumCPU      int      `json:"num_cpu"`
	AllowedCPUs int      `json:"allowed_cpus"`
	GOMAXPROCS  int      `json:"gomaxprocs"`
	Features    []string `json:"features"`
	GoVersion   string   `json:"go_version"`
	Version     string   `json:"version"`
}

// DetectHost gathers HostInfo for the running process
func DetectHost() HostInfo {
	version, _ := Version()
	if version == "" {
		version = "(devel)"
	}
	h := HostInfo{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		Features:   cpuFeatures(),
		GoVersion:  runtime.Version(),
		Version:    version,
	}
	h.AllowedCPUs = h.NumCPU
	if cpus, err := allowedCPUs(); err == nil {
		h.AllowedCPUs = len(cpus)
	}
	return h
}

// cpuFeatures lists the SIMD extensions relevant to the kernels
func cpuFeatures() []string {
	var features []string
	add := func(has bool, name string) {
		if has {
			features = append(features, name)
		}
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE41 || cpu.X86.HasSSE42, "SSE4")
		add(cpu.X86.HasAVX, "AVX")
		add(cpu.X86.HasAVX2, "AVX2")
		add(cpu.X86.HasFMA, "FMA")
		add(cpu.X86.HasAVX512F, "AVX512F")
		add(cpu.X86.HasAVX512DQ, "AVX512DQ")
		add(cpu.X86.HasAVX512BW, "AVX512BW")
		add(cpu.X86.HasAVX512VL, "AVX512VL")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "NEON")
		add(cpu.ARM64.HasFPHP, "FP16")
		add(cpu.ARM64.HasASIMDHP, "ASIMDHP")
		add(cpu.ARM64.HasSVE, "SVE")
		add(cpu.ARM64.HasSVE2, "SVE2")
	}
	return features
}

// String formats the host on a few lines
func (h HostInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "parbench %s (%s)\n", h.Version, h.GoVersion)
	fmt.Fprintf(&sb, "Platform:    %s/%s\n", h.OS, h.Arch)
	fmt.Fprintf(&sb, "CPUs:        %d logical, %d allowed, GOMAXPROCS=%d\n", h.NumCPU, h.AllowedCPUs, h.GOMAXPROCS)
	if len(h.Features) == 0 {
		sb.WriteString("Features:    No SIMD extensions detected\n")
	} else {
		fmt.Fprintf(&sb, "Features:    %s\n", strings.Join(h.Features, ", "))
	}
	fmt.Fprintf(&sb, "Cache model: L1 %dKB, L2 %dKB, L3 %dMB, line %dB\n",
		L1CacheSize/1024, L2CacheSize/1024, L3CacheSize/(1024*1024), CacheLineSize)
	return sb.String()
}
