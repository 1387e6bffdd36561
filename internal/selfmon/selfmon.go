// Package selfmon supplies the runtime and system diagnostic sections:
// Go runtime counters read from the running process and host memory/CPU
// counters read through gopsutil.
package selfmon

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/muammer-kilic/zabbix/internal/diag"
)

// RuntimeProvider reports Go runtime counters. Stateless; every call reads
// fresh memstats.
type RuntimeProvider struct{}

// NewRuntimeProvider creates a runtime provider.
func NewRuntimeProvider() *RuntimeProvider {
	return &RuntimeProvider{}
}

// DiagStats returns the runtime section counters.
func (p *RuntimeProvider) DiagStats() []diag.NamedStat {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return []diag.NamedStat{
		{Name: "goroutines", Value: uint64(runtime.NumGoroutine())},
		{Name: "heap_alloc", Value: ms.HeapAlloc},
		{Name: "heap_inuse", Value: ms.HeapInuse},
		{Name: "stack_inuse", Value: ms.StackInuse},
		{Name: "gc_runs", Value: uint64(ms.NumGC)},
		{Name: "gc_pause_ns", Value: ms.PauseTotalNs},
	}
}

// SystemProvider reports host memory, swap, and CPU topology counters.
// CPU topology never changes while the process runs, so it is read once
// and cached.
type SystemProvider struct {
	mu            sync.Mutex
	infoCollected bool
	cores         uint64
	threads       uint64
}

// NewSystemProvider creates a system provider.
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{}
}

// DiagStats returns the system section counters. A failed OS read reports
// zero for the affected counters rather than omitting them; the section's
// field set is part of the registry contract.
func (p *SystemProvider) DiagStats() []diag.NamedStat {
	var memTotal, memUsed, memFree uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		memTotal = vm.Total
		memUsed = vm.Used
		memFree = vm.Free
	}

	var swapTotal, swapUsed uint64
	if sw, err := mem.SwapMemory(); err == nil {
		swapTotal = sw.Total
		swapUsed = sw.Used
	}

	cores, threads := p.cpuCounts()

	return []diag.NamedStat{
		{Name: "mem_total", Value: memTotal},
		{Name: "mem_used", Value: memUsed},
		{Name: "mem_free", Value: memFree},
		{Name: "swap_total", Value: swapTotal},
		{Name: "swap_used", Value: swapUsed},
		{Name: "cpu_cores", Value: cores},
		{Name: "cpu_threads", Value: threads},
	}
}

func (p *SystemProvider) cpuCounts() (uint64, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.infoCollected {
		if cores, err := cpu.Counts(false); err == nil && cores > 0 {
			p.cores = uint64(cores)
		}
		if threads, err := cpu.Counts(true); err == nil && threads > 0 {
			p.threads = uint64(threads)
		}
		p.infoCollected = true
	}
	return p.cores, p.threads
}
