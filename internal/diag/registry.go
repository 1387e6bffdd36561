package diag

import (
	"fmt"

	"github.com/muammer-kilic/zabbix/internal/core"
)

// FieldMask selects fields of a single section by bit.
type FieldMask uint32

// All selects every field of a section. Bits above a section's registered
// field count are harmless no-ops.
const All FieldMask = 0xFFFFFFFF

// NamedStat is one (counter name, value) pair supplied by a subsystem.
// The engine reads it during a single call and never retains it.
type NamedStat struct {
	Name  string
	Value uint64
}

// Field bits for the historycache section.
const (
	HistoryCacheItems     FieldMask = 0x00000001
	HistoryCacheValues    FieldMask = 0x00000002
	HistoryCacheMemData   FieldMask = 0x00000004
	HistoryCacheMemIndex  FieldMask = 0x00000008
	HistoryCacheMemTrends FieldMask = 0x00000010

	HistoryCacheSimple = HistoryCacheItems | HistoryCacheValues
	HistoryCacheMem    = HistoryCacheMemData | HistoryCacheMemIndex | HistoryCacheMemTrends
)

// Field bits for the valuecache section.
const (
	ValueCacheItems    FieldMask = 0x00000001
	ValueCacheValues   FieldMask = 0x00000002
	ValueCacheHits     FieldMask = 0x00000004
	ValueCacheMisses   FieldMask = 0x00000008
	ValueCacheMemData  FieldMask = 0x00000010
	ValueCacheMemIndex FieldMask = 0x00000020

	ValueCacheSimple = ValueCacheItems | ValueCacheValues
	ValueCacheMem    = ValueCacheMemData | ValueCacheMemIndex
)

// Field bits for the runtime section.
const (
	RuntimeGoroutines FieldMask = 0x00000001
	RuntimeHeapAlloc  FieldMask = 0x00000002
	RuntimeHeapInuse  FieldMask = 0x00000004
	RuntimeStackInuse FieldMask = 0x00000008
	RuntimeGCRuns     FieldMask = 0x00000010
	RuntimeGCPauseNS  FieldMask = 0x00000020

	RuntimeSimple = RuntimeGoroutines | RuntimeHeapAlloc
	RuntimeMem    = RuntimeHeapAlloc | RuntimeHeapInuse | RuntimeStackInuse
)

// Field bits for the system section.
const (
	SystemMemTotal   FieldMask = 0x00000001
	SystemMemUsed    FieldMask = 0x00000002
	SystemMemFree    FieldMask = 0x00000004
	SystemSwapTotal  FieldMask = 0x00000008
	SystemSwapUsed   FieldMask = 0x00000010
	SystemCPUCores   FieldMask = 0x00000020
	SystemCPUThreads FieldMask = 0x00000040

	SystemSimple = SystemMemTotal | SystemMemUsed
	SystemMem    = SystemMemTotal | SystemMemUsed | SystemMemFree | SystemSwapTotal | SystemSwapUsed
)

// Section names.
const (
	SectionHistoryCache = "historycache"
	SectionValueCache   = "valuecache"
	SectionRuntime      = "runtime"
	SectionSystem       = "system"
)

// field maps one counter name to its bit within a section.
type field struct {
	name string
	bit  FieldMask
}

// section is one registered diagnostic domain. Fields are kept in
// declaration order; that order defines output ordering.
type section struct {
	name        string
	fields      []field
	defaultMask FieldMask
	composites  map[string]FieldMask
}

// sections is the process-wide registry. Immutable after init.
var sections = []section{
	{
		name: SectionHistoryCache,
		fields: []field{
			{"items", HistoryCacheItems},
			{"values", HistoryCacheValues},
			{"mem_data", HistoryCacheMemData},
			{"mem_index", HistoryCacheMemIndex},
			{"mem_trends", HistoryCacheMemTrends},
		},
		defaultMask: HistoryCacheSimple,
		composites: map[string]FieldMask{
			"simple": HistoryCacheSimple,
			"mem":    HistoryCacheMem,
		},
	},
	{
		name: SectionValueCache,
		fields: []field{
			{"items", ValueCacheItems},
			{"values", ValueCacheValues},
			{"hits", ValueCacheHits},
			{"misses", ValueCacheMisses},
			{"mem_data", ValueCacheMemData},
			{"mem_index", ValueCacheMemIndex},
		},
		defaultMask: ValueCacheSimple,
		composites: map[string]FieldMask{
			"simple": ValueCacheSimple,
			"mem":    ValueCacheMem,
		},
	},
	{
		name: SectionRuntime,
		fields: []field{
			{"goroutines", RuntimeGoroutines},
			{"heap_alloc", RuntimeHeapAlloc},
			{"heap_inuse", RuntimeHeapInuse},
			{"stack_inuse", RuntimeStackInuse},
			{"gc_runs", RuntimeGCRuns},
			{"gc_pause_ns", RuntimeGCPauseNS},
		},
		defaultMask: RuntimeSimple,
		composites: map[string]FieldMask{
			"simple": RuntimeSimple,
			"mem":    RuntimeMem,
		},
	},
	{
		name: SectionSystem,
		fields: []field{
			{"mem_total", SystemMemTotal},
			{"mem_used", SystemMemUsed},
			{"mem_free", SystemMemFree},
			{"swap_total", SystemSwapTotal},
			{"swap_used", SystemSwapUsed},
			{"cpu_cores", SystemCPUCores},
			{"cpu_threads", SystemCPUThreads},
		},
		defaultMask: SystemSimple,
		composites: map[string]FieldMask{
			"simple": SystemSimple,
			"mem":    SystemMem,
		},
	},
}

var sectionIndex = make(map[string]*section, len(sections))

func init() {
	for i := range sections {
		s := &sections[i]
		if _, dup := sectionIndex[s.name]; dup {
			panic(fmt.Sprintf("duplicate diagnostics section %q", s.name))
		}
		var seen FieldMask
		for _, f := range s.fields {
			if f.bit == 0 || seen&f.bit != 0 {
				panic(fmt.Sprintf("section %q: field %q has missing or duplicate bit", s.name, f.name))
			}
			seen |= f.bit
		}
		sectionIndex[s.name] = s
	}
}

// lookupSection finds a registered section by name.
func lookupSection(name string) (*section, error) {
	s, ok := sectionIndex[name]
	if !ok {
		return nil, errUnknownSection(name)
	}
	return s, nil
}

// ResolveMask resolves a requested field-name list into a FieldMask for the
// named section.
//
// A nil list means the caller did not specify fields and yields the section's
// documented default mask. An empty non-nil list is an explicit "nothing
// requested" and yields mask 0. Duplicate names are idempotent and order does
// not matter. An unrecognized name fails the whole resolution.
func ResolveMask(sectionName string, stats []string) (FieldMask, error) {
	s, err := lookupSection(sectionName)
	if err != nil {
		return 0, err
	}
	return s.resolveMask(stats)
}

func (s *section) resolveMask(stats []string) (FieldMask, error) {
	if stats == nil {
		return s.defaultMask, nil
	}

	var mask FieldMask
	for _, name := range stats {
		bits, ok := s.fieldBit(name)
		if !ok {
			return 0, errUnknownField(s.name, name)
		}
		mask |= bits
	}
	return mask, nil
}

// fieldBit resolves one requested name to its bits: a single field, a
// composite group alias, or the "all" shorthand.
func (s *section) fieldBit(name string) (FieldMask, bool) {
	if len(name) > core.MaxNameLength {
		return 0, false
	}
	for _, f := range s.fields {
		if f.name == name {
			return f.bit, true
		}
	}
	if bits, ok := s.composites[name]; ok {
		return bits, true
	}
	if name == "all" {
		return All, true
	}
	return 0, false
}

// SectionInfo describes one registered section for introspection.
type SectionInfo struct {
	Name       string               `json:"name"`
	Fields     []string             `json:"fields"`
	Default    FieldMask            `json:"default_mask"`
	Composites map[string]FieldMask `json:"composites"`
}

// Sections returns the registry contents in declaration order.
func Sections() []SectionInfo {
	infos := make([]SectionInfo, 0, len(sections))
	for i := range sections {
		s := &sections[i]
		names := make([]string, 0, len(s.fields))
		for _, f := range s.fields {
			names = append(names, f.name)
		}
		composites := make(map[string]FieldMask, len(s.composites))
		for k, v := range s.composites {
			composites[k] = v
		}
		infos = append(infos, SectionInfo{
			Name:       s.name,
			Fields:     names,
			Default:    s.defaultMask,
			Composites: composites,
		})
	}
	return infos
}

// SectionNames returns the registered section names in declaration order.
func SectionNames() []string {
	names := make([]string, 0, len(sections))
	for i := range sections {
		names = append(names, sections[i].name)
	}
	return names
}

// FieldNames returns the field names of a section in declaration order.
func FieldNames(sectionName string) ([]string, error) {
	s, err := lookupSection(sectionName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		names = append(names, f.name)
	}
	return names, nil
}

func errUnknownSection(name string) *core.DomainError {
	return core.ErrNotFound(core.CodeUnknownSection,
		fmt.Sprintf("unknown diagnostics section %q", name)).
		WithDetail("section", name)
}

func errUnknownField(sectionName, fieldName string) *core.DomainError {
	return core.ErrValidation(core.CodeUnknownField,
		fmt.Sprintf("unknown field %q in diagnostics section %q", fieldName, sectionName)).
		WithDetail("section", sectionName).
		WithDetail("field", fieldName)
}

func errStatsInconsistent(sectionName, fieldName string) *core.DomainError {
	return core.ErrInternal(core.CodeStatsInconsistent,
		fmt.Sprintf("section %q supplied no value for registered field %q", sectionName, fieldName)).
		WithDetail("section", sectionName).
		WithDetail("field", fieldName)
}
