package diag

import (
	"fmt"

	"github.com/muammer-kilic/zabbix/internal/core"
)

// SectionRequest is the parsed per-section fragment of a diagnostics
// request. A nil Stats slice means the caller did not name fields and gets
// the section's default mask; an empty slice explicitly requests nothing.
type SectionRequest struct {
	Stats []string `json:"stats,omitempty"`
}

// Request names the sections to assemble, each with an optional field list.
type Request struct {
	Sections map[string]*SectionRequest `json:"sections"`
}

// StatsProvider supplies a point-in-time-consistent snapshot of a
// subsystem's counters. Any locking needed to read live counters happens
// inside the provider, once per call, outside the engine.
type StatsProvider interface {
	DiagStats() []NamedStat
}

// AddSectionInfo assembles one section into doc: it validates sectionName
// against the registry, resolves the request's field list into a mask, and
// appends the selected (field, value) pairs from stats in registry
// declaration order.
//
// The call is atomic per section: on any error (unknown section, unknown
// field, or a registered field missing from stats) nothing is written.
func AddSectionInfo(sectionName string, req *SectionRequest, stats []NamedStat, doc *Document) error {
	s, err := lookupSection(sectionName)
	if err != nil {
		return err
	}

	var names []string
	if req != nil {
		names = req.Stats
	}
	mask, err := s.resolveMask(names)
	if err != nil {
		return err
	}
	return s.assemble(mask, stats, doc)
}

// AddSectionInfoMask is the programmatic variant of AddSectionInfo for
// callers holding a mask directly, e.g. All or a composite constant.
func AddSectionInfoMask(sectionName string, mask FieldMask, stats []NamedStat, doc *Document) error {
	s, err := lookupSection(sectionName)
	if err != nil {
		return err
	}
	return s.assemble(mask, stats, doc)
}

// assemble selects the masked fields from stats and appends them to doc.
// A single linear scan over the field table; sections have at most 32
// fields, so no index is needed.
func (s *section) assemble(mask FieldMask, stats []NamedStat, doc *Document) error {
	byName := make(map[string]uint64, len(stats))
	for _, st := range stats {
		byName[st.Name] = st.Value
	}

	selected := make([]NamedStat, 0, len(s.fields))
	for _, f := range s.fields {
		if mask&f.bit == 0 {
			continue
		}
		value, ok := byName[f.name]
		if !ok {
			// The subsystem and the registry drifted out of sync: a
			// defect, not a condition to paper over with zeros.
			return errStatsInconsistent(s.name, f.name)
		}
		selected = append(selected, NamedStat{Name: f.name, Value: value})
	}

	doc.appendSection(s.name, selected)
	return nil
}

// Collector wires registered sections to the subsystems that own their
// counters and assembles multi-section requests.
type Collector struct {
	providers map[string]StatsProvider
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{providers: make(map[string]StatsProvider)}
}

// Register attaches a provider to a registered section. Registering an
// unknown section is a programming error surfaced immediately.
func (c *Collector) Register(sectionName string, p StatsProvider) error {
	if _, err := lookupSection(sectionName); err != nil {
		return err
	}
	if _, dup := c.providers[sectionName]; dup {
		return core.ErrState(core.CodeInvalidRequest,
			fmt.Sprintf("provider for section %q already registered", sectionName))
	}
	c.providers[sectionName] = p
	return nil
}

// Registered reports whether a provider is attached to the section.
func (c *Collector) Registered(sectionName string) bool {
	_, ok := c.providers[sectionName]
	return ok
}

// Collect assembles every requested section into a fresh document.
//
// Sections are processed in registry declaration order regardless of request
// order, and the first error aborts the whole request with no document
// returned. A requested section with no attached provider is reported the
// same way as an unregistered one: the caller asked for something this
// process cannot answer.
func (c *Collector) Collect(req Request) (*Document, error) {
	for name := range req.Sections {
		if _, err := lookupSection(name); err != nil {
			return nil, err
		}
		if _, ok := c.providers[name]; !ok {
			return nil, errUnknownSection(name)
		}
	}

	doc := NewDocument()
	for i := range sections {
		name := sections[i].name
		sub, wanted := req.Sections[name]
		if !wanted {
			continue
		}
		stats := c.providers[name].DiagStats()
		if err := AddSectionInfo(name, sub, stats, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// CollectAll assembles every section with an attached provider using the
// All mask.
func (c *Collector) CollectAll() (*Document, error) {
	doc := NewDocument()
	for i := range sections {
		name := sections[i].name
		p, ok := c.providers[name]
		if !ok {
			continue
		}
		if err := AddSectionInfoMask(name, All, p.DiagStats(), doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
