package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/muammer-kilic/zabbix/internal/core"
	"github.com/muammer-kilic/zabbix/internal/diag"
)

// maxRequestBody caps diaginfo request bodies. Requests only carry section
// and field names, so anything larger is malformed.
const maxRequestBody = 1 << 20

// handleDiagInfo assembles a diagnostics document for the requested
// sections. An empty body or an empty "sections" object collects every
// registered section with its full field set.
func (s *Server) handleDiagInfo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req diag.Request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON request: "+err.Error())
			return
		}
	}

	var doc *diag.Document
	if len(req.Sections) == 0 {
		doc, err = s.collector.CollectAll()
	} else {
		doc, err = s.collector.Collect(req)
	}
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// handleListSections returns the section registry for introspection.
func (s *Server) handleListSections(w http.ResponseWriter, _ *http.Request) {
	type sectionDTO struct {
		Name       string   `json:"name"`
		Fields     []string `json:"fields"`
		Default    []string `json:"default_fields"`
		Composites []string `json:"composites,omitempty"`
		Registered bool     `json:"registered"`
	}

	infos := diag.Sections()
	out := make([]sectionDTO, 0, len(infos))
	for _, info := range infos {
		dto := sectionDTO{
			Name:       info.Name,
			Fields:     info.Fields,
			Default:    maskFieldNames(info, info.Default),
			Registered: s.collector.Registered(info.Name),
		}
		for name := range info.Composites {
			dto.Composites = append(dto.Composites, name)
		}
		sort.Strings(dto.Composites)
		out = append(out, dto)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"sections": out})
}

// maskFieldNames expands a mask into field names, in declaration order.
func maskFieldNames(info diag.SectionInfo, mask diag.FieldMask) []string {
	names := make([]string, 0, len(info.Fields))
	for i, name := range info.Fields {
		if mask&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	return names
}

// respondDomainError maps a DomainError to an HTTP status and writes the
// error payload with its machine-readable code.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	status, ok := httpStatusForDomainError(err)
	if !ok {
		status = http.StatusInternalServerError
	}

	var domErr *core.DomainError
	if errors.As(err, &domErr) && domErr != nil {
		respondJSON(w, status, map[string]interface{}{
			"error":   domErr.Message,
			"code":    domErr.Code,
			"details": domErr.Details,
		})
		return
	}
	respondError(w, status, err.Error())
}
