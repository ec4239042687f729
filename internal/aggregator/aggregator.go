// Package aggregator turns one organization's requisition corpus into
// tab-scoped, filtered and paginated views. It never reorders: rows keep the
// order in which the corpus was loaded.
package aggregator

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"procurement/internal/model"
	"procurement/pkg/apperror"
	"procurement/pkg/pagination"
)

// Tab is a listing partition. TabAll spans every status.
type Tab string

const TabAll Tab = "ALL"

// Tabs lists the partitions shown as badges, in display order.
var Tabs = []Tab{
	TabAll,
	Tab(model.RequisitionPending),
	Tab(model.RequisitionApproved),
	Tab(model.RequisitionRejected),
	Tab(model.RequisitionRequestedModification),
	Tab(model.RequisitionSavedForLater),
}

// ParseTab maps a status query value to a tab; empty means ALL.
func ParseTab(raw string) (Tab, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == string(TabAll) {
		return TabAll, nil
	}
	status, err := model.ParseRequisitionStatus(trimmed)
	if err != nil {
		return "", err
	}
	return Tab(status), nil
}

// Paginated reports whether the tab is split into pages. Drafts are always returned whole.
func (t Tab) Paginated() bool {
	return t != Tab(model.RequisitionSavedForLater)
}

func (t Tab) includes(r model.Requisition) bool {
	return t == TabAll || Tab(r.Status) == t
}

// Filter composes its predicates with logical AND. Zero fields match everything.
type Filter struct {
	DepartmentID *uuid.UUID
	Status       *model.RequisitionStatus
	Start        *time.Time
	End          *time.Time
	Search       string
}

// Validate rejects a date range whose start is after its end.
func (f Filter) Validate() error {
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return apperror.Validation("start_date must not be after end_date")
	}
	return nil
}

func (f Filter) Match(r model.Requisition) bool {
	if f.DepartmentID != nil && (r.DepartmentID == nil || *r.DepartmentID != *f.DepartmentID) {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.Start != nil && r.CreatedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && r.CreatedAt.After(*f.End) {
		return false
	}
	return MatchesQuery(r, f.Search)
}

// MatchesQuery is a case-insensitive substring match over the requisition's text fields.
func MatchesQuery(r model.Requisition, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{
		r.PRNumber,
		r.RequestorName,
		r.RequestorEmail,
		r.RequestDescription,
		r.Justification,
		string(r.Status),
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, item := range r.Items {
		if strings.Contains(strings.ToLower(item.ItemName), q) {
			return true
		}
	}
	return false
}

// Page is one slice of a tab.
type Page struct {
	Tab        Tab                 `json:"tab"`
	Items      []model.Requisition `json:"items"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	Total      int64               `json:"total"`
	TotalPages int                 `json:"total_pages"`
}

// Fetch returns the requested page of tab after applying f. Unpaginated tabs return every match.
func Fetch(corpus []model.Requisition, tab Tab, f Filter, p pagination.Params) Page {
	matched := make([]model.Requisition, 0, len(corpus))
	for _, r := range corpus {
		if tab.includes(r) && f.Match(r) {
			matched = append(matched, r)
		}
	}
	total := int64(len(matched))

	if !tab.Paginated() {
		return Page{
			Tab:        tab,
			Items:      matched,
			Page:       1,
			PageSize:   len(matched),
			Total:      total,
			TotalPages: 1,
		}
	}

	start := p.Offset
	if start < 0 || start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if p.PageSize < end-start {
		end = start + p.PageSize
	}
	return Page{
		Tab:        tab,
		Items:      matched[start:end],
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pagination.TotalPages(total, p.PageSize),
	}
}

// Counts returns the badge count of every tab, computed from one pass over the corpus.
func Counts(corpus []model.Requisition) map[Tab]int64 {
	counts := make(map[Tab]int64, len(Tabs))
	for _, t := range Tabs {
		counts[t] = 0
	}
	for _, r := range corpus {
		counts[TabAll]++
		if _, shown := counts[Tab(r.Status)]; shown {
			counts[Tab(r.Status)]++
		}
	}
	return counts
}

// SearchResult is reported separately from the page-local count.
type SearchResult struct {
	Query string              `json:"query"`
	Items []model.Requisition `json:"items"`
	Count int                 `json:"count"`
}

// Search scans the full corpus, not just the current page.
func Search(corpus []model.Requisition, query string) SearchResult {
	res := SearchResult{Query: query, Items: []model.Requisition{}}
	if strings.TrimSpace(query) == "" {
		return res
	}
	for _, r := range corpus {
		if MatchesQuery(r, query) {
			res.Items = append(res.Items, r)
		}
	}
	res.Count = len(res.Items)
	return res
}
