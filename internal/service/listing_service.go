package service

import (
	"context"
	"strings"
	"time"

	"procurement/internal/aggregator"
	"procurement/internal/cache"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"
	"procurement/pkg/pagination"

	"github.com/google/uuid"
)

const corpusKey = "corpus"

// ListQuery is the parsed form of GET /api/requisitions.
type ListQuery struct {
	Tab          string
	Page         pagination.Params
	DepartmentID string
	StartDate    string
	EndDate      string
	Search       string
}

type ListingResponse struct {
	Tab        aggregator.Tab           `json:"tab"`
	Items      []RequisitionResponse    `json:"items"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	Total      int64                    `json:"total"`
	TotalPages int                      `json:"total_pages"`
	Counts     map[aggregator.Tab]int64 `json:"counts"`
}

type SearchResponse struct {
	Query string                `json:"query"`
	Items []RequisitionResponse `json:"items"`
	Count int                   `json:"count"`
}

type ListingService interface {
	Fetch(ctx context.Context, scope Scope, q ListQuery) (ListingResponse, error)
	Saved(ctx context.Context, scope Scope) (ListingResponse, error)
	Search(ctx context.Context, scope Scope, query string) (SearchResponse, error)
}

type listingService struct {
	reqRepo repository.RequisitionRepository
	infra   Infra
}

func NewListingService(reqRepo repository.RequisitionRepository, infra Infra) ListingService {
	return &listingService{reqRepo: reqRepo, infra: infra.withDefaults()}
}

// corpus is the organization's full requisition list, cached per generation of the requisitions namespace.
func (s *listingService) corpus(ctx context.Context, org uuid.UUID) ([]model.Requisition, error) {
	return cachedRead(ctx, s.infra, org, cache.NamespaceRequisitions, corpusKey, func() ([]model.Requisition, error) {
		reqs, err := s.reqRepo.ListByOrganization(ctx, org)
		if err != nil {
			return nil, storageErr(err, "requisitions", org)
		}
		return reqs, nil
	})
}

func (s *listingService) Fetch(ctx context.Context, scope Scope, q ListQuery) (ListingResponse, error) {
	if err := scope.validate(); err != nil {
		return ListingResponse{}, err
	}
	tab, err := aggregator.ParseTab(q.Tab)
	if err != nil {
		return ListingResponse{}, err
	}
	filter, err := buildFilter(q)
	if err != nil {
		return ListingResponse{}, err
	}
	if q.Page.Page == 0 {
		q.Page = pagination.New(pagination.DefaultPage, pagination.DefaultPageSize)
	}

	corpus, err := s.corpus(ctx, scope.OrganizationID)
	if err != nil {
		return ListingResponse{}, err
	}
	page := aggregator.Fetch(corpus, tab, filter, q.Page)
	return ListingResponse{
		Tab:        page.Tab,
		Items:      toRequisitionResponses(page.Items),
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Counts:     aggregator.Counts(corpus),
	}, nil
}

// Saved returns every draft; drafts are never paginated.
func (s *listingService) Saved(ctx context.Context, scope Scope) (ListingResponse, error) {
	return s.Fetch(ctx, scope, ListQuery{Tab: string(model.RequisitionSavedForLater)})
}

func (s *listingService) Search(ctx context.Context, scope Scope, query string) (SearchResponse, error) {
	if err := scope.validate(); err != nil {
		return SearchResponse{}, err
	}
	corpus, err := s.corpus(ctx, scope.OrganizationID)
	if err != nil {
		return SearchResponse{}, err
	}
	res := aggregator.Search(corpus, query)
	return SearchResponse{Query: res.Query, Items: toRequisitionResponses(res.Items), Count: res.Count}, nil
}

func buildFilter(q ListQuery) (aggregator.Filter, error) {
	f := aggregator.Filter{Search: q.Search}
	if raw := strings.TrimSpace(q.DepartmentID); raw != "" {
		id, err := parseID(raw, "department")
		if err != nil {
			return f, err
		}
		f.DepartmentID = &id
	}
	if raw := strings.TrimSpace(q.StartDate); raw != "" {
		start, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, apperror.Validation("start_date must be YYYY-MM-DD, got %q", raw)
		}
		f.Start = &start
	}
	if raw := strings.TrimSpace(q.EndDate); raw != "" {
		end, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, apperror.Validation("end_date must be YYYY-MM-DD, got %q", raw)
		}
		// inclusive of the whole end day
		end = end.Add(24*time.Hour - time.Nanosecond)
		f.End = &end
	}
	return f, f.Validate()
}
