package service

import (
	"context"
	"time"

	"procurement/internal/repository"
	"procurement/pkg/pagination"
	"procurement/pkg/response"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, scope Scope, entityID string, p pagination.Params) (response.Page, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs pages through the organization's trail, newest first, optionally for one entity
func (s *auditService) GetAuditLogs(ctx context.Context, scope Scope, entityID string, p pagination.Params) (response.Page, error) {
	if err := scope.validate(); err != nil {
		return response.Page{}, err
	}
	p = p.Capped(pagination.MaxPageSize)
	logs, total, err := s.auditRepo.List(ctx, scope.OrganizationID, entityID, p.Offset, p.PageSize)
	if err != nil {
		return response.Page{}, storageErr(err, "audit logs", scope.OrganizationID)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}

	return response.Page{
		Items:      res,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pagination.TotalPages(total, p.PageSize),
	}, nil
}
