package service

import (
	"context"
	"net/mail"
	"strings"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"
)

// CreateOptionRequest covers every reference kind; fields that do not apply to a kind are ignored.
type CreateOptionRequest struct {
	Name          string `json:"name" binding:"required"`
	Code          string `json:"code"`
	Address       string `json:"address"`
	CompanyName   string `json:"company_name"`
	TaxCode       string `json:"tax_code"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

type OptionService interface {
	List(ctx context.Context, scope Scope, kind string, search string) ([]model.Option, error)
	Create(ctx context.Context, scope Scope, kind string, req CreateOptionRequest) (model.Option, error)
}

type optionService struct {
	optionRepo repository.OptionRepository
}

func NewOptionService(optionRepo repository.OptionRepository) OptionService {
	return &optionService{optionRepo: optionRepo}
}

func parseKind(raw string) (model.OptionKind, error) {
	kind := model.OptionKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", apperror.Validation("unknown option kind %q", raw)
	}
	return kind, nil
}

func (s *optionService) List(ctx context.Context, scope Scope, rawKind string, search string) ([]model.Option, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	kind, err := parseKind(rawKind)
	if err != nil {
		return nil, err
	}
	options, err := s.optionRepo.List(ctx, scope.OrganizationID, kind, strings.ToLower(strings.TrimSpace(search)))
	if err != nil {
		return nil, storageErr(err, string(kind), scope.OrganizationID)
	}
	if options == nil {
		options = []model.Option{}
	}
	return options, nil
}

func (s *optionService) Create(ctx context.Context, scope Scope, rawKind string, req CreateOptionRequest) (model.Option, error) {
	if err := scope.validate(); err != nil {
		return model.Option{}, err
	}
	kind, err := parseKind(rawKind)
	if err != nil {
		return model.Option{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Option{}, apperror.Validation("name is required")
	}
	org := scope.OrganizationID

	switch kind {
	case model.OptionBranch:
		b := &model.Branch{OrganizationID: org, Name: name, Address: req.Address}
		if err := s.optionRepo.CreateBranch(ctx, b); err != nil {
			return model.Option{}, storageErr(err, string(kind), name)
		}
		return b.Option(), nil
	case model.OptionDepartment:
		d := &model.Department{OrganizationID: org, Name: name, Code: strings.ToUpper(strings.TrimSpace(req.Code))}
		if err := s.optionRepo.CreateDepartment(ctx, d); err != nil {
			return model.Option{}, storageErr(err, string(kind), name)
		}
		return d.Option(), nil
	case model.OptionCategory:
		c := &model.Category{OrganizationID: org, Name: name}
		if err := s.optionRepo.CreateCategory(ctx, c); err != nil {
			return model.Option{}, storageErr(err, string(kind), name)
		}
		return c.Option(), nil
	}

	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return model.Option{}, apperror.Validation("invalid supplier email %q", req.Email)
		}
	}
	sup := &model.Supplier{
		OrganizationID: org,
		Name:           name,
		CompanyName:    strings.TrimSpace(req.CompanyName),
		TaxCode:        req.TaxCode,
		ContactPerson:  req.ContactPerson,
		Phone:          req.Phone,
		Email:          req.Email,
		IsActive:       true,
	}
	if err := s.optionRepo.CreateSupplier(ctx, sup); err != nil {
		return model.Option{}, storageErr(err, string(kind), name)
	}
	return sup.Option(), nil
}
