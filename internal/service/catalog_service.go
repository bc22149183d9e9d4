package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/medrec/medrec-api/internal/domain/diagnosis"
	"github.com/medrec/medrec-api/internal/domain/doctor"
	"github.com/medrec/medrec-api/internal/domain/patient"
	"github.com/medrec/medrec-api/internal/domain/visit"
	"github.com/medrec/medrec-api/pkg/pagination"
)

var ErrUnknownEntityType = errors.New("unknown entity type")

// Lister turns a page request into a page of view-shaped values for one
// entity type.
type Lister func(ctx context.Context, req pagination.Request) (pagination.Page[any], error)

// CatalogService implements the one generic listing contract shared by every
// entity: the same page/sort/filter request, the same page envelope,
// dispatched by entity type name.
type CatalogService struct {
	listers map[string]Lister
	log     *zap.Logger
}

// ListResult carries the outcome of a deferred listing.
type ListResult struct {
	Page pagination.Page[any]
	Err  error
}

func NewCatalogService(
	diagnosisRepo diagnosis.Repository,
	doctorRepo doctor.Repository,
	specialtyRepo doctor.SpecialtyRepository,
	patientRepo patient.Repository,
	visitRepo visit.Repository,
	log *zap.Logger,
) *CatalogService {
	listers := map[string]Lister{
		"diagnosis": func(ctx context.Context, req pagination.Request) (pagination.Page[any], error) {
			p, err := diagnosisRepo.List(ctx, req)
			return erase(p), err
		},
		"doctor": func(ctx context.Context, req pagination.Request) (pagination.Page[any], error) {
			p, err := doctorRepo.List(ctx, &doctor.ListQuery{Page: req})
			return erase(p), err
		},
		"specialty": func(ctx context.Context, req pagination.Request) (pagination.Page[any], error) {
			p, err := specialtyRepo.List(ctx, req)
			return erase(p), err
		},
		"patient": func(ctx context.Context, req pagination.Request) (pagination.Page[any], error) {
			p, err := patientRepo.List(ctx, &patient.ListQuery{Page: req})
			return erase(p), err
		},
		"visit": func(ctx context.Context, req pagination.Request) (pagination.Page[any], error) {
			p, err := visitRepo.List(ctx, &visit.ListQuery{Page: req})
			return erase(p), err
		},
		"sickleave": func(ctx context.Context, req pagination.Request) (pagination.Page[any], error) {
			p, err := visitRepo.ListSickLeaves(ctx, req)
			return erase(p), err
		},
		"treatment": func(ctx context.Context, req pagination.Request) (pagination.Page[any], error) {
			p, err := visitRepo.ListTreatments(ctx, req)
			return erase(p), err
		},
	}
	return &CatalogService{listers: listers, log: log}
}

// ListAny dispatches the generic listing contract over the registered entity
// types.
func (s *CatalogService) ListAny(ctx context.Context, entityType string, req pagination.Request) (pagination.Page[any], error) {
	lister, ok := s.listers[entityType]
	if !ok {
		return pagination.Page[any]{}, ErrUnknownEntityType
	}
	return lister(ctx, req)
}

// ListAnyAsync is the deferred getAll variant: the listing still runs
// synchronously against the store, but the caller awaits the single result
// on the returned channel instead of blocking.
func (s *CatalogService) ListAnyAsync(ctx context.Context, entityType string, req pagination.Request) <-chan ListResult {
	out := make(chan ListResult, 1)
	go func() {
		defer close(out)
		page, err := s.ListAny(ctx, entityType, req)
		out <- ListResult{Page: page, Err: err}
	}()
	return out
}

// EntityTypes lists the registered type names, for error payloads.
func (s *CatalogService) EntityTypes() []string {
	names := make([]string, 0, len(s.listers))
	for name := range s.listers {
		names = append(names, name)
	}
	return names
}

func erase[T any](p pagination.Page[T]) pagination.Page[any] {
	return pagination.Map(p, func(v T) any { return v })
}
