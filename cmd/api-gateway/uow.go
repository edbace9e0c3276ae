package main

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/oficios-api/internal/repository"
	"github.com/noah-isme/oficios-api/internal/service"
)

// sqlUnitOfWork binds every store to the same *sqlx.Tx.
type sqlUnitOfWork struct {
	tx *repository.Transactor
}

func newUnitOfWork(tx *repository.Transactor) *sqlUnitOfWork {
	return &sqlUnitOfWork{tx: tx}
}

func (u *sqlUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, stores service.Stores) error) error {
	return u.tx.RunInTx(ctx, func(txCtx context.Context, tx *sqlx.Tx) error {
		return fn(txCtx, storesOn(tx))
	})
}

func storesOn(q repository.Queryer) service.Stores {
	return service.Stores{
		Requests:  repository.NewRequestRepository(q),
		Responses: repository.NewResponseRepository(q),
		Registry:  repository.NewRegistryRepository(q),
		Sequences: repository.NewSequenceRepository(q),
		Catalog:   repository.NewCatalogRepository(q),
		Audit:     repository.NewAuditRepository(q),
	}
}
