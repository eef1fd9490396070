package application

import "context"

// UnitOfWork scopes a group of repository writes to one transaction. Begin
// returns a derived context carrying the transaction; repositories that see
// that context join it instead of hitting the pool directly.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// WithUnitOfWork runs fn inside one transaction: rollback when fn fails,
// commit otherwise.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) error {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(txCtx); err != nil {
		_ = uow.Rollback(txCtx)
		return err
	}

	return uow.Commit(txCtx)
}
