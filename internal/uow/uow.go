package uow

import (
	"context"

	"github.com/yeonsu-dev/stagepass/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work over a repository.Store.
type UoW struct {
	store repository.Store
}

func New(store repository.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside one transaction. After a successful commit, it executes
// all after-commit hooks; a rolled-back transaction runs none of them.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, r repository.Repos, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.InTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return fn(ctx, r, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
