package lifecycle

import (
	"context"
	"fmt"
)

type batchOp struct {
	name  string
	apply func(ctx context.Context, tx Tx) error
}

// batch collects the writes of one transition so they can be committed as a
// unit, either as a transaction of its own or inside a savepoint of a sweep.
type batch struct {
	ops []batchOp
}

func (b *batch) add(name string, fn func(ctx context.Context, tx Tx) error) {
	b.ops = append(b.ops, batchOp{name: name, apply: fn})
}

func (b *batch) apply(ctx context.Context, tx Tx) error {
	for _, op := range b.ops {
		if err := op.apply(ctx, tx); err != nil {
			return fmt.Errorf("%s: %w", op.name, err)
		}
	}
	return nil
}

func (b *batch) commit(ctx context.Context, store Store) error {
	if len(b.ops) == 0 {
		return nil
	}
	return store.RunInTx(ctx, b.apply)
}

// commitIn applies the batch inside a savepoint of an open transaction.
func (b *batch) commitIn(ctx context.Context, tx Tx) error {
	if len(b.ops) == 0 {
		return nil
	}
	return tx.Savepoint(ctx, b.apply)
}
