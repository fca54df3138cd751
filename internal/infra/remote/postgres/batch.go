package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"piececore/pkg/domain"
)

type batchOpKind int

const (
	opSet batchOpKind = iota
	opUpdate
	opDelete
)

type batchOp struct {
	kind   batchOpKind
	id     string
	fields domain.RawRecord
}

// batch accumulates write operations and commits them inside a single
// transaction. Each committed batch is durable independently; there is no
// cross-batch transaction.
type batch struct {
	store *Store
	ops   []batchOp
}

// NewBatch starts an empty write batch.
func (s *Store) NewBatch() domain.RemoteBatch {
	return &batch{store: s}
}

func (b *batch) Set(id string, fields domain.RawRecord) {
	b.ops = append(b.ops, batchOp{kind: opSet, id: id, fields: fields})
}

func (b *batch) Update(id string, fields domain.RawRecord) {
	b.ops = append(b.ops, batchOp{kind: opUpdate, id: id, fields: fields})
}

func (b *batch) Delete(id string) {
	b.ops = append(b.ops, batchOp{kind: opDelete, id: id})
}

func (b *batch) Len() int { return len(b.ops) }

// Commit applies the accumulated operations atomically and resets the batch
// for reuse.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > domain.RemoteBatchLimit {
		return fmt.Errorf("batch exceeds %d operations", domain.RemoteBatchLimit)
	}
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, op := range b.ops {
		switch op.kind {
		case opSet:
			payload, err := json.Marshal(op.fields)
			if err != nil {
				return fmt.Errorf("encode piece: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pieces(id, doc) VALUES($1, $2) ON CONFLICT(id) DO UPDATE SET doc = EXCLUDED.doc`,
				op.id, payload); err != nil {
				return fmt.Errorf("batch set %s: %w", op.id, err)
			}
		case opUpdate:
			payload, err := json.Marshal(op.fields)
			if err != nil {
				return fmt.Errorf("encode piece: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE pieces SET doc = doc || $2::jsonb WHERE id = $1`, op.id, payload); err != nil {
				return fmt.Errorf("batch update %s: %w", op.id, err)
			}
		case opDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM pieces WHERE id = $1`, op.id); err != nil {
				return fmt.Errorf("batch delete %s: %w", op.id, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	committed = true
	b.ops = b.ops[:0]
	return nil
}
