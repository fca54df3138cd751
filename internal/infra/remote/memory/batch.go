package memory

import (
	"context"
	"fmt"

	"piececore/pkg/domain"
)

type batchOp struct {
	kind   string // set|update|delete
	id     string
	fields domain.RawRecord
}

type batch struct {
	store *Store
	ops   []batchOp
}

// NewBatch starts an empty write batch.
func (s *Store) NewBatch() domain.RemoteBatch {
	return &batch{store: s}
}

func (b *batch) Set(id string, fields domain.RawRecord) {
	b.ops = append(b.ops, batchOp{kind: "set", id: id, fields: cloneRecord(fields)})
}

func (b *batch) Update(id string, fields domain.RawRecord) {
	b.ops = append(b.ops, batchOp{kind: "update", id: id, fields: cloneRecord(fields)})
}

func (b *batch) Delete(id string) {
	b.ops = append(b.ops, batchOp{kind: "delete", id: id})
}

func (b *batch) Len() int { return len(b.ops) }

// Commit applies the accumulated operations atomically and resets the batch.
func (b *batch) Commit(ctx context.Context) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if len(b.ops) > domain.RemoteBatchLimit {
		return fmt.Errorf("batch exceeds %d operations", domain.RemoteBatchLimit)
	}
	for _, op := range b.ops {
		switch op.kind {
		case "set":
			s.docs[op.id] = cloneRecord(op.fields)
		case "update":
			existing, ok := s.docs[op.id]
			if !ok {
				return fmt.Errorf("piece %s not found", op.id)
			}
			for k, v := range op.fields {
				existing[k] = v
			}
		case "delete":
			delete(s.docs, op.id)
		}
	}
	s.commits++
	b.ops = b.ops[:0]
	return nil
}
