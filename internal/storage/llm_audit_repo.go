package storage

import (
	"context"
	"fmt"
)

// LLMCallRecord is one provider attempt made by the synthesizer.
type LLMCallRecord struct {
	Operation    string
	ProviderName string
	Model        string
	Status       string
	ErrorType    string
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	if _, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls (operation, provider_name, model, status, error_type)
VALUES ($1, $2, $3, $4, NULLIF($5, ''))`,
		rec.Operation, rec.ProviderName, rec.Model, rec.Status, rec.ErrorType); err != nil {
		return fmt.Errorf("insert llm call %s/%s: %w", rec.Operation, rec.ProviderName, err)
	}
	return nil
}
