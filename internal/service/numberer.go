package service

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
)

// Numberer issues human-readable document numbers. Calls must run inside the creating transaction.
type Numberer interface {
	NextPRNumber(ctx context.Context, org uuid.UUID) (string, error)
	NextPONumber(ctx context.Context, org uuid.UUID, at time.Time) (string, error)
}

type sequenceNumberer struct {
	repo repository.SequenceRepository
}

func NewNumberer(repo repository.SequenceRepository) Numberer {
	return &sequenceNumberer{repo: repo}
}

// NextPRNumber returns PR-000001, PR-000002, ... per organization.
func (n *sequenceNumberer) NextPRNumber(ctx context.Context, org uuid.UUID) (string, error) {
	v, err := n.repo.Next(ctx, org, "PR")
	if err != nil {
		return "", apperror.Upstream(err, "failed to number requisition")
	}
	return fmt.Sprintf("PR-%06d", v), nil
}

// NextPONumber returns PO-YYYYMMDD-00001, restarting every day.
func (n *sequenceNumberer) NextPONumber(ctx context.Context, org uuid.UUID, at time.Time) (string, error) {
	prefix := "PO-" + at.Format("20060102")
	v, err := n.repo.Next(ctx, org, prefix)
	if err != nil {
		return "", apperror.Upstream(err, "failed to number purchase order")
	}
	return fmt.Sprintf("%s-%05d", prefix, v), nil
}
