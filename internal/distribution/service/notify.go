package service

import (
	"context"
	"errors"
	"sync/atomic"

	"insulationpal_backend/internal/distribution/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var errNoRecipient = errors.New("contractor has no contact email")

type notification struct {
	recipient string
	template  string
	data      map[string]any
}

// dispatch sends notifications best-effort and returns how many failed.
// It never returns an error: the transitions they describe are already committed.
func (s *Service) dispatch(ctx context.Context, batch []notification) int {
	if s.dispatcher == nil || len(batch) == 0 {
		return 0
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(notificationFanoutLimit)
	for _, n := range batch {
		g.Go(func() error {
			if n.recipient == "" {
				failed.Add(1)
				s.log.NotificationFailed(n.template, "", errNoRecipient)
				return nil
			}
			if err := s.dispatcher.Send(ctx, n.recipient, n.template, n.data); err != nil {
				failed.Add(1)
				s.log.NotificationFailed(n.template, n.recipient, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// contractorsOf loads contact details for the contractors of the given assignments.
// A lookup failure is logged and yields an empty map so notifications are only skipped.
func (s *Service) contractorsOf(ctx context.Context, assignments []domain.Assignment) map[uuid.UUID]domain.Contractor {
	if len(assignments) == 0 {
		return map[uuid.UUID]domain.Contractor{}
	}
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ContractorID)
	}
	contractors, err := s.store.GetContractors(ctx, ids)
	if err != nil {
		s.log.DatabaseError("load notification recipients", err)
		return map[uuid.UUID]domain.Contractor{}
	}
	return contractors
}

func assignmentData(a domain.Assignment, c domain.Contractor) map[string]any {
	return map[string]any{
		"assignmentId":     a.ID.String(),
		"leadId":           a.LeadID.String(),
		"businessName":     c.BusinessName,
		"status":           string(a.Status),
		"responseDeadline": a.ResponseDeadline,
	}
}
