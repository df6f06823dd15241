package scheduler

import (
	"encoding/json"
	"fmt"

	"insulationpal_backend/internal/notification"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TaskExpirySweep      = "distribution.sweep"
	TaskLeadBackfill     = "distribution.backfill"
	TaskReminderCadence  = "cadence.reminders"
	TaskFollowupCadence  = "cadence.followups"
	TaskNotificationSend = "notification.send"
)

type LeadBackfillPayload struct {
	LeadID string `json:"leadId"`
}

func NewExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TaskExpirySweep, nil)
}

func NewReminderCadenceTask() *asynq.Task {
	return asynq.NewTask(TaskReminderCadence, nil)
}

func NewFollowupCadenceTask() *asynq.Task {
	return asynq.NewTask(TaskFollowupCadence, nil)
}

func NewLeadBackfillTask(leadID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(LeadBackfillPayload{LeadID: leadID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadBackfill, data), nil
}

func ParseLeadBackfillPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload LeadBackfillPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, err
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("backfill payload: %w", err)
	}
	return leadID, nil
}

func NewNotificationSendTask(d notification.Delivery) (*asynq.Task, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationSend, data), nil
}

func ParseNotificationSendPayload(task *asynq.Task) (notification.Delivery, error) {
	var d notification.Delivery
	if err := json.Unmarshal(task.Payload(), &d); err != nil {
		return notification.Delivery{}, err
	}
	return d, nil
}
