// Package events defines the typed lifecycle notifications published on the
// event bus. Consumers such as reviewer tooling subscribe instead of polling.
package events

import (
	"time"

	"github.com/credentio/credentio/pkg/models"
)

type EventType string

// Topic carries every credentialing lifecycle event.
const Topic = "credentio.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent   EventType = "workflow.created"
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowApprovedEvent  EventType = "workflow.approved"
	WorkflowRejectedEvent  EventType = "workflow.rejected"
	WorkflowCompletedEvent EventType = "workflow.completed"

	TaskDispatchedEvent EventType = "task.dispatched"
	TaskFinishedEvent   EventType = "task.finished"
	TaskFailedEvent     EventType = "task.failed"

	ExceptionOpenedEvent   EventType = "exception.opened"
	ExceptionResolvedEvent EventType = "exception.resolved"

	EvidenceBundleBuiltEvent EventType = "evidence_bundle.built"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type WorkflowCreated struct {
	BaseEvent

	ClinicianID     string                 `json:"clinician_id"`
	DestinationID   string                 `json:"destination_id"`
	DestinationType models.DestinationType `json:"destination_type"`
	TaskCount       int                    `json:"task_count"`
}

func (e WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowStarted struct {
	BaseEvent
}

func (e WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowApproved struct {
	BaseEvent

	Progress float64 `json:"progress"`
}

func (e WorkflowApproved) GetType() EventType {
	return WorkflowApprovedEvent
}

type WorkflowRejected struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e WorkflowRejected) GetType() EventType {
	return WorkflowRejectedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	EvidenceBundleID string `json:"evidence_bundle_id"`
}

func (e WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type TaskDispatched struct {
	BaseEvent

	TaskRunID string          `json:"task_run_id"`
	Kind      models.TaskKind `json:"kind"`
	Attempt   int             `json:"attempt"`
}

func (e TaskDispatched) GetType() EventType {
	return TaskDispatchedEvent
}

type TaskFinished struct {
	BaseEvent

	TaskRunID string          `json:"task_run_id"`
	Kind      models.TaskKind `json:"kind"`
	Status    models.TaskStatus `json:"status"`
	Duration  time.Duration   `json:"duration"`
}

func (e TaskFinished) GetType() EventType {
	return TaskFinishedEvent
}

type TaskFailed struct {
	BaseEvent

	TaskRunID string          `json:"task_run_id"`
	Kind      models.TaskKind `json:"kind"`
	Error     string          `json:"error"`
	Attempt   int             `json:"attempt"`
}

func (e TaskFailed) GetType() EventType {
	return TaskFailedEvent
}

type ExceptionOpened struct {
	BaseEvent

	ExceptionID string                   `json:"exception_id"`
	TaskRunID   string                   `json:"task_run_id"`
	Severity    models.ExceptionSeverity `json:"severity"`
	Reason      string                   `json:"reason"`
}

func (e ExceptionOpened) GetType() EventType {
	return ExceptionOpenedEvent
}

type ExceptionResolved struct {
	BaseEvent

	ExceptionID string                     `json:"exception_id"`
	Resolution  models.ExceptionResolution `json:"resolution"`
}

func (e ExceptionResolved) GetType() EventType {
	return ExceptionResolvedEvent
}

type EvidenceBundleBuilt struct {
	BaseEvent

	BundleID   string `json:"bundle_id"`
	FieldCount int    `json:"field_count"`
}

func (e EvidenceBundleBuilt) GetType() EventType {
	return EvidenceBundleBuiltEvent
}
