package domain

import (
	"fmt"
	"time"
)

// RunStatus represents the overall status of an autotag run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPlanned   RunStatus = "planned"
)

// OperationStatus represents the status of an individual operation
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
)

// OperationType identifies the type of operation
type OperationType string

const (
	OperationTypeFetchTags     OperationType = "fetch_tags"
	OperationTypeCreateTag     OperationType = "create_tag"
	OperationTypeDeleteTag     OperationType = "delete_tag"
	OperationTypePushTag       OperationType = "push_tag"
	OperationTypePushDeleteTag OperationType = "push_delete_tag"
)

// RunRecord is the journal entry for one autotag run
type RunRecord struct {
	SessionID     string            `json:"session_id" yaml:"session_id"`
	StartedAt     time.Time         `json:"started_at" yaml:"started_at"`
	UpdatedAt     time.Time         `json:"updated_at" yaml:"updated_at"`
	LatestVersion string            `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	NewVersion    string            `json:"new_version,omitempty" yaml:"new_version,omitempty"`
	UpdateTypes   []string          `json:"update_types,omitempty" yaml:"update_types,omitempty"`
	Dominant      string            `json:"dominant,omitempty" yaml:"dominant,omitempty"`
	Transition    Transition        `json:"transition,omitempty" yaml:"transition,omitempty"`
	HeadCommit    string            `json:"head_commit,omitempty" yaml:"head_commit,omitempty"`
	DryRun        bool              `json:"dry_run" yaml:"dry_run"`
	Operations    []OperationRecord `json:"operations" yaml:"operations"`
	Status        RunStatus         `json:"status" yaml:"status"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// OperationRecord represents a single operation in the run
type OperationRecord struct {
	ID          string          `json:"id" yaml:"id"`
	Type        OperationType   `json:"type" yaml:"type"`
	Tag         string          `json:"tag" yaml:"tag"`
	Status      OperationStatus `json:"status" yaml:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewRunRecord creates a new run record
func NewRunRecord(sessionID string) *RunRecord {
	now := time.Now()
	return &RunRecord{
		SessionID:  sessionID,
		StartedAt:  now,
		UpdatedAt:  now,
		Operations: []OperationRecord{},
		Status:     RunStatusPending,
	}
}

// SetRelease copies the calculation outcome into the record
func (rr *RunRecord) SetRelease(release *Release) {
	rr.LatestVersion = release.Latest.String()
	rr.NewVersion = release.Next.String()
	rr.UpdateTypes = release.UpdateTypes.Strings()
	rr.Dominant = release.Dominant.String()
	rr.HeadCommit = release.HeadCommit
	rr.UpdatedAt = time.Now()
}

// AddOperation appends a pending operation and returns its ID
func (rr *RunRecord) AddOperation(op TagOperation) string {
	id := generateOperationID(op.Type, len(rr.Operations))
	rr.Operations = append(rr.Operations, OperationRecord{
		ID:     id,
		Type:   op.Type,
		Tag:    op.Tag,
		Status: OperationStatusPending,
	})
	rr.UpdatedAt = time.Now()
	return id
}

// GetOperation returns the operation with the given ID
func (rr *RunRecord) GetOperation(id string) *OperationRecord {
	for i := range rr.Operations {
		if rr.Operations[i].ID == id {
			return &rr.Operations[i]
		}
	}
	return nil
}

// MarkOperationStarted marks an operation as started
func (rr *RunRecord) MarkOperationStarted(id string) {
	op := rr.GetOperation(id)
	if op == nil || op.Status != OperationStatusPending {
		return
	}
	now := time.Now()
	op.Status = OperationStatusRunning
	op.StartedAt = &now
	rr.UpdatedAt = now
}

// MarkOperationCompleted marks an operation as completed
func (rr *RunRecord) MarkOperationCompleted(id string) {
	op := rr.GetOperation(id)
	if op == nil || op.Status != OperationStatusRunning {
		return
	}
	now := time.Now()
	op.Status = OperationStatusCompleted
	op.CompletedAt = &now
	rr.UpdatedAt = now
}

// MarkOperationFailed marks an operation and the run as failed
func (rr *RunRecord) MarkOperationFailed(id string, err error) {
	now := time.Now()
	if op := rr.GetOperation(id); op != nil && op.Status == OperationStatusRunning {
		op.Status = OperationStatusFailed
		op.CompletedAt = &now
		op.Error = err.Error()
	}
	rr.Fail(err)
}

// Fail marks the run as failed
func (rr *RunRecord) Fail(err error) {
	rr.Status = RunStatusFailed
	rr.Error = err.Error()
	rr.UpdatedAt = time.Now()
}

// CompletedOperations returns the operations that finished, in execution order
func (rr *RunRecord) CompletedOperations() []OperationRecord {
	var completed []OperationRecord
	for _, op := range rr.Operations {
		if op.Status == OperationStatusCompleted {
			completed = append(completed, op)
		}
	}
	return completed
}

func generateOperationID(opType OperationType, index int) string {
	return fmt.Sprintf("%s_%d", opType, index)
}
