package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operation names a transformation a worker knows how to run.
type Operation string

const (
	OperationExtractAudio     Operation = "extract-audio"
	OperationExtractThumbnail Operation = "extract-thumbnail"
	OperationTranscode        Operation = "transcode"
)

// InputFileKey is the parameter bag entry holding the input Locator.
const InputFileKey = "inputFile"

// OutputFileKey is the job output entry receiving the produced Locator.
const OutputFileKey = "outputFile"

// ParameterBag is the job input as submitted: inputFile plus operation specific values.
type ParameterBag map[string]any

// InputFile decodes the inputFile entry.
func (p ParameterBag) InputFile() (Locator, error) {
	raw, ok := p[InputFileKey]
	if !ok || raw == nil {
		return Locator{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, InputFileKey)
	}
	if loc, ok := raw.(Locator); ok {
		return loc, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return Locator{}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, InputFileKey, err)
	}
	var loc Locator
	if err := json.Unmarshal(data, &loc); err != nil {
		return Locator{}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, InputFileKey, err)
	}
	return loc, nil
}

// JobStatus is the lifecycle state of a job record.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Callback is an optional webhook notified when a job finishes.
type Callback struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JobRequest is what a submitter asks for.
type JobRequest struct {
	Operation Operation    `json:"operation"`
	Input     ParameterBag `json:"input"`
	Callback  *Callback    `json:"callback,omitempty"`
}

// JobRecord is the persisted state of one job assignment.
type JobRecord struct {
	ID        string         `json:"id"`
	Operation Operation      `json:"operation"`
	Input     ParameterBag   `json:"input"`
	Output    map[string]any `json:"output,omitempty"`
	Status    JobStatus      `json:"status"`
	Progress  float64        `json:"progress"`
	Attempts  int            `json:"attempts"`
	Error     string         `json:"error,omitempty"`
	Callback  *Callback      `json:"callback,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
