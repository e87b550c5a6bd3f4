package model

// ExpandPayload is the payload of an expand task: one batch of add-ons of a job.
type ExpandPayload struct {
	JobID    int64   `json:"job_id"    validate:"required,gt=0"`
	AddonIDs []int64 `json:"addon_ids" validate:"required,min=1,dive,gt=0"`
	// Chunk is the index of this batch within the job.
	Chunk    int     `json:"chunk"     validate:"gte=0"`
}

// ValidateFilePayload is the payload of a validate_file task.
type ValidateFilePayload struct {
	ResultID int64 `json:"result_id" validate:"required,gt=0"`
}

// NotifySuccessPayload is the payload of a notify_success task.
type NotifySuccessPayload struct {
	JobID       int64          `json:"job_id"       validate:"required,gt=0"`
	VersionIDs  []int64        `json:"version_ids"  validate:"required,min=1,dive,gt=0"`
	Template    NotifyTemplate `json:"template"`
	PreviewOnly bool           `json:"preview_only"`
	Actor       Actor          `json:"actor"`
}

// NotifyFailedPayload is the payload of a notify_failed task.
type NotifyFailedPayload struct {
	JobID       int64          `json:"job_id"       validate:"required,gt=0"`
	FileIDs     []int64        `json:"file_ids"     validate:"required,min=1,dive,gt=0"`
	Template    NotifyTemplate `json:"template"`
	PreviewOnly bool           `json:"preview_only"`
	Actor       Actor          `json:"actor"`
}
