package models

// UploadResult is the outcome of one successfully uploaded file. Only kept until the final report is sent
type UploadResult struct {
	FileName string  `json:"filename"`
	Url      string  `json:"url"`
	Service  Service `json:"service"`
}

// TransferReport summarises a finished job
type TransferReport struct {
	SessionId  string
	Service    Service
	TotalFiles int
	Uploaded   []UploadResult
	Status     SessionStatus
	// FatalError is only set if the job aborted before processing any file
	FatalError string
}
