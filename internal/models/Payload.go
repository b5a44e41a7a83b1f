package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Payload is the only contract between the bot and the worker. It is serialised into the
// workflow_data input of the job
type Payload struct {
	SessionId string    `json:"session_id"`
	Service   Service   `json:"service"`
	Files     []FileRef `json:"files"`
	Owner     string    `json:"owner"`
	ChatId    int64     `json:"chat_id"`
	MessageId int       `json:"message_id"`
}

// ToJson returns the serialised payload
func (p Payload) ToJson() (string, error) {
	result, err := json.Marshal(p)
	return string(result), err
}

// Validate returns an error if a field required by the worker is missing or malformed
func (p Payload) Validate() error {
	if p.SessionId == "" {
		return errors.New("missing session_id")
	}
	if _, ok := ParseService(string(p.Service)); !ok {
		return fmt.Errorf("unsupported service %q", p.Service)
	}
	if p.ChatId == 0 {
		return errors.New("missing chat_id")
	}
	if p.MessageId <= 0 {
		return errors.New("missing message_id")
	}
	if len(p.Files) == 0 {
		return errors.New("missing files")
	}
	for i, file := range p.Files {
		if err := file.Validate(); err != nil {
			return fmt.Errorf("file %d: %w", i+1, err)
		}
	}
	return nil
}

// ParsePayload decodes the workflow data. The session id and service passed as separate job inputs
// take precedence if set
func ParsePayload(data, sessionId, service string) (Payload, error) {
	var result Payload
	if data == "" {
		return Payload{}, errors.New("empty workflow data")
	}
	err := json.Unmarshal([]byte(data), &result)
	if err != nil {
		return Payload{}, fmt.Errorf("malformed workflow data: %w", err)
	}
	if sessionId != "" {
		result.SessionId = sessionId
	}
	if service != "" {
		parsed, ok := ParseService(service)
		if !ok {
			return result, fmt.Errorf("unsupported service %q", service)
		}
		result.Service = parsed
	}
	return result, result.Validate()
}
