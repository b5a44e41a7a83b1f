//go:build test

package testmessenger

import (
	"context"
	"errors"
	"sync"

	"github.com/forceu/uploadrelay/internal/messenger"
)

// Message is a sent or edited message
type Message struct {
	ChatId    int64
	MessageId int
	Text      string
	Buttons   []messenger.Button
}

// Answer is an answered callback query
type Answer struct {
	CallbackId string
	Text       string
	ShowAlert  bool
}

// Recorder implements messenger.Messenger and stores all calls
type Recorder struct {
	Sent     []Message
	Edits    []Message
	Deleted  []Message
	Answers  []Answer
	FailEdit bool
	FailSend bool
	nextId   int
	mutex    sync.Mutex
}

// ErrFailed is returned by the recorder if a failure was requested
var ErrFailed = errors.New("requested failure")

// Send records a new message and returns an increasing message id
func (r *Recorder) Send(ctx context.Context, chatId int64, text string, buttons []messenger.Button) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.FailSend {
		return 0, ErrFailed
	}
	r.nextId++
	r.Sent = append(r.Sent, Message{ChatId: chatId, MessageId: r.nextId, Text: text, Buttons: buttons})
	return r.nextId, nil
}

// Edit records an edit
func (r *Recorder) Edit(ctx context.Context, chatId int64, messageId int, text string, buttons []messenger.Button) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.FailEdit {
		return ErrFailed
	}
	r.Edits = append(r.Edits, Message{ChatId: chatId, MessageId: messageId, Text: text, Buttons: buttons})
	return nil
}

// Delete records a deletion
func (r *Recorder) Delete(ctx context.Context, chatId int64, messageId int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Deleted = append(r.Deleted, Message{ChatId: chatId, MessageId: messageId})
	return nil
}

// AnswerCallback records the answer of a callback query
func (r *Recorder) AnswerCallback(ctx context.Context, callbackId, text string, showAlert bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Answers = append(r.Answers, Answer{CallbackId: callbackId, Text: text, ShowAlert: showAlert})
	return nil
}

// SentTexts returns the texts of all sent messages
func (r *Recorder) SentTexts() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	result := make([]string, 0, len(r.Sent))
	for _, msg := range r.Sent {
		result = append(result, msg.Text)
	}
	return result
}

// LastSent returns the text of the last sent message or an empty string
func (r *Recorder) LastSent() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.Sent) == 0 {
		return ""
	}
	return r.Sent[len(r.Sent)-1].Text
}

// EditCount returns the number of recorded edits
func (r *Recorder) EditCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Edits)
}

// LastEdit returns the text of the last edit or an empty string
func (r *Recorder) LastEdit() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.Edits) == 0 {
		return ""
	}
	return r.Edits[len(r.Edits)-1].Text
}

// EditTexts returns the texts of all edits
func (r *Recorder) EditTexts() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	result := make([]string, 0, len(r.Edits))
	for _, edit := range r.Edits {
		result = append(result, edit.Text)
	}
	return result
}

// EditMessages returns a copy of all recorded edits
func (r *Recorder) EditMessages() []Message {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	result := make([]Message, len(r.Edits))
	copy(result, r.Edits)
	return result
}
