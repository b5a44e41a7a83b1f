package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/forceu/uploadrelay/internal/environment"
	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/models"
)

var logPath = "config/log.txt"
var mutex sync.Mutex

const categoryInfo = "info"
const categorySession = "session"
const categoryDispatch = "dispatch"
const categoryTransfer = "transfer"
const categoryCancel = "cancel"
const categoryAuth = "authentication"
const categoryWarning = "warning"

var outputToStdout = false

// Init sets the path where to write the log file to
func Init(filePath string) {
	logPath = filePath + "/log.txt"
	env := environment.New()
	outputToStdout = env.LogToStdout
}

// createLogEntry adds a line to the logfile including the current date. Also outputs to Stdout if set.
func createLogEntry(category, text string, blocking bool) {
	output := createLogFormat(category, text)
	if outputToStdout {
		fmt.Println(output)
	}
	if blocking {
		writeToFile(output)
	} else {
		go writeToFile(output)
	}
}

func createLogFormat(category, text string) string {
	return fmt.Sprintf("%s   [%s] %s", getDate(), category, text)
}

// LogStartup adds a log entry to indicate that a component has started. Non-blocking
func LogStartup(component string) {
	createLogEntry(categoryInfo, component+" started, version "+environment.Version, false)
}

// LogShutdown adds a log entry to indicate that a component is shutting down. Blocking call
func LogShutdown(component string) {
	createLogEntry(categoryInfo, component+" shutting down", true)
}

// LogUnauthorized adds a log entry when a user without permission sent a command. Non-blocking
func LogUnauthorized(userId, command string) {
	createLogEntry(categoryAuth, fmt.Sprintf("Rejected command %q from user %s", command, userId), false)
}

// LogSessionCreated adds a log entry when a new session was registered. Non-blocking
func LogSessionCreated(session models.UploadSession) {
	createLogEntry(categorySession, fmt.Sprintf("Created %s for user %s", session.String(), session.Owner), false)
}

// LogSessionTransition adds a log entry when the status of a session changed. Non-blocking
func LogSessionTransition(sessionId string, from, to models.SessionStatus) {
	createLogEntry(categorySession, fmt.Sprintf("Session %s: %s -> %s", sessionId, from, to), false)
}

// LogSessionRemoved adds a log entry when a session was removed from the registry. Non-blocking
func LogSessionRemoved(sessionId, reason string) {
	createLogEntry(categorySession, fmt.Sprintf("Session %s removed (%s)", sessionId, reason), false)
}

// LogDispatch adds a log entry when a job was triggered. Non-blocking
func LogDispatch(sessionId string, service models.Service, ref string) {
	createLogEntry(categoryDispatch, fmt.Sprintf("Triggered job for session %s, service %s, ref %s", sessionId, service, ref), false)
}

// LogDispatchFailed adds a log entry when a job could not be triggered. Non-blocking
func LogDispatchFailed(sessionId string, err error) {
	createLogEntry(categoryDispatch, fmt.Sprintf("Could not trigger job for session %s: %v", sessionId, err), false)
}

// LogTransferStarted adds a log entry when the worker starts processing a session. Non-blocking
func LogTransferStarted(payload models.Payload) {
	createLogEntry(categoryTransfer, fmt.Sprintf("Processing session %s, %d file(s) to %s", payload.SessionId, len(payload.Files), payload.Service), false)
}

// LogFileUploaded adds a log entry when a file was uploaded successfully. Non-blocking
func LogFileUploaded(sessionId string, result models.UploadResult) {
	createLogEntry(categoryTransfer, fmt.Sprintf("Session %s: uploaded %s to %s", sessionId, result.FileName, result.Url), false)
}

// LogFileFailed adds a log entry when a file could not be transferred. Non-blocking
func LogFileFailed(sessionId, fileName string, err error) {
	createLogEntry(categoryWarning, fmt.Sprintf("Session %s: skipping %s: %v", sessionId, fileName, err), false)
}

// LogTransferFinished adds a log entry with the outcome of a session. Blocking call, as the worker exits afterwards
func LogTransferFinished(report models.TransferReport) {
	createLogEntry(categoryTransfer, fmt.Sprintf("Session %s finished with status %s, %d/%d file(s) uploaded",
		report.SessionId, report.Status, len(report.Uploaded), report.TotalFiles), true)
}

// LogCancelRequested adds a log entry when a user requested cancellation. Non-blocking
func LogCancelRequested(sessionId, userId string, created bool) {
	if created {
		createLogEntry(categoryCancel, fmt.Sprintf("Cancellation of session %s requested by user %s", sessionId, userId), false)
		return
	}
	createLogEntry(categoryCancel, fmt.Sprintf("Cancellation of session %s already requested, ignoring request of user %s", sessionId, userId), false)
}

// LogCancelObserved adds a log entry when the worker stops because of a cancellation. Non-blocking
func LogCancelObserved(sessionId string, index, total int) {
	createLogEntry(categoryCancel, fmt.Sprintf("Session %s cancelled before file %d/%d", sessionId, index+1, total), false)
}

// LogWarning adds a generic warning. Non-blocking
func LogWarning(text string) {
	createLogEntry(categoryWarning, text, false)
}

func writeToFile(text string) {
	mutex.Lock()
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	helper.Check(err)
	defer file.Close()
	defer mutex.Unlock()
	_, err = file.WriteString(text + "\n")
	helper.Check(err)
}

func getDate() string {
	return time.Now().UTC().Format(time.RFC1123)
}
