//go:build test

package testtelegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Token is the bot token accepted by the fake server
const Token = "123456:test-token"

// Server is a minimal fake of the Telegram Bot API. It records all calls and serves
// files registered with AddFile
type Server struct {
	*httptest.Server
	mutex         sync.Mutex
	calls         []Call
	files         map[string][]byte
	messages      map[string]map[string]any
	failMethods   map[string]string
	nextMessageId int
}

// Call is a recorded API request
type Call struct {
	Method string
	Params url.Values
}

// New starts a fake server. Call Close when done
func New() *Server {
	s := &Server{
		files:         make(map[string][]byte),
		messages:      make(map[string]map[string]any),
		failMethods:   make(map[string]string),
		nextMessageId: 1000,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Endpoint returns the API endpoint in the format expected by the bot library
func (s *Server) Endpoint() string {
	return s.URL + "/bot%s/%s"
}

// AddFile registers a downloadable file
func (s *Server) AddFile(fileId string, content []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.files[fileId] = content
}

// AddMessage registers a message that can be forwarded. message is the JSON representation
// of the message without message_id and chat
func (s *Server) AddMessage(chat string, messageId int, message map[string]any) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.messages[chat+"/"+strconv.Itoa(messageId)] = message
}

// FailMethod makes all following calls of method fail with the description
func (s *Server) FailMethod(method, description string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failMethods[method] = description
}

// ResetFailures removes all failures set with FailMethod
func (s *Server) ResetFailures() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failMethods = make(map[string]string)
}

// Calls returns all recorded calls of method
func (s *Server) Calls(method string) []url.Values {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var result []url.Values
	for _, call := range s.calls {
		if call.Method == method {
			result = append(result, call.Params)
		}
	}
	return result
}

// LastText returns the text of the last sent or edited message, or an empty string
func (s *Server) LastText() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Method == "sendMessage" || s.calls[i].Method == "editMessageText" {
			return s.calls[i].Params.Get("text")
		}
	}
	return ""
}

// Reset removes all recorded calls
func (s *Server) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls = nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	filePrefix := "/file/bot" + Token + "/"
	if strings.HasPrefix(r.URL.Path, filePrefix) {
		s.serveFile(w, strings.TrimPrefix(r.URL.Path, filePrefix))
		return
	}
	methodPrefix := "/bot" + Token + "/"
	if !strings.HasPrefix(r.URL.Path, methodPrefix) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	method := strings.TrimPrefix(r.URL.Path, methodPrefix)
	_ = r.ParseForm()
	params := r.Form

	s.mutex.Lock()
	s.calls = append(s.calls, Call{Method: method, Params: params})
	failure, failed := s.failMethods[method]
	s.mutex.Unlock()
	if failed {
		writeError(w, http.StatusBadRequest, failure)
		return
	}

	switch method {
	case "getMe":
		writeResult(w, map[string]any{"id": 1, "is_bot": true, "first_name": "Relay", "username": "relay_bot"})
	case "sendMessage", "editMessageText":
		writeResult(w, s.createMessage(params))
	case "deleteMessage", "answerCallbackQuery":
		writeResult(w, true)
	case "getFile":
		s.getFile(w, params.Get("file_id"))
	case "forwardMessage":
		s.forwardMessage(w, params)
	default:
		writeError(w, http.StatusNotFound, "Not Found: method not found")
	}
}

func (s *Server) createMessage(params url.Values) map[string]any {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	messageId, err := strconv.Atoi(params.Get("message_id"))
	if err != nil || messageId == 0 {
		s.nextMessageId++
		messageId = s.nextMessageId
	}
	chatId, _ := strconv.ParseInt(params.Get("chat_id"), 10, 64)
	return map[string]any{
		"message_id": messageId,
		"date":       0,
		"chat":       map[string]any{"id": chatId, "type": "private"},
		"text":       params.Get("text"),
	}
}

func (s *Server) getFile(w http.ResponseWriter, fileId string) {
	s.mutex.Lock()
	content, ok := s.files[fileId]
	s.mutex.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Bad Request: invalid file_id")
		return
	}
	writeResult(w, map[string]any{
		"file_id":        fileId,
		"file_unique_id": "u" + fileId,
		"file_size":      len(content),
		"file_path":      "documents/" + fileId,
	})
}

func (s *Server) serveFile(w http.ResponseWriter, path string) {
	s.mutex.Lock()
	content, ok := s.files[strings.TrimPrefix(path, "documents/")]
	s.mutex.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	_, _ = w.Write(content)
}

func (s *Server) forwardMessage(w http.ResponseWriter, params url.Values) {
	s.mutex.Lock()
	original, ok := s.messages[params.Get("from_chat_id")+"/"+params.Get("message_id")]
	s.nextMessageId++
	messageId := s.nextMessageId
	s.mutex.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Bad Request: message to forward not found")
		return
	}
	chatId, _ := strconv.ParseInt(params.Get("chat_id"), 10, 64)
	result := make(map[string]any)
	for key, value := range original {
		result[key] = value
	}
	result["message_id"] = messageId
	result["date"] = 0
	result["chat"] = map[string]any{"id": chatId, "type": "private"}
	writeResult(w, result)
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func writeError(w http.ResponseWriter, code int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": code, "description": description})
}

// String returns a short description for debugging failed tests
func (c Call) String() string {
	return fmt.Sprintf("%s %v", c.Method, c.Params)
}
