//go:build test

package uploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/forceu/uploadrelay/internal/configuration/hostingconfig"
	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/test"
)

const testContent = "content of the uploaded file"

type received struct {
	fileName string
	content  string
	fields   map[string]string
	auth     string
}

type fakeHosting struct {
	*httptest.Server
	mutex    sync.Mutex
	requests map[string]received
	// responses maps a path to status code and body
	responses map[string]fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeHosting(t *testing.T) *fakeHosting {
	t.Helper()
	f := &fakeHosting{
		requests:  make(map[string]received),
		responses: make(map[string]fakeResponse),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeHosting) respond(path string, status int, body string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.responses[path] = fakeResponse{status: status, body: body}
}

func (f *fakeHosting) request(path string) received {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.requests[path]
}

func (f *fakeHosting) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		err := r.ParseMultipartForm(10 * 1024 * 1024)
		if err == nil {
			result := received{fields: make(map[string]string), auth: r.Header.Get("Authorization")}
			for key, values := range r.MultipartForm.Value {
				result.fields[key] = values[0]
			}
			for _, headers := range r.MultipartForm.File {
				file, err := headers[0].Open()
				if err == nil {
					content, _ := io.ReadAll(file)
					_ = file.Close()
					result.fileName = headers[0].Filename
					result.content = string(content)
					result.fields["_field"] = headers[0].Header.Get("Content-Disposition")
				}
			}
			f.mutex.Lock()
			f.requests[r.URL.Path] = result
			f.mutex.Unlock()
		}
	}
	f.mutex.Lock()
	response, ok := f.responses[r.URL.Path]
	f.mutex.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(response.status)
	_, _ = io.WriteString(w, response.body)
}

func (f *fakeHosting) endpoints() Endpoints {
	return Endpoints{
		Pixeldrain:   f.URL,
		GofileApi:    f.URL + "/gofileapi",
		GofileUpload: f.URL + "/gofile/%s/uploadFile",
		Catbox:       f.URL + "/catbox",
		Anonfiles:    f.URL + "/anonfiles",
		Fileio:       f.URL + "/fileio",
	}
}

func createTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay-123-test.bin")
	err := os.WriteFile(path, []byte(testContent), 0600)
	test.IsNil(t, err)
	return path
}

func getUploader(t *testing.T, client *Client, service models.Service) Uploader {
	t.Helper()
	result, err := client.Get(service)
	test.IsNil(t, err)
	test.IsEqualString(t, string(result.Service()), string(service))
	return result
}

func TestGet(t *testing.T) {
	client := New(hostingconfig.HostingConfig{}, DefaultEndpoints())
	for _, service := range models.AllServices() {
		getUploader(t, client, service)
	}
	_, err := client.Get("invalid")
	test.IsErrorOf(t, err, ErrUpload)
	test.IsEqualString(t, DefaultEndpoints().Pixeldrain, "https://pixeldrain.com")
}

func TestPixeldrain(t *testing.T) {
	hosting := newFakeHosting(t)
	path := createTestFile(t)
	credentials := hostingconfig.HostingConfig{}
	credentials.Pixeldrain.ApiKey = "secret"
	uploader := getUploader(t, New(credentials, hosting.endpoints()), models.ServicePixeldrain)

	hosting.respond("/api/file", http.StatusCreated, `{"success":true,"id":"abc123"}`)
	link, err := uploader.Upload(context.Background(), path, "test.bin")
	test.IsNil(t, err)
	test.IsEqualString(t, link, hosting.URL+"/u/abc123")
	request := hosting.request("/api/file")
	test.IsEqualString(t, request.fileName, "test.bin")
	test.IsEqualString(t, request.content, testContent)
	test.ContainsString(t, request.fields["_field"], `name="file"`)
	test.IsEqualString(t, request.auth, "Basic OnNlY3JldA==")

	hosting.respond("/api/file", http.StatusOK, `{"success":true,"id":"abc123"}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)

	hosting.respond("/api/file", http.StatusCreated, `{"success":true}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
	test.ContainsString(t, err.Error(), "does not contain id")

	hosting.respond("/api/file", http.StatusCreated, `not json`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
	test.ContainsString(t, err.Error(), "malformed response")

	_, err = uploader.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), "missing")
	test.IsErrorOf(t, err, ErrUpload)
}

func TestGofile(t *testing.T) {
	hosting := newFakeHosting(t)
	path := createTestFile(t)
	credentials := hostingconfig.HostingConfig{}
	credentials.Gofile.ApiKey = "gofiletoken"
	uploader := getUploader(t, New(credentials, hosting.endpoints()), models.ServiceGofile)

	hosting.respond("/gofileapi/getServer", http.StatusOK, `{"status":"ok","data":{"server":"store4"}}`)
	hosting.respond("/gofile/store4/uploadFile", http.StatusOK, `{"status":"ok","data":{"downloadPage":"https://gofile.io/d/xyz"}}`)
	link, err := uploader.Upload(context.Background(), path, "test.bin")
	test.IsNil(t, err)
	test.IsEqualString(t, link, "https://gofile.io/d/xyz")
	request := hosting.request("/gofile/store4/uploadFile")
	test.IsEqualString(t, request.fields["token"], "gofiletoken")
	test.IsEqualString(t, request.content, testContent)

	hosting.respond("/gofile/store4/uploadFile", http.StatusOK, `{"status":"error-rateLimit"}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)

	hosting.respond("/gofile/store4/uploadFile", http.StatusOK, `{"status":"ok","data":{}}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)

	hosting.respond("/gofileapi/getServer", http.StatusOK, `{"status":"ok","data":{"server":"evil.com/x?"}}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
	test.ContainsString(t, err.Error(), "invalid server name")

	hosting.respond("/gofileapi/getServer", http.StatusInternalServerError, `down`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
	test.ContainsString(t, err.Error(), "status code 500")
}

func TestCatbox(t *testing.T) {
	hosting := newFakeHosting(t)
	path := createTestFile(t)
	credentials := hostingconfig.HostingConfig{}
	credentials.Catbox.UserHash = "hash"
	uploader := getUploader(t, New(credentials, hosting.endpoints()), models.ServiceCatbox)

	hosting.respond("/catbox", http.StatusOK, "https://files.catbox.moe/abc.bin\n")
	link, err := uploader.Upload(context.Background(), path, "test.bin")
	test.IsNil(t, err)
	test.IsEqualString(t, link, "https://files.catbox.moe/abc.bin")
	request := hosting.request("/catbox")
	test.IsEqualString(t, request.fields["reqtype"], "fileupload")
	test.IsEqualString(t, request.fields["userhash"], "hash")
	test.ContainsString(t, request.fields["_field"], `name="fileToUpload"`)

	hosting.respond("/catbox", http.StatusOK, "Something went wrong")
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)

	hosting.respond("/catbox", http.StatusPreconditionFailed, strings.Repeat("x", 500))
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
	test.NotContainsString(t, err.Error(), strings.Repeat("x", 101))
}

func TestAnonfiles(t *testing.T) {
	hosting := newFakeHosting(t)
	path := createTestFile(t)
	uploader := getUploader(t, New(hostingconfig.HostingConfig{}, hosting.endpoints()), models.ServiceAnonfiles)

	hosting.respond("/anonfiles", http.StatusOK, `{"status":true,"data":{"file":{"url":{"full":"https://anonfiles.com/abc/test_bin","short":"x"}}}}`)
	link, err := uploader.Upload(context.Background(), path, "test.bin")
	test.IsNil(t, err)
	test.IsEqualString(t, link, "https://anonfiles.com/abc/test_bin")
	test.IsEqualString(t, hosting.request("/anonfiles").auth, "")

	hosting.respond("/anonfiles", http.StatusOK, `{"status":false}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)

	hosting.respond("/anonfiles", http.StatusOK, `{"status":true,"data":{}}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
}

func TestFileio(t *testing.T) {
	hosting := newFakeHosting(t)
	path := createTestFile(t)
	uploader := getUploader(t, New(hostingconfig.HostingConfig{}, hosting.endpoints()), models.ServiceFileio)

	hosting.respond("/fileio", http.StatusOK, `{"success":true,"link":"https://file.io/abc"}`)
	link, err := uploader.Upload(context.Background(), path, "test.bin")
	test.IsNil(t, err)
	test.IsEqualString(t, link, "https://file.io/abc")

	hosting.respond("/fileio", http.StatusOK, `{"success":false,"link":"https://file.io/abc"}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)

	hosting.respond("/fileio", http.StatusOK, `{"success":true}`)
	_, err = uploader.Upload(context.Background(), path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
}

func TestUnreachable(t *testing.T) {
	hosting := newFakeHosting(t)
	endpoints := hosting.endpoints()
	hosting.Close()
	path := createTestFile(t)
	client := New(hostingconfig.HostingConfig{}, endpoints)
	for _, service := range models.AllServices() {
		_, err := getUploader(t, client, service).Upload(context.Background(), path, "test.bin")
		test.IsErrorOf(t, err, ErrUpload)
	}
}

func TestStalledServer(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client := New(hostingconfig.HostingConfig{}, Endpoints{Pixeldrain: server.URL})
	client.httpClient = helper.NewHttpClient(100*time.Millisecond, 100*time.Millisecond)
	start := time.Now()
	_, err := getUploader(t, client, models.ServicePixeldrain).Upload(context.Background(), createTestFile(t), "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
	test.IsEqualBool(t, time.Since(start) < 5*time.Second, true)
}

func TestUnexpectedStatusKeepsValidText(t *testing.T) {
	err := unexpectedStatus(http.StatusBadGateway, strings.Repeat("ü", 150))
	test.IsErrorOf(t, err, ErrUpload)
	test.IsEqualBool(t, utf8.ValidString(err.Error()), true)
	test.ContainsString(t, err.Error(), "status code 502")
	test.NotContainsString(t, err.Error(), strings.Repeat("ü", 101))
}

func TestCancelledContext(t *testing.T) {
	hosting := newFakeHosting(t)
	hosting.respond("/fileio", http.StatusOK, `{"success":true,"link":"https://file.io/abc"}`)
	path := createTestFile(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := getUploader(t, New(hostingconfig.HostingConfig{}, hosting.endpoints()), models.ServiceFileio).Upload(ctx, path, "test.bin")
	test.IsErrorOf(t, err, ErrUpload)
}

func TestIsValidServerName(t *testing.T) {
	for _, name := range []string{"store1", "store-eu-2", "A1"} {
		test.IsEqualBool(t, isValidServerName(name), true)
	}
	for _, name := range []string{"", "a.b", "a/b", "a?b", fmt.Sprintf("%c", 'ü')} {
		test.IsEqualBool(t, isValidServerName(name), false)
	}
}
