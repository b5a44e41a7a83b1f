package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/forceu/uploadrelay/internal/configuration/hostingconfig"
	"github.com/forceu/uploadrelay/internal/environment"
	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/models"
)

// ErrUpload is returned if the hosting service did not accept the file. The orchestrator skips the file
var ErrUpload = errors.New("upload failed")

const (
	// maxResponseSize limits how much of a response body is read
	maxResponseSize = 1024 * 1024
	// idleTimeout aborts a transfer that made no progress
	idleTimeout = 2 * time.Minute
	// responseTimeout is the time a service may take to process an uploaded file
	responseTimeout = 10 * time.Minute
	maxErrorBody    = 100
)

// Uploader transfers a local file to a hosting service and returns the public link
type Uploader interface {
	Service() models.Service
	Upload(ctx context.Context, path, fileName string) (string, error)
}

// Endpoints are the base URLs of the hosting services
type Endpoints struct {
	Pixeldrain string
	GofileApi  string
	// GofileUpload is a format string, %s is replaced with the server returned by the API
	GofileUpload string
	Catbox       string
	Anonfiles    string
	Fileio       string
}

// DefaultEndpoints returns the URLs of the public services
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Pixeldrain:   "https://pixeldrain.com",
		GofileApi:    "https://api.gofile.io",
		GofileUpload: "https://%s.gofile.io/uploadFile",
		Catbox:       "https://catbox.moe/user/api.php",
		Anonfiles:    "https://api.anonfiles.com/upload",
		Fileio:       "https://file.io",
	}
}

// Client creates the uploaders for all services
type Client struct {
	endpoints   Endpoints
	credentials hostingconfig.HostingConfig
	httpClient  *http.Client
}

// New returns a client using the given credentials
func New(credentials hostingconfig.HostingConfig, endpoints Endpoints) *Client {
	return &Client{
		endpoints:   endpoints,
		credentials: credentials,
		httpClient:  helper.NewHttpClient(idleTimeout, responseTimeout),
	}
}

// Get returns the uploader for the service
func (c *Client) Get(service models.Service) (Uploader, error) {
	switch service {
	case models.ServicePixeldrain:
		return &pixeldrain{c}, nil
	case models.ServiceGofile:
		return &gofile{c}, nil
	case models.ServiceCatbox:
		return &catbox{c}, nil
	case models.ServiceAnonfiles:
		return &anonfiles{c}, nil
	case models.ServiceFileio:
		return &fileio{c}, nil
	}
	return nil, fmt.Errorf("%w: unsupported service %q", ErrUpload, service)
}

type formFile struct {
	field    string
	path     string
	fileName string
	fields   map[string]string
}

// postMultipart streams the file as multipart form to url without loading it into memory
func (c *Client) postMultipart(ctx context.Context, url string, form formFile, headers map[string]string) (*http.Response, error) {
	file, err := os.Open(form.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	reader, writer := io.Pipe()
	multipartWriter := multipart.NewWriter(writer)
	go func() {
		defer file.Close()
		writer.CloseWithError(writeForm(multipartWriter, file, form))
	}()

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	r.Header.Set("Content-Type", multipartWriter.FormDataContentType())
	r.Header.Set("User-Agent", "uploadrelay/"+environment.Version)
	for key, value := range headers {
		r.Header.Set(key, value)
	}
	resp, err := c.httpClient.Do(r)
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	return resp, nil
}

func writeForm(writer *multipart.Writer, file io.Reader, form formFile) error {
	for key, value := range form.fields {
		err := writer.WriteField(key, value)
		if err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile(form.field, form.fileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	if err != nil {
		return err
	}
	return writer.Close()
}

func readResponse(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: could not read response: %v", ErrUpload, err)
	}
	return string(content), nil
}

func readJson(resp *http.Response, expectedStatus int, target any) error {
	content, err := readResponse(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != expectedStatus {
		return unexpectedStatus(resp.StatusCode, content)
	}
	err = json.Unmarshal([]byte(content), target)
	if err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUpload, err)
	}
	return nil
}

func unexpectedStatus(status int, body string) error {
	body = strings.TrimSpace(body)
	body = helper.Truncate(body, maxErrorBody)
	return fmt.Errorf("%w: status code %d, response: %s", ErrUpload, status, body)
}

func missingField(field string) error {
	return fmt.Errorf("%w: response does not contain %s", ErrUpload, field)
}
