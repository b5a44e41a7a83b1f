package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forceu/uploadrelay/internal/environment"
	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/logging"
	"github.com/forceu/uploadrelay/internal/models"
	"golang.org/x/oauth2"
)

// ErrDispatch is returned if the job could not be triggered on the primary and the fallback ref
var ErrDispatch = errors.New("could not trigger upload job")

// ErrUnauthorised is returned if the API rejected the token
var ErrUnauthorised = errors.New("unauthorised")

const requestTimeout = 30 * time.Second

// Config contains everything needed to reach the workflow
type Config struct {
	ApiUrl       string
	Repo         string
	WorkflowFile string
	Token        string
	DefaultRef   string
	FallbackRef  string
}

// Dispatcher triggers the upload workflow through the workflow_dispatch API
type Dispatcher struct {
	client *http.Client
	config Config
}

type triggerRequest struct {
	Ref    string        `json:"ref"`
	Inputs triggerInputs `json:"inputs"`
}

type triggerInputs struct {
	SessionId    string `json:"session_id"`
	Service      string `json:"service"`
	WorkflowData string `json:"workflow_data"`
}

// New returns a dispatcher authenticating with the token of the config
func New(config Config) *Dispatcher {
	config.ApiUrl = strings.TrimSuffix(config.ApiUrl, "/")
	client := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: config.Token,
		TokenType:   "Bearer",
	}))
	client.Timeout = requestTimeout
	return &Dispatcher{client: client, config: config}
}

// FromEnvironment returns a dispatcher configured by the env variables
func FromEnvironment(env *environment.Environment) *Dispatcher {
	return New(Config{
		ApiUrl:       env.GithubApiUrl,
		Repo:         env.GithubRepo,
		WorkflowFile: env.WorkflowFile,
		Token:        env.GithubToken,
		DefaultRef:   env.DefaultRef,
		FallbackRef:  env.FallbackRef,
	})
}

// Dispatch triggers one job for the payload and returns the ref it was started on.
// If the trigger is rejected on the default ref, it is retried once on the fallback ref.
// Failures are not retried further
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.Payload) (string, error) {
	data, err := payload.ToJson()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	inputs := triggerInputs{
		SessionId:    payload.SessionId,
		Service:      string(payload.Service),
		WorkflowData: data,
	}

	ref := d.resolveDefaultRef(ctx)
	status, err := d.trigger(ctx, ref, inputs)
	if err == nil {
		logging.LogDispatch(payload.SessionId, payload.Service, ref)
		return ref, nil
	}
	if !shouldRetry(status) || d.config.FallbackRef == "" || d.config.FallbackRef == ref {
		return "", err
	}
	logging.LogWarning(fmt.Sprintf("Session %s: %v, retrying on ref %s", payload.SessionId, err, d.config.FallbackRef))
	ref = d.config.FallbackRef
	_, err = d.trigger(ctx, ref, inputs)
	if err != nil {
		return "", err
	}
	logging.LogDispatch(payload.SessionId, payload.Service, ref)
	return ref, nil
}

// shouldRetry returns true for responses that may be caused by an unknown ref.
// Transport errors and rejected credentials are not retried
func shouldRetry(status int) bool {
	if status == 0 || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return false
	}
	return status >= 400
}

// resolveDefaultRef returns the default branch of the repository or the configured default ref,
// if the lookup fails
func (d *Dispatcher) resolveDefaultRef(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.config.ApiUrl+"/repos/"+d.config.Repo, nil)
	helper.Check(err)
	addHeaders(req)
	resp, err := d.client.Do(req)
	if err != nil {
		return d.config.DefaultRef
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return d.config.DefaultRef
	}
	var repo struct {
		DefaultBranch string `json:"default_branch"`
	}
	err = json.NewDecoder(resp.Body).Decode(&repo)
	if err != nil || repo.DefaultBranch == "" {
		return d.config.DefaultRef
	}
	return repo.DefaultBranch
}

// trigger sends the workflow_dispatch request. Returns the status code, or 0 if no response was received
func (d *Dispatcher) trigger(ctx context.Context, ref string, inputs triggerInputs) (int, error) {
	body, err := json.Marshal(triggerRequest{Ref: ref, Inputs: inputs})
	helper.Check(err)
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	url := fmt.Sprintf("%s/repos/%s/actions/workflows/%s/dispatches", d.config.ApiUrl, d.config.Repo, d.config.WorkflowFile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	helper.Check(err)
	addHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent:
		return resp.StatusCode, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return resp.StatusCode, fmt.Errorf("%w: %w", ErrDispatch, ErrUnauthorised)
	}
	return resp.StatusCode, fmt.Errorf("%w: status %d on ref %s%s", ErrDispatch, resp.StatusCode, ref, readMessage(resp.Body))
}

func addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "uploadrelay/"+environment.Version)
}

// readMessage returns the message field of an API error, shortened for display
func readMessage(body io.Reader) string {
	content, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(content) == 0 {
		return ""
	}
	var apiError struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(content, &apiError) != nil || apiError.Message == "" {
		return ""
	}
	return " (" + helper.Truncate(apiError.Message, 100) + ")"
}
