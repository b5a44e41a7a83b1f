package uploader

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/forceu/uploadrelay/internal/models"
)

type pixeldrain struct {
	client *Client
}

func (p *pixeldrain) Service() models.Service {
	return models.ServicePixeldrain
}

// Upload requires status 201 and an id in the response
func (p *pixeldrain) Upload(ctx context.Context, path, fileName string) (string, error) {
	base := strings.TrimSuffix(p.client.endpoints.Pixeldrain, "/")
	headers := make(map[string]string)
	if p.client.credentials.Pixeldrain.ApiKey != "" {
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+p.client.credentials.Pixeldrain.ApiKey))
	}
	resp, err := p.client.postMultipart(ctx, base+"/api/file", formFile{field: "file", path: path, fileName: fileName}, headers)
	if err != nil {
		return "", err
	}
	var result struct {
		Id string `json:"id"`
	}
	err = readJson(resp, http.StatusCreated, &result)
	if err != nil {
		return "", err
	}
	if result.Id == "" {
		return "", missingField("id")
	}
	return base + "/u/" + url.PathEscape(result.Id), nil
}

type gofile struct {
	client *Client
}

func (g *gofile) Service() models.Service {
	return models.ServiceGofile
}

// Upload first requests a server, then requires status 200, status "ok" and a download page
func (g *gofile) Upload(ctx context.Context, path, fileName string) (string, error) {
	server, err := g.getServer(ctx)
	if err != nil {
		return "", err
	}
	fields := make(map[string]string)
	if g.client.credentials.Gofile.ApiKey != "" {
		fields["token"] = g.client.credentials.Gofile.ApiKey
	}
	uploadUrl := fmt.Sprintf(g.client.endpoints.GofileUpload, server)
	resp, err := g.client.postMultipart(ctx, uploadUrl, formFile{field: "file", path: path, fileName: fileName, fields: fields}, nil)
	if err != nil {
		return "", err
	}
	var result struct {
		Status string `json:"status"`
		Data   struct {
			DownloadPage string `json:"downloadPage"`
		} `json:"data"`
	}
	err = readJson(resp, http.StatusOK, &result)
	if err != nil {
		return "", err
	}
	if result.Status != "ok" {
		return "", fmt.Errorf("%w: status %q", ErrUpload, result.Status)
	}
	if result.Data.DownloadPage == "" {
		return "", missingField("downloadPage")
	}
	return result.Data.DownloadPage, nil
}

func (g *gofile) getServer(ctx context.Context) (string, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(g.client.endpoints.GofileApi, "/")+"/getServer", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	resp, err := g.client.httpClient.Do(r)
	if err != nil {
		return "", fmt.Errorf("%w: could not get server: %v", ErrUpload, err)
	}
	var result struct {
		Status string `json:"status"`
		Data   struct {
			Server string `json:"server"`
		} `json:"data"`
	}
	err = readJson(resp, http.StatusOK, &result)
	if err != nil {
		return "", err
	}
	if !isValidServerName(result.Data.Server) {
		return "", fmt.Errorf("%w: invalid server name %q", ErrUpload, result.Data.Server)
	}
	return result.Data.Server, nil
}

func isValidServerName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '-' {
			return false
		}
	}
	return true
}

type catbox struct {
	client *Client
}

func (c *catbox) Service() models.Service {
	return models.ServiceCatbox
}

// Upload requires status 200 and a link as plain text response
func (c *catbox) Upload(ctx context.Context, path, fileName string) (string, error) {
	fields := map[string]string{"reqtype": "fileupload"}
	if c.client.credentials.Catbox.UserHash != "" {
		fields["userhash"] = c.client.credentials.Catbox.UserHash
	}
	resp, err := c.client.postMultipart(ctx, c.client.endpoints.Catbox, formFile{field: "fileToUpload", path: path, fileName: fileName, fields: fields}, nil)
	if err != nil {
		return "", err
	}
	content, err := readResponse(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", unexpectedStatus(resp.StatusCode, content)
	}
	link := strings.TrimSpace(content)
	if !strings.HasPrefix(link, "http") {
		return "", fmt.Errorf("%w: unexpected response: %s", ErrUpload, link)
	}
	return link, nil
}

type anonfiles struct {
	client *Client
}

func (a *anonfiles) Service() models.Service {
	return models.ServiceAnonfiles
}

// Upload requires status 200, status true and the full url of the file
func (a *anonfiles) Upload(ctx context.Context, path, fileName string) (string, error) {
	resp, err := a.client.postMultipart(ctx, a.client.endpoints.Anonfiles, formFile{field: "file", path: path, fileName: fileName}, nil)
	if err != nil {
		return "", err
	}
	var result struct {
		Status bool `json:"status"`
		Data   struct {
			File struct {
				Url struct {
					Full string `json:"full"`
				} `json:"url"`
			} `json:"file"`
		} `json:"data"`
	}
	err = readJson(resp, http.StatusOK, &result)
	if err != nil {
		return "", err
	}
	if !result.Status {
		return "", fmt.Errorf("%w: service returned status false", ErrUpload)
	}
	if result.Data.File.Url.Full == "" {
		return "", missingField("data.file.url.full")
	}
	return result.Data.File.Url.Full, nil
}

type fileio struct {
	client *Client
}

func (f *fileio) Service() models.Service {
	return models.ServiceFileio
}

// Upload requires status 200, success true and a link
func (f *fileio) Upload(ctx context.Context, path, fileName string) (string, error) {
	resp, err := f.client.postMultipart(ctx, f.client.endpoints.Fileio, formFile{field: "file", path: path, fileName: fileName}, nil)
	if err != nil {
		return "", err
	}
	var result struct {
		Success bool   `json:"success"`
		Link    string `json:"link"`
	}
	err = readJson(resp, http.StatusOK, &result)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("%w: service returned success false", ErrUpload)
	}
	if result.Link == "" {
		return "", missingField("link")
	}
	return result.Link, nil
}
