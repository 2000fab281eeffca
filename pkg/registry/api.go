package registry

import (
	"context"
	"fmt"
)

// WhoamiResponse is the payload of GET /api/v0/whoami.
type WhoamiResponse struct {
	User string `json:"user"`
}

// PublishRequest is the body of POST /api/v0/publish/{name}.
type PublishRequest struct {
	Code string `json:"code"`
}

// PublishResponse identifies the version the registry created.
type PublishResponse struct {
	Author  string `json:"author"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DownloadResponse carries a module's source and the version it belongs to.
type DownloadResponse struct {
	Author  string `json:"author"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Code    string `json:"code"`
}

// ModuleInfoResponse is the registry's metadata for a module.
// Latest is nil when no version has been published yet.
type ModuleInfoResponse struct {
	Author      string  `json:"author"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latest      *string `json:"latest"`
}

func (WhoamiResponse) requiredFields() []string { return []string{"user"} }

func (PublishResponse) requiredFields() []string {
	return []string{"author", "name", "version"}
}

func (DownloadResponse) requiredFields() []string {
	return []string{"author", "name", "version", "code"}
}

// Latest is optional: absent and null both mean nothing is published.
func (ModuleInfoResponse) requiredFields() []string {
	return []string{"author", "name", "description"}
}

// Endpoint path templates, appended verbatim to the base address.
const (
	pathWhoami   = "/api/v0/whoami"
	pathPublish  = "/api/v0/publish/%s"
	pathDownload = "/api/v0/dl/%s/%s"
	pathInfo     = "/api/v0/info/%s"
)

// VerifySession asks the registry which user the current session token
// belongs to. Without a token the registry answers with an error envelope.
func (c *Client) VerifySession(ctx context.Context) (string, error) {
	resp, err := Get[WhoamiResponse](ctx, c, c.base+pathWhoami)
	if err != nil {
		return "", err
	}
	return resp.User, nil
}

// PublishModule uploads code as a new version of the module name.
func (c *Client) PublishModule(ctx context.Context, name, code string) (*PublishResponse, error) {
	url := c.base + fmt.Sprintf(pathPublish, name)
	resp, err := Post[PublishResponse](ctx, c, url, PublishRequest{Code: code})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DownloadModule fetches one version of a module.
func (c *Client) DownloadModule(ctx context.Context, module, version string) (*DownloadResponse, error) {
	url := c.base + fmt.Sprintf(pathDownload, module, version)
	resp, err := Get[DownloadResponse](ctx, c, url)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryModule fetches a module's metadata.
func (c *Client) QueryModule(ctx context.Context, module string) (*ModuleInfoResponse, error) {
	url := c.base + fmt.Sprintf(pathInfo, module)
	resp, err := Get[ModuleInfoResponse](ctx, c, url)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
