// Package drive is a small Google Drive v3 REST client. Requests carry the bearer token
// of the connected Google account and are paced by a rate limiter; error responses are
// surfaced as they come back.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/lyfeumbria/manager/internal/config"
)

const (
	FolderMimeType = "application/vnd.google-apps.folder"

	fileFields     = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, webContentLink, parents"
	listFields     = "nextPageToken, files(" + fileFields + ")"
	searchFields   = "files(" + fileFields + ")"
	uploadFields   = "id,name,mimeType,size,createdTime,modifiedTime,webViewLink,webContentLink"
	folderFields   = "id,name,mimeType,createdTime,modifiedTime"
	defaultOrderBy = "modifiedTime desc"
)

type File struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	MimeType       string   `json:"mimeType"`
	Size           string   `json:"size,omitempty"`
	CreatedTime    string   `json:"createdTime"`
	ModifiedTime   string   `json:"modifiedTime"`
	WebViewLink    string   `json:"webViewLink,omitempty"`
	WebContentLink string   `json:"webContentLink,omitempty"`
	Parents        []string `json:"parents,omitempty"`
}

func (f File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

type FileList struct {
	Files         []File `json:"files"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// APIError is a non-2xx answer from Drive.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive api: %s", e.Status)
}

type Options struct {
	APIURL            string
	UploadURL         string
	FolderID          string
	RequestsPerSecond float64
	// Base is the transport below the bearer-token transport. nil means http.DefaultTransport.
	Base http.RoundTripper
}

func OptionsFrom(cfg config.GoogleConfig) Options {
	return Options{
		APIURL:            cfg.GetDriveAPIURL(),
		UploadURL:         cfg.GetDriveUploadURL(),
		FolderID:          cfg.GetDriveFolderID(),
		RequestsPerSecond: cfg.GetDriveRequestsPerSecond(),
	}
}

type Client struct {
	http      *http.Client
	apiURL    string
	uploadURL string
	folderID  string
	limiter   *rate.Limiter
}

// NewClient builds a client whose requests are authorized by ts.
func NewClient(ts oauth2.TokenSource, opts Options) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	folder := opts.FolderID
	if folder == "" {
		folder = "root"
	}
	return &Client{
		http: &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: opts.Base},
		},
		apiURL:    strings.TrimRight(opts.APIURL, "/"),
		uploadURL: strings.TrimRight(opts.UploadURL, "/"),
		folderID:  folder,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// DefaultFolder is the folder used when a call names none.
func (c *Client) DefaultFolder() string {
	return c.folderID
}

// ListFiles lists the non-trashed children of folderID, newest first.
func (c *Client) ListFiles(ctx context.Context, folderID string, pageSize int, pageToken string) (*FileList, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	params := url.Values{
		"q":        {fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(c.folder(folderID)))},
		"pageSize": {strconv.Itoa(pageSize)},
		"fields":   {listFields},
		"orderBy":  {defaultOrderBy},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var list FileList
	if err := c.get(ctx, c.apiURL+"/files?"+params.Encode(), &list); err != nil {
		return nil, err
	}
	if list.Files == nil {
		list.Files = []File{}
	}
	return &list, nil
}

// SearchFiles finds files whose name contains query. An empty folderID searches the whole drive.
func (c *Client) SearchFiles(ctx context.Context, query, folderID string) ([]File, error) {
	q := fmt.Sprintf("name contains '%s' and trashed=false", escapeQuery(query))
	if folderID != "" {
		q = fmt.Sprintf("'%s' in parents and %s", escapeQuery(folderID), q)
	}
	params := url.Values{
		"q":       {q},
		"fields":  {searchFields},
		"orderBy": {defaultOrderBy},
	}

	var list FileList
	if err := c.get(ctx, c.apiURL+"/files?"+params.Encode(), &list); err != nil {
		return nil, err
	}
	if list.Files == nil {
		return []File{}, nil
	}
	return list.Files, nil
}

func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	params := url.Values{"fields": {strings.ReplaceAll(fileFields, " ", "")}}
	var f File
	if err := c.get(ctx, c.apiURL+"/files/"+url.PathEscape(fileID)+"?"+params.Encode(), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) Delete(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiURL+"/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	return c.do(req, nil)
}

// CreateFolder creates a folder under parentID, or under the default folder.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*File, error) {
	body, err := json.Marshal(map[string]any{
		"name":     name,
		"mimeType": FolderMimeType,
		"parents":  []string{c.folder(parentID)},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/files?fields="+url.QueryEscape(folderFields), strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create folder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var f File
	if err := c.do(req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) folder(id string) string {
	if id == "" {
		return c.folderID
	}
	return id
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("drive request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode drive response: %w", err)
	}
	return nil
}

// escapeQuery escapes a value for use inside a single-quoted Drive query string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
