package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// Upload stores the content of r as a new file named name under parentID, or under the
// default folder. It uses a single multipart/related request.
func (c *Client) Upload(ctx context.Context, parentID, name, mimeType string, r io.Reader) (*File, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(metaPart).Encode(map[string]any{
		"name":    name,
		"parents": []string{c.folder(parentID)},
	}); err != nil {
		return nil, fmt.Errorf("failed to encode upload metadata: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(mediaPart, r); err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	params := url.Values{"uploadType": {"multipart"}, "fields": {uploadFields}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/files?"+params.Encode(), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	var f File
	if err := c.do(req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
