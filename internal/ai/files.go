package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"gemini-playground/internal/model"
	"gemini-playground/internal/pkg/doctype"
)

// UploadFile sends localPath to the Files API using the resumable protocol and returns
// a reference usable in later GenerateContent calls.
func (c *Client) UploadFile(ctx context.Context, localPath, displayName string) (model.RemoteDocumentRef, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return model.RemoteDocumentRef{}, fmt.Errorf("read upload file failed: %w", err)
	}
	mimeType, err := doctype.DetectFile(localPath)
	if err != nil {
		return model.RemoteDocumentRef{}, err
	}

	uploadURL, err := c.startUpload(ctx, displayName, mimeType, len(data))
	if err != nil {
		return model.RemoteDocumentRef{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return model.RemoteDocumentRef{}, fmt.Errorf("build upload request failed: %w", err)
	}
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RemoteDocumentRef{}, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RemoteDocumentRef{}, fmt.Errorf("read upload response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return model.RemoteDocumentRef{}, fmt.Errorf("upload response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		File struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			MIMEType    string `json:"mimeType"`
			URI         string `json:"uri"`
		} `json:"file"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return model.RemoteDocumentRef{}, fmt.Errorf("parse upload json failed: %w", err)
	}
	if parsed.File.URI == "" {
		return model.RemoteDocumentRef{}, fmt.Errorf("upload response has no file uri")
	}

	ref := model.RemoteDocumentRef{
		DisplayName: parsed.File.DisplayName,
		URI:         parsed.File.URI,
		MIMEType:    parsed.File.MIMEType,
	}
	if ref.DisplayName == "" {
		ref.DisplayName = displayName
	}
	if ref.MIMEType == "" {
		ref.MIMEType = mimeType
	}
	return ref, nil
}

func (c *Client) startUpload(ctx context.Context, displayName, mimeType string, size int) (string, error) {
	meta := map[string]interface{}{
		"file": map[string]string{"display_name": displayName},
	}
	bodyBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal upload metadata failed: %w", err)
	}

	url := c.baseURL + "/upload/v1beta/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build upload start request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(size))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload start request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload start status %d: %s", resp.StatusCode, string(raw))
	}
	uploadURL := strings.TrimSpace(resp.Header.Get("X-Goog-Upload-URL"))
	if uploadURL == "" {
		return "", fmt.Errorf("upload start response has no upload url")
	}
	return uploadURL, nil
}
