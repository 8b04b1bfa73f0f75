// Package api talks to the leaderboard service that collects exported
// matches.
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/storage"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

const uploadPath = "/api/v1/matches"

// Client handles communication with the leaderboard service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the leaderboard service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Upload streams an exported match file to the leaderboard as a multipart
// form.
func (c *Client) Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		err := writeForm(writer, file, filePath, c.apiKey, meta)
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.Close()
		<-errCh
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// the server may answer before reading the whole form
		pr.Close()
		<-errCh
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return <-errCh
}

func writeForm(w *multipart.Writer, file io.Reader, filePath, secret string, meta core.UploadMetadata) error {
	fields := [][2]string{
		{"secret", secret},
		{"filename", filepath.Base(filePath)},
		{"matchName", meta.MatchName},
		{"arenaSize", strconv.Itoa(meta.ArenaSize)},
		{"matchDuration", strconv.FormatFloat(meta.Duration, 'f', 3, 64)},
		{"tag", meta.Tag},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}

// UploadExport uploads whatever the backend exported last. Backends that do
// not export files are skipped.
func (c *Client) UploadExport(ctx context.Context, backend storage.Backend) (bool, error) {
	up, ok := backend.(storage.Uploadable)
	if !ok {
		return false, nil
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return false, nil
	}
	if err := c.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		return false, err
	}
	return true, nil
}
