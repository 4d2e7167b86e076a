// Package storage is a client for the hosted object storage service.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Client struct {
	client *http.Client
	url    string
	key    string
}

// NewClient returns a client for the storage service mounted under url.
func NewClient(url, key string) *Client {
	return &Client{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    strings.TrimSuffix(url, "/"),
		key:    key,
	}
}

// Upload stores an object under bucket/path. Paths are write-once, uploading
// to an existing path is an error.
func (c *Client) Upload(bucket, path string, data []byte, contentType string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.url, bucket, path)

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "upload failed")
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("upload failed: %s", readErrorMessage(resp.Body, resp.StatusCode))
	}

	return nil
}

// PublicURL returns the public address an uploaded object is served from.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.url, bucket, path)
}

func readErrorMessage(body io.Reader, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	raw, err := ioutil.ReadAll(io.LimitReader(body, 4096))
	if err == nil {
		_ = json.Unmarshal(raw, &payload)
	}

	if payload.Message != "" {
		return payload.Message
	}

	if payload.Error != "" {
		return payload.Error
	}

	return fmt.Sprintf("status %d", status)
}
