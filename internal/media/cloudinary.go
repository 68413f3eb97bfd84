package media

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"catalog-api/internal/config"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// CloudinaryStore implements Store against the Cloudinary REST API using
// signed upload and destroy calls. Images travel as base64 data URIs, the
// transport the API expects for in-memory content.
type CloudinaryStore struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// CloudinaryOption customizes the client, mainly for tests.
type CloudinaryOption func(*CloudinaryStore)

// WithBaseURL points the client at an alternate API host.
func WithBaseURL(baseURL string) CloudinaryOption {
	return func(c *CloudinaryStore) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) CloudinaryOption {
	return func(c *CloudinaryStore) { c.httpClient = client }
}

// NewCloudinaryStore creates a Store backed by the configured Cloudinary
// account.
func NewCloudinaryStore(cfg config.CloudinaryConfig, opts ...CloudinaryOption) *CloudinaryStore {
	c := &CloudinaryStore{
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Upload sends the image content to Cloudinary and returns its stable
// identifier and retrieval URL.
func (c *CloudinaryStore) Upload(ctx context.Context, content []byte, folder string) (*Asset, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file content", ErrUploadFailed)
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(content),
		base64.StdEncoding.EncodeToString(content),
	)

	form := url.Values{}
	form.Set("file", dataURI)
	form.Set("folder", folder)
	c.sign(form)

	var result uploadResponse
	if err := c.post(ctx, "/image/upload", form, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if result.PublicID == "" || result.SecureURL == "" {
		return nil, fmt.Errorf("%w: incomplete upload response", ErrUploadFailed)
	}

	return &Asset{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

// Remove deletes a previously uploaded asset by its public id.
func (c *CloudinaryStore) Remove(ctx context.Context, publicID string) error {
	form := url.Values{}
	form.Set("public_id", publicID)
	c.sign(form)

	var result destroyResponse
	if err := c.post(ctx, "/image/destroy", form, &result); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}
	// "not found" is treated as already removed.
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("%w: unexpected result %q", ErrRemoveFailed, result.Result)
	}
	return nil
}

// sign appends timestamp, api_key and the SHA-1 request signature that the
// Cloudinary API requires (all non-transport params sorted by name, joined
// with '&', followed by the API secret).
func (c *CloudinaryStore) sign(form url.Values) {
	form.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))

	params := make([]string, 0, len(form))
	for name := range form {
		if name == "file" || name == "api_key" {
			continue
		}
		params = append(params, name+"="+form.Get(name))
	}
	sort.Strings(params)

	digest := sha1.Sum([]byte(strings.Join(params, "&") + c.apiSecret))
	form.Set("api_key", c.apiKey)
	form.Set("signature", hex.EncodeToString(digest[:]))
}

func (c *CloudinaryStore) post(ctx context.Context, path string, form url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/%s%s", c.baseURL, c.cloudName, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
