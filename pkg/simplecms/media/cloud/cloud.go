// Package cloud is a client for a hosted media service that accepts
// unsigned uploads through an upload preset and serves the results from a
// delivery host, in the style of Cloudinary.
//
// Deleting objects requires the account's API secret. Without one, Remove
// logs a warning and returns simplecms.ErrRemoveUnsupported.
package cloud

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/progress"
)

// Defaults for the hosted service.
const (
	DefaultAPIBase      = "https://api.cloudinary.com/v1_1"
	DefaultDeliveryHost = "res.cloudinary.com"
)

// Config options for the hosted media client
type Config struct {
	CloudName    string // Account name, part of every URL
	UploadPreset string // Unsigned upload preset
	APIKey       string // Optional; enables signed deletion together with APISecret
	APISecret    string
	APIBase      string // Upload API base URL (default: DefaultAPIBase)
	DeliveryHost string // Host serving uploaded media (default: DefaultDeliveryHost)
	Folder       string // Optional folder for uploaded objects
}

// Signer produces request signatures for authenticated API calls.
type Signer interface {
	APIKey() string
	Sign(params url.Values) string
}

// SecretSigner signs parameters with the account API secret.
type SecretSigner struct {
	Key    string
	Secret string
}

func (s SecretSigner) APIKey() string { return s.Key }

// Sign returns the hex SHA-1 of the sorted name=value pairs joined by '&'
// with the secret appended.
func (s SecretSigner) Sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + s.Secret))
	return hex.EncodeToString(sum[:])
}

// Client implements simplecms.MediaStore against the hosted service
type Client struct {
	config     Config
	httpClient *http.Client
	signer     Signer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithSigner enables signed deletion
func WithSigner(s Signer) Option {
	return func(cl *Client) {
		cl.signer = s
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a new hosted media client
func New(config Config, options ...Option) (*Client, error) {
	if config.CloudName == "" {
		return nil, errors.New("cloud name is required")
	}
	if config.UploadPreset == "" {
		return nil, errors.New("upload preset is required")
	}
	if config.APIBase == "" {
		config.APIBase = DefaultAPIBase
	}
	config.APIBase = strings.TrimRight(config.APIBase, "/")
	if config.DeliveryHost == "" {
		config.DeliveryHost = DefaultDeliveryHost
	}

	c := &Client{
		config:     config,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		now:        time.Now,
	}
	if config.APIKey != "" && config.APISecret != "" {
		c.signer = SecretSigner{Key: config.APIKey, Secret: config.APISecret}
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

type uploadResponse struct {
	SecureURL    string `json:"secure_url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload streams the file as a multipart form to the auto upload endpoint
func (c *Client) Upload(ctx context.Context, file *simplecms.File, kind simplecms.MediaKind, report simplecms.ProgressFunc) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/auto/upload", c.config.APIBase, url.PathEscape(c.config.CloudName))

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(c.writeForm(form, file, report))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return "", &simplecms.UploadError{Kind: kind, Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return "", &simplecms.UploadError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &simplecms.UploadError{Kind: kind, Err: fmt.Errorf("decode upload response (status %d): %w", resp.StatusCode, err)}
	}
	if resp.StatusCode/100 != 2 || body.Error != nil {
		msg := http.StatusText(resp.StatusCode)
		if body.Error != nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return "", &simplecms.UploadError{Kind: kind, Err: fmt.Errorf("upload rejected (status %d): %s", resp.StatusCode, msg)}
	}
	if body.SecureURL == "" {
		return "", &simplecms.UploadError{Kind: kind, Err: errors.New("upload response has no secure_url")}
	}

	if report != nil {
		report(100)
	}
	return body.SecureURL, nil
}

func (c *Client) writeForm(form *multipart.Writer, file *simplecms.File, report simplecms.ProgressFunc) error {
	if err := form.WriteField("upload_preset", c.config.UploadPreset); err != nil {
		return err
	}
	if c.config.Folder != "" {
		if err := form.WriteField("folder", c.config.Folder); err != nil {
			return err
		}
	}
	name := file.Name
	if name == "" {
		name = "upload"
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, progress.NewReader(file.Reader, file.Size, report)); err != nil {
		return err
	}
	return form.Close()
}

type destroyResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// resourceTypes are tried in order when deleting; the derived id does not
// tell an image from a video.
var resourceTypes = []string{"image", "video"}

// Remove deletes the object by public id. Requires a Signer.
func (c *Client) Remove(ctx context.Context, objectID string) error {
	if objectID == "" {
		return errors.New("object id is required")
	}
	if c.signer == nil {
		c.logger.WarnContext(ctx, "media removal needs API credentials, object left in place", "object_id", objectID)
		return simplecms.ErrRemoveUnsupported
	}

	for _, resourceType := range resourceTypes {
		result, err := c.destroy(ctx, resourceType, objectID)
		if err != nil {
			return err
		}
		if result == "ok" {
			return nil
		}
		if result != "not found" {
			return fmt.Errorf("destroy %s: unexpected result %q", objectID, result)
		}
	}
	return fmt.Errorf("object %s: %w", objectID, simplecms.ErrNotFound)
}

func (c *Client) destroy(ctx context.Context, resourceType, publicID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/destroy", c.config.APIBase, url.PathEscape(c.config.CloudName), resourceType)

	params := url.Values{}
	params.Set("public_id", publicID)
	params.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))
	signature := c.signer.Sign(params)
	params.Set("api_key", c.signer.APIKey())
	params.Set("signature", signature)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("destroy %s: %w", publicID, err)
	}
	defer resp.Body.Close()

	var body destroyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("destroy %s: decode response (status %d): %w", publicID, resp.StatusCode, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("destroy %s: %w (status %d)", publicID, simplecms.ErrRemoveUnsupported, resp.StatusCode)
	case resp.StatusCode/100 != 2 || body.Error != nil:
		msg := http.StatusText(resp.StatusCode)
		if body.Error != nil {
			msg = body.Error.Message
		}
		return "", fmt.Errorf("destroy %s: status %d: %s", publicID, resp.StatusCode, msg)
	}
	return body.Result, nil
}

var versionSegment = regexp.MustCompile(`^v[0-9]+$`)

// DerivedID returns the public id of a delivery URL: the path after the
// "upload" segment, without the version segment and the file extension.
// Example: https://res.cloudinary.com/demo/image/upload/v1712/blog/cat.jpg -> blog/cat
func (c *Client) DerivedID(rawURL string) string {
	if !c.Owns(rawURL) {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	uploadIndex := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIndex = i
			break
		}
	}
	if uploadIndex == -1 || uploadIndex == len(parts)-1 {
		return ""
	}

	rest := parts[uploadIndex+1:]
	if len(rest) > 1 && versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}
	last := rest[len(rest)-1]
	rest[len(rest)-1] = strings.TrimSuffix(last, path.Ext(last))
	return strings.Join(rest, "/")
}

// Owns reports whether url is served by the delivery host for this account
func (c *Client) Owns(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, c.config.DeliveryHost) &&
		strings.HasPrefix(u.Path, "/"+c.config.CloudName+"/")
}

var _ simplecms.MediaStore = (*Client)(nil)
