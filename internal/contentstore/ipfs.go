package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
)

const maxErrorBody = 4 << 10

// DefaultUploadTimeout bounds a single Add when Options.UploadTimeout is unset.
const DefaultUploadTimeout = 10 * time.Minute

type Options struct {
	Endpoint      string
	ProjectID     string
	ProjectSecret string
	Pin           bool
	// HTTPClient should carry no overall Timeout; uploads are bounded by
	// UploadTimeout instead.
	HTTPClient    *http.Client
	UploadTimeout time.Duration
	// OnUploaded is called with the number of bytes sent after each
	// successful add.
	OnUploaded func(bytes int64)
}

// Client talks to the IPFS HTTP API (/api/v0/add).
type Client struct {
	base          *url.URL
	httpClient    *http.Client
	projectID     string
	secret        string
	pin           bool
	uploadTimeout time.Duration
	onUploaded    func(int64)
}

func NewClient(opts Options) (*Client, error) {
	base, err := ParseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	uploadTimeout := opts.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = DefaultUploadTimeout
	}
	return &Client{
		base:          base,
		httpClient:    httpClient,
		projectID:     strings.TrimSpace(opts.ProjectID),
		secret:        opts.ProjectSecret,
		pin:           opts.Pin,
		uploadTimeout: uploadTimeout,
		onUploaded:    opts.OnUploaded,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.base.String()
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add streams r to the node as a multipart upload. The body is produced
// while the request is being sent, so memory use does not grow with the
// file size.
func (c *Client) Add(ctx context.Context, name string, r io.Reader) (AddResult, error) {
	if strings.TrimSpace(name) == "" {
		name = "file"
	}
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	src := &countingReader{r: r}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	written := make(chan error, 1)
	go func() {
		err := writeFormFile(mw, name, src)
		_ = pw.CloseWithError(err)
		written <- err
	}()
	// Unblocks the writer if the request ends before the body is drained.
	finish := func() error {
		_ = pr.Close()
		return <-written
	}

	endpoint := c.base.JoinPath("api", "v0", "add")
	q := endpoint.Query()
	q.Set("pin", strconv.FormatBool(c.pin))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), pr)
	if err != nil {
		_ = finish()
		return AddResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.projectID != "" {
		req.SetBasicAuth(c.projectID, c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		_ = finish()
		if src.err != nil {
			return AddResult{}, fmt.Errorf("contentstore: read content: %w", src.err)
		}
		return AddResult{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_ = finish()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return AddResult{}, fmt.Errorf("%w: status %d: %s", ErrUploadFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var added addResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&added)
	if err := finish(); err != nil {
		if src.err != nil {
			return AddResult{}, fmt.Errorf("contentstore: read content: %w", src.err)
		}
		return AddResult{}, fmt.Errorf("%w: body not fully sent: %v", ErrUploadFailed, err)
	}
	if decodeErr != nil {
		return AddResult{}, fmt.Errorf("%w: decode response: %v", ErrUploadFailed, decodeErr)
	}
	id, err := cid.Decode(strings.TrimSpace(added.Hash))
	if err != nil {
		return AddResult{}, fmt.Errorf("%w: %q: %v", ErrInvalidCID, added.Hash, err)
	}
	sent := src.n
	size, err := strconv.ParseInt(added.Size, 10, 64)
	if err != nil {
		size = sent
	}
	if c.onUploaded != nil {
		c.onUploaded(sent)
	}
	return AddResult{Path: id.String(), CID: id, Size: size}, nil
}

func writeFormFile(mw *multipart.Writer, name string, r io.Reader) error {
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// countingReader records how many bytes were read and the first read error.
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && err != io.EOF && c.err == nil {
		c.err = err
	}
	return n, err
}
