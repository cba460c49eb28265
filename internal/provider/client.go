package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

const (
	authenticatePath = "/api/TokenAuth/Authenticate"
	catalogPath      = "/api/services/app/Denemes/GetAll"
	documentPath     = "/api/services/app/Denemes/GetDenemeCevapAnahtariPdf"

	// the provider pages by MaxResultCount; one request fetches everything
	catalogPageSize = "100000"
)

// Credentials are the fixed tenant/username/password triple.
type Credentials struct {
	Tenant   string
	Username string
	Password string
}

// Client talks to the exam-data provider. It holds no token; callers pass
// one per call so the token manager stays the single owner.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, creds Credentials, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "provider"),
	}
}

// Authenticate exchanges the credentials for an access token. Every
// failure wraps domain.ErrAuth.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(authenticateRequest{
		TenancyName:            c.creds.Tenant,
		UserNameOrEmailAddress: c.creds.Username,
		Password:               c.creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authenticatePath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", domain.ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: do request: %v", domain.ErrAuth, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body authenticateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: status %d: decode response: %v", domain.ErrAuth, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !body.Success || body.Result == nil || body.Result.AccessToken == "" {
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrAuth, resp.StatusCode, body.Error.String())
	}

	return body.Result.AccessToken, nil
}

// ListCatalog fetches the full catalog. Entries without an id are dropped.
func (c *Client) ListCatalog(ctx context.Context, accessToken string) ([]domain.Entry, error) {
	query := url.Values{}
	query.Set("Filter", "")
	query.Set("DenemeAdiFilter", "")
	query.Set("BKitapcihiVarmiFilter", "-1")
	query.Set("DenemeKesildimi", "-1")
	query.Set("DonemId", "-1")
	query.Set("SinavTuruId", "-1")
	query.Set("DenemeSetiId", "-1")
	query.Set("YayineviId", "0")
	query.Set("Hazirlayan", "0")
	query.Set("Sorting", "denemeSetiAdi")
	query.Set("SkipCount", "0")
	query.Set("MaxResultCount", catalogPageSize)

	var body catalogResponse
	if err := c.getJSON(ctx, catalogPath, query, accessToken, &body); err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(body.Result.Items))
	for _, item := range body.Result.Items {
		if item.Deneme.ID == "" {
			continue
		}
		entries = append(entries, domain.Entry{
			ID:       string(item.Deneme.ID),
			ExamName: item.Deneme.Name,
			ExamType: item.ExamType,
			Period:   item.Period,
		})
	}
	return entries, nil
}

// DocumentURL resolves an entry id to the secondary URL holding the PDF.
func (c *Client) DocumentURL(ctx context.Context, accessToken, entryID string) (string, error) {
	query := url.Values{}
	query.Set("id", entryID)

	var body documentResponse
	if err := c.getJSON(ctx, documentPath, query, accessToken, &body); err != nil {
		return "", err
	}

	if !body.Success || body.Result == nil {
		return "", fmt.Errorf("%w: document %s: %s", domain.ErrFetch, entryID, body.Error.String())
	}
	if body.Result.FileToken == "" {
		return "", fmt.Errorf("%w: document %s: no file locator in response", domain.ErrFetch, entryID)
	}
	return body.Result.FileToken, nil
}

// Download streams the document at locator into w. The locator is
// pre-signed, so no token is sent.
func (c *Client) Download(ctx context.Context, locator string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build download request: %v", domain.ErrFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: download: %v", domain.ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%w: download: unexpected status code: %d", domain.ErrFetch, resp.StatusCode)
	}

	n, err := io.Copy(tagWrites(w), resp.Body)
	if err != nil {
		var werr *writeError
		if errors.As(err, &werr) {
			return n, fmt.Errorf("%w: %v", domain.ErrFileIO, werr.err)
		}
		return n, fmt.Errorf("%w: read document: %v", domain.ErrFetch, err)
	}
	return n, nil
}

// getJSON performs an authenticated GET. 401 maps to domain.ErrUnauthorized,
// everything else that goes wrong to domain.ErrFetch.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, accessToken string, dest any) error {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	c.logger.DebugContext(ctx, "provider request", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrFetch, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, path)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s: unexpected status code: %d", domain.ErrFetch, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrFetch, path, err)
	}
	return nil
}

// writeError tags failures of the destination writer so Download can tell
// a disk problem from a network one.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }

func tagWrites(w io.Writer) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		n, err := w.Write(p)
		if err != nil {
			return n, &writeError{err: err}
		}
		return n, nil
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
