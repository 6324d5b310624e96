package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/interfaces"
	"Story-Atlas/server/internal/models"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
)

// StoryClient talks to the authoritative story REST API
type StoryClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

var _ interfaces.StoryClient = (*StoryClient)(nil)

// apiEnvelope is the common reply shape of the story API
type apiEnvelope struct {
	Error     *bool           `json:"error"`
	Success   *bool           `json:"success"`
	Message   string          `json:"message"`
	Data      *models.Story   `json:"data"`
	Story     *models.Story   `json:"story"`
	ListStory json.RawMessage `json:"listStory"`
}

// NewStoryClient creates a client for the API described by cfg
func NewStoryClient(cfg config.APIConfig, logger *zap.Logger) *StoryClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &StoryClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger.Named("story-client"),
	}
}

// WithToken returns a client that authenticates list and detail calls with token
func (c *StoryClient) WithToken(token string) *StoryClient {
	cp := *c
	cp.token = token
	return &cp
}

// CreateStory submits a story to the authenticated endpoint
func (c *StoryClient) CreateStory(ctx context.Context, form *interfaces.StoryForm, token string) (*interfaces.CreateStoryResponse, error) {
	return c.createStory(ctx, "/stories", form, token)
}

// CreateStoryAsGuest submits a story to the guest endpoint
func (c *StoryClient) CreateStoryAsGuest(ctx context.Context, form *interfaces.StoryForm) (*interfaces.CreateStoryResponse, error) {
	return c.createStory(ctx, "/stories/guest", form, "")
}

func (c *StoryClient) createStory(ctx context.Context, path string, form *interfaces.StoryForm, token string) (*interfaces.CreateStoryResponse, error) {
	body, contentType, err := encodeForm(form)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	env, err := c.do(req, "create story")
	if err != nil {
		return nil, err
	}

	return &interfaces.CreateStoryResponse{
		Success: env.succeeded(),
		Message: env.Message,
		Data:    env.Data,
	}, nil
}

// ListStories fetches one page of stories
func (c *StoryClient) ListStories(ctx context.Context, page, size int) (*interfaces.ListStoriesResponse, error) {
	return c.listStories(ctx, page, size, false)
}

// ListStoriesWithLocation fetches one page of stories that carry coordinates
func (c *StoryClient) ListStoriesWithLocation(ctx context.Context, page, size int) (*interfaces.ListStoriesResponse, error) {
	return c.listStories(ctx, page, size, true)
}

func (c *StoryClient) listStories(ctx context.Context, page, size int, withLocation bool) (*interfaces.ListStoriesResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if withLocation {
		q.Set("location", "1")
	} else {
		q.Set("location", "0")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stories?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)

	env, err := c.do(req, "list stories")
	if err != nil {
		return nil, err
	}

	resp := &interfaces.ListStoriesResponse{Message: env.Message}
	if len(env.ListStory) == 0 || string(env.ListStory) == "null" {
		return resp, nil
	}
	if err := json.Unmarshal(env.ListStory, &resp.ListStory); err != nil {
		return nil, &interfaces.InvalidResponseError{Reason: "listStory is not a story list"}
	}
	if resp.ListStory == nil {
		resp.ListStory = []models.Story{}
	}
	return resp, nil
}

// GetStory fetches a single story. token overrides the client token when set.
func (c *StoryClient) GetStory(ctx context.Context, id, token string) (*models.Story, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stories/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		c.authorize(req)
	}

	env, err := c.do(req, "get story")
	if err != nil {
		return nil, err
	}
	if env.Story == nil {
		return nil, &interfaces.InvalidResponseError{Reason: "missing story"}
	}
	return env.Story, nil
}

func (c *StoryClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do sends req and classifies the outcome: transport failures become
// ConnectivityError, error replies become ServerError.
func (c *StoryClient) do(req *http.Request, op string) (*apiEnvelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		c.logger.Debug("request failed", zap.String("op", op), zap.Error(err))
		return nil, &interfaces.ConnectivityError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &interfaces.ConnectivityError{Op: op, Err: err}
	}

	var env apiEnvelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &interfaces.ServerError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &interfaces.InvalidResponseError{Reason: fmt.Sprintf("%s: %v", op, decodeErr)}
	}
	if env.Error != nil && *env.Error && env.Success == nil {
		return nil, &interfaces.ServerError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

// succeeded normalizes the legacy {error:false} form into a success flag
func (e *apiEnvelope) succeeded() bool {
	if e.Success != nil {
		return *e.Success
	}
	if e.Error != nil {
		return !*e.Error
	}
	return false
}

func encodeForm(form *interfaces.StoryForm) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	contentType, err := writeForm(body, form)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// writeForm streams form as multipart/form-data and returns its content type
func writeForm(out io.Writer, form *interfaces.StoryForm) (string, error) {
	w := multipart.NewWriter(out)

	if err := w.WriteField("description", form.Description); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}

	if form.Photo != nil {
		filename := form.Photo.Filename
		if filename == "" {
			filename = "photo.jpg"
		}
		contentType := form.Photo.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("failed to write photo: %w", err)
		}
		if _, err := part.Write(form.Photo.Data); err != nil {
			return "", fmt.Errorf("failed to write photo: %w", err)
		}
	}

	if form.Lat != nil && form.Lon != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(*form.Lat, 'f', -1, 64)); err != nil {
			return "", fmt.Errorf("failed to write form: %w", err)
		}
		if err := w.WriteField("lon", strconv.FormatFloat(*form.Lon, 'f', -1, 64)); err != nil {
			return "", fmt.Errorf("failed to write form: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}
	return w.FormDataContentType(), nil
}
