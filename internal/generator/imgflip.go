package generator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// Captioned: rendered image returned by Imgflip
type Captioned struct {
	URL     string `json:"url"`
	PageURL string `json:"page_url"`
}

type captionResponse struct {
	Success      bool      `json:"success"`
	Data         Captioned `json:"data"`
	ErrorMessage string    `json:"error_message"`
}

// ImgflipClient renders meme templates through the caption_image API.
type ImgflipClient struct {
	httpClient *http.Client
	endpoint   string
	username   string
	password   string
}

// NewImgflipClient creates an ImgflipClient. endpoint defaults to the public API.
func NewImgflipClient(httpClient *http.Client, endpoint, username, password string) *ImgflipClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.RequestTimeout.Imgflip}
	}
	if endpoint == "" {
		endpoint = constants.ContentConfig.ImgflipURL
	}
	return &ImgflipClient{httpClient: httpClient, endpoint: endpoint, username: username, password: password}
}

// Caption renders templateID with one text per box.
func (c *ImgflipClient) Caption(ctx context.Context, templateID string, texts []string) (*Captioned, error) {
	form := url.Values{}
	form.Set("template_id", templateID)
	form.Set("username", c.username)
	form.Set("password", c.password)
	for i, text := range texts {
		form.Set("boxes["+strconv.Itoa(i)+"][text]", text)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build imgflip request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAPIError("imgflip caption", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.NewAPIError("imgflip caption", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError("imgflip caption", resp.StatusCode, fmt.Errorf("unexpected status"))
	}

	var decoded captionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.NewAPIError("imgflip caption", resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if !decoded.Success {
		msg := decoded.ErrorMessage
		if msg == "" {
			msg = "caption failed"
		}
		return nil, errors.NewAPIError("imgflip caption", resp.StatusCode, fmt.Errorf("%s", msg))
	}
	return &decoded.Data, nil
}
