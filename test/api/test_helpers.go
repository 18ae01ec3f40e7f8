package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error mirrors the error half of the API envelope.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Response struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      *Error          `json:"error"`
	StatusCode int             `json:"-"`
}

func (r Response) IsSuccess() bool {
	return r.Success
}

// Object decodes Data as a JSON object. Non-objects yield nil.
func (r Response) Object() map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal(r.Data, &out); err != nil {
		return nil
	}
	return out
}

func (r Response) GetString(key string) string {
	if val, ok := r.Object()[key].(string); ok {
		return val
	}
	return ""
}

func (r Response) Decode(v interface{}) error {
	return json.Unmarshal(r.Data, v)
}

func (r Response) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

// Client talks to a running console, usually an httptest server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

func (c *Client) MakeRequest(method, path string, body interface{}) Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return Response{Error: &Error{Message: fmt.Sprintf("Failed to marshal request body: %v", err)}}
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return Response{Error: &Error{Message: fmt.Sprintf("Failed to create request: %v", err)}}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{Error: &Error{Message: fmt.Sprintf("Request failed: %v", err)}}
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return Response{StatusCode: resp.StatusCode, Error: &Error{Message: fmt.Sprintf("Failed to decode response: %v", err)}}
	}
	response.StatusCode = resp.StatusCode
	return response
}

// Raw fetches path and returns the status, content type and body untouched.
func (c *Client) Raw(path string) (int, string, []byte, error) {
	resp, err := c.HTTP.Get(c.BaseURL + path)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", nil, err
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}
