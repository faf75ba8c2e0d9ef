/*
Package client provides easy and fast in-process access to the REST api

Instead of marshalling HTTP, the client talks directly to the mux router. The client
is the tool of choice if one request handler needs to call other handlers to fulfill
its task. It is also perfectly suited for unit tests.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"

	"github.com/autotrack-work/backend/core/access"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	identity   string

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithIdentity() adds a verified identity to the request context, bypassing
// the token middleware. WithToken() adds a real bearer token instead.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:            url,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	c.defaultHeaders[key] = value
	return c
}

// WithToken returns a new client with a bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithIdentity returns a new client with a verified identity in the
// request context (this works only directly against the mux router,
// for a normal client use WithToken())
func (c Client) WithIdentity(identity string) Client {
	c.identity = identity
	return c
}

func (c Client) context() context.Context {
	ctx := context.Background()
	if c.identity != "" {
		ctx = access.ContextWithIdentity(ctx, c.identity)
	}
	return ctx
}

func (c Client) do(method, path string, contentType string, body []byte, result interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	r, _ := http.NewRequestWithContext(c.context(), method, c.url+path, reader)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}

	var res *http.Response
	var resBody []byte
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res = rec.Result()
		resBody = rec.Body.Bytes()
	} else {
		if c.token != "" {
			r.Header.Add("Authorization", "Bearer "+c.token)
		}
		var err error
		res, err = c.httpClient.Do(r)
		if err != nil {
			return http.StatusInternalServerError, err
		}
		defer res.Body.Close()
		resBody, _ = io.ReadAll(res.Body)
	}

	status := res.StatusCode
	if status == http.StatusNoContent {
		return status, nil
	}
	if result != nil && len(resBody) > 0 {
		if raw, ok := result.(*[]byte); ok {
			*raw = resBody
		} else if err := json.Unmarshal(resBody, result); err != nil {
			// error envelopes are decoded on a best-effort basis
			if status >= 200 && status < 300 {
				return status, err
			}
		}
	}
	return status, nil
}

func marshalBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(body)
}

// RawGet gets the resource from path. Returns the actual http status code.
//
// result can be a struct, a *[]byte for the raw body, or nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	status, err := c.do(http.MethodGet, path, "", nil, result)
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("GET %s: status %d", path, status)
	}
	return status, err
}

// RawGetStatus gets the resource from path and only reports the status code.
func (c Client) RawGetStatus(path string, result interface{}) (int, error) {
	return c.do(http.MethodGet, path, "", nil, result)
}

// RawPost posts body to path. Expects http.StatusCreated as response,
// otherwise it flags an error. Returns the actual http status code.
//
// body can also be a []byte, result can also be a raw *[]byte or nil.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	data, err := marshalBody(body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	status, err := c.do(http.MethodPost, path, "application/json", data, result)
	if err == nil && status != http.StatusCreated {
		err = fmt.Errorf("POST %s: status %d", path, status)
	}
	return status, err
}

// RawPostStatus posts body to path and only reports the status code.
func (c Client) RawPostStatus(path string, body interface{}, result interface{}) (int, error) {
	data, err := marshalBody(body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return c.do(http.MethodPost, path, "application/json", data, result)
}

// RawPut puts body to path. Expects http.StatusOK or http.StatusNoContent
// as valid responses, otherwise it flags an error. Returns the actual
// http status code.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	data, err := marshalBody(body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	status, err := c.do(http.MethodPut, path, "application/json", data, result)
	if err == nil && status != http.StatusOK && status != http.StatusNoContent {
		err = fmt.Errorf("PUT %s: status %d", path, status)
	}
	return status, err
}

// RawPutStatus puts body to path and only reports the status code.
func (c Client) RawPutStatus(path string, body interface{}, result interface{}) (int, error) {
	data, err := marshalBody(body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return c.do(http.MethodPut, path, "application/json", data, result)
}

// RawDelete deletes the resource at path. Expects http.StatusNoContent as
// response, otherwise it flags an error. Returns the actual http status code.
func (c Client) RawDelete(path string) (int, error) {
	status, err := c.do(http.MethodDelete, path, "", nil, nil)
	if err == nil && status != http.StatusNoContent {
		err = fmt.Errorf("DELETE %s: status %d", path, status)
	}
	return status, err
}

// RawDeleteStatus deletes the resource at path and only reports the status code.
func (c Client) RawDeleteStatus(path string) (int, error) {
	return c.do(http.MethodDelete, path, "", nil, nil)
}

func multipartBody(filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err = fw.Write(data); err != nil {
		return nil, "", err
	}
	if err = mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// PostMultipart posts a single file as multipart form data under the
// form field "file". Returns the actual http status code.
func (c Client) PostMultipart(path string, filename string, data []byte, result interface{}) (int, error) {
	body, contentType, err := multipartBody(filename, data)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return c.do(http.MethodPost, path, contentType, body, result)
}

// PutMultipart puts a single file as multipart form data under the
// form field "file". Returns the actual http status code.
func (c Client) PutMultipart(path string, filename string, data []byte, result interface{}) (int, error) {
	body, contentType, err := multipartBody(filename, data)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return c.do(http.MethodPut, path, contentType, body, result)
}
