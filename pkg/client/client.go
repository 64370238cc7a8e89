// Package client is a Go SDK for the taskboard HTTP API. Client wraps the
// endpoints; Controller adds the session, an optimistic page cache and
// delayed deletes with undo on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) IsAdmin() bool { return u.Role == "ADMIN" }

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type TaskPage struct {
	Data []Task `json:"data"`
	Meta Meta   `json:"meta"`
}

type NewTask struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

type Owner struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AdminTask is a row of GET /admin/tasks.
type AdminTask struct {
	Task
	User Owner `json:"user"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("taskboard: %d %s", e.Status, e.Message)
}

// Client is safe for concurrent use.
type Client struct {
	base string
	hc   *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for the API rooted at baseURL. A nil hc uses a client
// with a 15s timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Register(ctx context.Context, email, password string, name *string) (*User, error) {
	in := struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     *string `json:"name,omitempty"`
	}{email, password, name}
	var u User
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login does not store the token; see SetToken or Controller.Login.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateTask(ctx context.Context, in NewTask) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ListTasks(ctx context.Context, q Query) (*TaskPage, error) {
	var p TaskPage
	path := "/tasks"
	if v := q.Values().Encode(); v != "" {
		path += "?" + v
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, p Patch) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), p, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminTasks(ctx context.Context) ([]AdminTask, error) {
	var out []AdminTask
	if err := c.do(ctx, http.MethodGet, "/admin/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var eb struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&eb)
		if eb.Message == "" {
			eb.Message = http.StatusText(res.StatusCode)
		}
		return &APIError{Status: res.StatusCode, Message: eb.Message}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Query identifies one cached page of GET /tasks.
type Query struct {
	Page   int
	Limit  int
	Status Status
	Q      string
}

func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	return v
}
