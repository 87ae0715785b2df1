package units

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/shaiso/agentflow/internal/domain"
)

const (
	// Значения по умолчанию.
	defaultFetchTimeout = 30 * time.Second
	maxResponseBody     = 10 * 1024 * 1024 // 10 MB
)

// Ключи входа fetch.
const (
	inputMethod       = "method"
	inputURL          = "url"
	inputHeaders      = "headers"
	inputBody         = "body"
	inputSelect       = "select"
	inputTimeoutSec   = "timeout_sec"
	inputFailOnStatus = "fail_on_status"
)

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// FetchUnit — агент HTTP запроса и разбора страницы.
//
// Вход:
//
//	{
//	    "method": "GET",
//	    "url": "https://api.example.com/data",
//	    "headers": {"Authorization": "Bearer ..."},
//	    "body": {...},
//	    "select": "items.#.name",   // gjson путь по JSON ответу
//	    "timeout_sec": 10,
//	    "fail_on_status": true      // статус >= 400 считается ошибкой
//	}
//
// Выход:
//
//	{
//	    "status_code": 200,
//	    "headers": {"Content-Type": "application/json", ...},
//	    "body": {...},        // распарсенный JSON или строка
//	    "title": "...",       // для HTML
//	    "selected": [...]     // при заданном select
//	}
type FetchUnit struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetchUnit создаёт новый FetchUnit.
func NewFetchUnit(client *http.Client, timeout time.Duration) *FetchUnit {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &FetchUnit{client: client, timeout: timeout}
}

// fetchConfig — распарсенный вход fetch.
type fetchConfig struct {
	Method       string
	URL          string
	Headers      map[string]string
	Body         any
	Select       string
	Timeout      time.Duration
	FailOnStatus bool
}

// Run выполняет HTTP запрос.
func (u *FetchUnit) Run(ctx context.Context, input map[string]any) (*domain.Result, error) {
	cfg, err := u.parseInput(input)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := u.buildRequest(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnitCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	output, err := u.parseResponse(resp, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.FailOnStatus && resp.StatusCode >= 400 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(fmt.Sprint(output["body"]), 512),
		}
	}

	return domain.Ok(output, fmt.Sprintf("%s %s -> %d", cfg.Method, cfg.URL, resp.StatusCode)), nil
}

// parseInput парсит вход агента.
func (u *FetchUnit) parseInput(input map[string]any) (*fetchConfig, error) {
	cfg := &fetchConfig{
		Method:       strings.ToUpper(GetString(input, inputMethod)),
		URL:          GetString(input, inputURL),
		Headers:      GetMapString(input, inputHeaders),
		Body:         input[inputBody],
		Select:       GetString(input, inputSelect),
		Timeout:      u.timeout,
		FailOnStatus: GetBool(input, inputFailOnStatus, true),
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidInput, NameFetch)
	}

	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}

	if sec := GetInt(input, inputTimeoutSec); sec > 0 {
		cfg.Timeout = time.Duration(sec) * time.Second
	}

	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}

	return cfg, nil
}

// buildRequest создаёт HTTP запрос.
func (u *FetchUnit) buildRequest(ctx context.Context, cfg *fetchConfig) (*http.Request, error) {
	var bodyReader io.Reader

	if cfg.Body != nil {
		bodyBytes, err := serializeBody(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if _, hasContentType := cfg.Headers["Content-Type"]; !hasContentType {
			cfg.Headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// parseResponse читает ответ и строит выход агента.
func (u *FetchUnit) parseResponse(resp *http.Response, cfg *fetchConfig) (map[string]any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	isJSON := strings.Contains(contentType, "json") || (contentType == "" && gjson.ValidBytes(bodyBytes))

	var body any
	if isJSON {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			// Если не удалось распарсить JSON, возвращаем как строку
			body = string(bodyBytes)
			isJSON = false
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	output := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}

	if strings.Contains(contentType, "html") {
		if m := titlePattern.FindSubmatch(bodyBytes); m != nil {
			output["title"] = strings.TrimSpace(html.UnescapeString(string(m[1])))
		}
	}

	if cfg.Select != "" && isJSON {
		if res := gjson.GetBytes(bodyBytes, cfg.Select); res.Exists() {
			output["selected"] = res.Value()
		} else {
			output["selected"] = nil
		}
	}

	return output, nil
}

// serializeBody сериализует body в bytes.
func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// HTTPError — ответ с кодом ошибки.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
