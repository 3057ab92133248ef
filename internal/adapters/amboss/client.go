package amboss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBase = "https://api.amboss.space/graphql"

	// La API no documenta límites; nos quedamos muy por debajo.
	requestsPerSec = 5
	burst          = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// ErrGraphQL se devuelve cuando la respuesta trae un array "errors" no vacío.
var ErrGraphQL = errors.New("graphql error")

// Client es el cliente GraphQL de Amboss Magma con rate limiting.
// Las lecturas se reintentan con backoff; las mutaciones nunca.
type Client struct {
	http    *http.Client
	base    string
	token   string
	limiter *rate.Limiter
}

// NewClient crea un Client. Si base está vacío usa el endpoint de producción.
func NewClient(base, token string, timeout time.Duration) *Client {
	if base == "" {
		base = defaultBase
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		base:    base,
		token:   token,
		limiter: rate.NewLimiter(requestsPerSec, burst),
	}
}

// HasToken devuelve true si hay un token de API configurado.
func (c *Client) HasToken() bool {
	return strings.TrimSpace(c.token) != ""
}

// query ejecuta una lectura con reintentos.
func (c *Client) query(ctx context.Context, op, doc string, vars map[string]any, out any) error {
	return c.do(ctx, op, doc, vars, out, maxRetries)
}

// mutate ejecuta una escritura sin reintentos: un create repetido duplicaría ofertas.
func (c *Client) mutate(ctx context.Context, op, doc string, vars map[string]any, out any) error {
	return c.do(ctx, op, doc, vars, out, 0)
}

func (c *Client) do(ctx context.Context, op, doc string, vars map[string]any, out any, retries int) error {
	body, err := json.Marshal(gqlRequest{OperationName: op, Query: doc, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	var env gqlResponse
	err = c.doWithRetry(ctx, retries, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		return c.http.Do(req)
	}, &env)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%s: %w: %s", op, ErrGraphQL, strings.Join(msgs, "; "))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s: empty data", op)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 y 5xx se reintentan hasta retries veces; cualquier otro 4xx falla de inmediato.
func (c *Client) doWithRetry(ctx context.Context, retries int, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == retries {
				return fmt.Errorf("request failed after %d retries: %w", retries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == retries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, retries)
			}
			slog.Warn("amboss request retry", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", retries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
