// Package service implements the SPARQL SERVICE client (C10): a single
// HTTP POST per invocation, parsing the SPARQL 1.1 JSON Results format
// (§4.7, §6.4).
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

const (
	contentTypeQuery  = "application/sparql-query"
	acceptJSONResults = "application/sparql-results+json"
)

// StaticConfig is the one piece of file-based configuration this
// engine owns: an optional allow-list of SERVICE endpoints, decoded
// from YAML (mirrors the teacher's use of gopkg.in/yaml.v2 for static
// config blocks). A nil/empty AllowedEndpoints means "no restriction".
type StaticConfig struct {
	AllowedEndpoints []string `yaml:"allowed_endpoints"`
}

// LoadConfig decodes a StaticConfig from YAML.
func LoadConfig(data []byte) (*StaticConfig, error) {
	var cfg StaticConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, sparqlerr.ErrService.New(err.Error())
	}
	return &cfg, nil
}

func (c *StaticConfig) allows(endpoint string) bool {
	if c == nil || len(c.AllowedEndpoints) == 0 {
		return true
	}
	for _, e := range c.AllowedEndpoints {
		if e == endpoint {
			return true
		}
	}
	return false
}

// Client is the exec package's ServiceClient: one HTTP round-trip per
// Query call, with bounded retries and a fixed delay (§4.7).
type Client struct {
	httpClient *http.Client
	config     *StaticConfig
}

// New builds a Client. A nil httpClient falls back to http.DefaultClient;
// a nil config means no endpoint allow-list is enforced.
func New(httpClient *http.Client, config *StaticConfig) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, config: config}
}

// Query POSTs queryText to endpoint and parses the SPARQL 1.1 JSON
// Results response into a stream of solution mappings. Transient
// failures (network, aborted, 5xx) are retried per ctx.Service's fixed
// delay, up to MaxRetries times; anything else returns immediately.
func (c *Client) Query(ctx *sparqlcontext.Context, endpoint, queryText string) (iter.Mapping, error) {
	if !c.config.allows(endpoint) {
		return nil, sparqlerr.ErrService.New("endpoint not in the configured allow-list: " + endpoint)
	}

	cfg := ctx.Service.WithDefaults()
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		rows, err := c.doOnce(ctx, endpoint, queryText, cfg.Timeout)
		if err == nil {
			return iter.FromSlice(rows), nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.RetryDelay):
			case <-ctx.Done():
				return nil, sparqlerr.ErrService.New("context canceled while retrying SERVICE request")
			}
		}
	}
	return nil, lastErr
}

type transientError struct{ error }

func isTransient(err error) bool {
	_, ok := err.(transientError)
	return ok
}

func (c *Client) doOnce(ctx *sparqlcontext.Context, endpoint, queryText string, timeout time.Duration) ([]binding.Mapping, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewBufferString(queryText))
	if err != nil {
		return nil, sparqlerr.ErrService.New("building SERVICE request: " + err.Error())
	}
	req.Header.Set("Content-Type", contentTypeQuery)
	req.Header.Set("Accept", acceptJSONResults)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transientError{sparqlerr.ErrService.New("SERVICE request failed: " + err.Error())}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, transientError{sparqlerr.ErrService.New("SERVICE endpoint returned " + resp.Status)}
	}
	if resp.StatusCode >= 400 {
		return nil, sparqlerr.ErrService.New("SERVICE endpoint returned " + resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sparqlerr.ErrService.New("reading SERVICE response: " + err.Error())
	}
	return parseJSONResults(body)
}

// jsonResults mirrors §6.4's wire shape.
type jsonResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]jsonBindingValue `json:"bindings"`
	} `json:"results"`
}

type jsonBindingValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func parseJSONResults(body []byte) ([]binding.Mapping, error) {
	var parsed jsonResults
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, sparqlerr.ErrService.New("malformed SPARQL JSON results: " + err.Error())
	}

	rows := make([]binding.Mapping, 0, len(parsed.Results.Bindings))
	for _, row := range parsed.Results.Bindings {
		m := binding.Empty()
		for varName, v := range row {
			t, err := jsonValueToTerm(v)
			if err != nil {
				return nil, err
			}
			m = m.With(varName, t)
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func jsonValueToTerm(v jsonBindingValue) (term.Term, error) {
	switch v.Type {
	case "uri":
		return term.NewIRI(v.Value), nil
	case "bnode":
		return term.NewBlankNode(v.Value), nil
	case "literal", "typed-literal":
		if v.Datatype != "" {
			return term.NewTypedLiteral(v.Value, v.Datatype), nil
		}
		if v.Lang != "" {
			return term.NewLangLiteral(v.Value, v.Lang), nil
		}
		return term.NewPlainLiteral(v.Value), nil
	default:
		return nil, sparqlerr.ErrService.New(fmt.Sprintf("unknown binding type %q", v.Type))
	}
}
