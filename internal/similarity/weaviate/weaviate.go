// Package weaviate implements similarity.Provider against a Weaviate
// instance over its REST/GraphQL API.
package weaviate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/linnemanlabs/argus/internal/similarity"
)

// className is the Weaviate class holding historical alerts.
const className = "SecurityAlert"

// Client talks to a Weaviate instance.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new Weaviate client for the given endpoint, e.g.
// http://localhost:8090.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data struct {
		Get struct {
			SecurityAlert []struct {
				Rule       string `json:"rule"`
				Priority   string `json:"priority"`
				Source     string `json:"source"`
				Output     string `json:"output"`
				CreatedAt  string `json:"createdAt"`
				Additional struct {
					Certainty float64 `json:"certainty"`
				} `json:"_additional"`
			} `json:"SecurityAlert"`
		} `json:"Get"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Search implements similarity.Provider using a nearText GraphQL query.
func (c *Client) Search(ctx context.Context, query string, limit int, certainty float64) ([]similarity.Neighbor, error) {
	gql := fmt.Sprintf(`{
		Get {
			%s(
				nearText: {concepts: [%s], certainty: %.3f}
				limit: %d
			) {
				rule priority source output createdAt
				_additional { certainty }
			}
		}
	}`, className, strconv.Quote(query), certainty, limit)

	body, err := json.Marshal(graphqlRequest{Query: gql})
	if err != nil {
		return nil, fmt.Errorf("weaviate: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/v1/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("weaviate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weaviate: search failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("weaviate: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weaviate: returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out graphqlResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("weaviate: unmarshal response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("weaviate: graphql error: %s", out.Errors[0].Message)
	}

	neighbors := make([]similarity.Neighbor, 0, len(out.Data.Get.SecurityAlert))
	for _, r := range out.Data.Get.SecurityAlert {
		n := similarity.Neighbor{
			Rule:      r.Rule,
			Priority:  r.Priority,
			Source:    r.Source,
			Output:    r.Output,
			Certainty: r.Additional.Certainty,
		}
		if ts, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			n.CreatedAt = ts
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, nil
}

// Insert implements similarity.Provider via the objects REST endpoint.
func (c *Client) Insert(ctx context.Context, doc *similarity.Document) error {
	body, err := json.Marshal(map[string]any{
		"class": className,
		"properties": map[string]any{
			"rule":      doc.Rule,
			"priority":  doc.Priority,
			"source":    doc.Source,
			"output":    doc.Output,
			"createdAt": doc.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("weaviate: marshal object: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/v1/objects", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("weaviate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weaviate: insert failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weaviate: insert returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
