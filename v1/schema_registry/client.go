package schema_registry

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSchemaUnresolvable is returned when a schema identifier cannot be
// resolved: the registry is unreachable, responds with a non-success
// status, or returns a body that cannot be parsed.
var ErrSchemaUnresolvable = errors.New("schema unresolvable")

// Registry provides an interface for resolving and registering schemas in
// a Confluent Schema Registry. It is the blocking collaborator the wire
// decoders call on a schema-cache miss.
type Registry interface {
	// GetSchemaByID retrieves the schema text for a numeric schema ID.
	GetSchemaByID(id int) (string, error)

	// RegisterSchema registers a schema under a subject and returns its ID.
	RegisterSchema(subject, schema string) (int, error)
}

// Config holds configuration for a schema registry client.
type Config struct {
	// URL is the schema registry endpoint (e.g., "http://localhost:8081")
	URL string `yaml:"url" envconfig:"SCHEMA_REGISTRY_URL"`

	// Username for basic auth (optional)
	Username string `yaml:"username" envconfig:"SCHEMA_REGISTRY_USER"`

	// Password for basic auth (optional)
	Password string `yaml:"password" envconfig:"SCHEMA_REGISTRY_PASSWORD"`

	// Timeout for HTTP requests
	Timeout time.Duration `yaml:"timeout" envconfig:"SCHEMA_REGISTRY_TIMEOUT"`
}

// Client is the default implementation of Registry that communicates with
// a Confluent Schema Registry over HTTP.
//
// Resolved schemas are cached by ID for the lifetime of the client; entries
// are never evicted since a published schema ID is immutable. Concurrent
// first lookups of the same ID are collapsed into a single network fetch.
type Client struct {
	url        string
	httpClient *http.Client

	schemaCache      map[int]string
	schemaCacheMutex sync.RWMutex
	fetchGroup       singleflight.Group

	username string
	password string
}

// NewClient creates a new schema registry client.
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("schema registry URL is required")
	}

	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		url: config.URL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		schemaCache: make(map[int]string),
		username:    config.Username,
		password:    config.Password,
	}, nil
}

// GetSchemaByID retrieves a schema from the registry by its ID. The first
// lookup of an ID performs one blocking HTTP fetch; every later lookup is
// served from the in-memory cache.
func (c *Client) GetSchemaByID(id int) (string, error) {
	c.schemaCacheMutex.RLock()
	if schema, ok := c.schemaCache[id]; ok {
		c.schemaCacheMutex.RUnlock()
		return schema, nil
	}
	c.schemaCacheMutex.RUnlock()

	// Collapse concurrent fetches of the same ID into a single winner.
	result, err, _ := c.fetchGroup.Do(strconv.Itoa(id), func() (interface{}, error) {
		schema, err := c.fetchSchema(id)
		if err != nil {
			return "", err
		}
		c.schemaCacheMutex.Lock()
		c.schemaCache[id] = schema
		c.schemaCacheMutex.Unlock()
		return schema, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) fetchSchema(id int) (string, error) {
	url := fmt.Sprintf("%s/schemas/ids/%d", c.url, id)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrSchemaUnresolvable, err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/vnd.schemaregistry.v1+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to fetch schema %d: %v", ErrSchemaUnresolvable, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: registry returned status %d for schema %d: %s",
			ErrSchemaUnresolvable, resp.StatusCode, id, string(body))
	}

	var result struct {
		Schema string `json:"schema"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response for schema %d: %v", ErrSchemaUnresolvable, id, err)
	}
	if result.Schema == "" {
		return "", fmt.Errorf("%w: empty schema body for schema %d", ErrSchemaUnresolvable, id)
	}

	return result.Schema, nil
}

// RegisterSchema registers an Avro schema with the schema registry and
// returns its assigned ID. Used by producers and by round-trip test setups.
func (c *Client) RegisterSchema(subject, schema string) (int, error) {
	url := fmt.Sprintf("%s/subjects/%s/versions", c.url, subject)

	body, err := json.Marshal(map[string]interface{}{"schema": schema})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Content-Type", "application/vnd.schemaregistry.v1+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to register schema: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("schema registry returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.ID, nil
}

// EncodeSchemaID encodes a schema ID in the Confluent wire format
// Format: [magic_byte][schema_id]
// - magic_byte: 0x0 (1 byte)
// - schema_id: 4 bytes (big-endian)
func EncodeSchemaID(schemaID int) []byte {
	buf := make([]byte, 5)
	buf[0] = 0x0 // Magic byte
	binary.BigEndian.PutUint32(buf[1:], uint32(schemaID))
	return buf
}

// DecodeSchemaID decodes a schema ID from the Confluent wire format
// Returns the schema ID and the remaining payload (after the 5-byte header)
func DecodeSchemaID(data []byte) (int, []byte, error) {
	if len(data) < 5 {
		return 0, nil, fmt.Errorf("data too short: expected at least 5 bytes, got %d", len(data))
	}

	if data[0] != 0x0 {
		return 0, nil, fmt.Errorf("invalid magic byte: expected 0x0, got 0x%x", data[0])
	}

	schemaID := int(binary.BigEndian.Uint32(data[1:5]))
	payload := data[5:]

	return schemaID, payload, nil
}
