package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrInvalidResultPayload indicates carried answers could not be decoded.
	ErrInvalidResultPayload = errors.New("invalid result payload")
	// ErrResultExpired indicates a server-side result reference is no longer stored.
	ErrResultExpired = errors.New("result has expired")
)

const answersSchemaURL = "mem://quiz/answers.schema.json"

const answersSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {"type": "string"}
}`

// ResultTransport carries submitted answers across the redirect between grading and review.
type ResultTransport interface {
	Encode(ctx context.Context, answers map[string]string) (string, error)
	Decode(ctx context.Context, payload string) (map[string]string, error)
}

// QueryResultCodec encodes answers as JSON text suitable for a query parameter.
type QueryResultCodec struct {
	schema *jsonschema.Schema
}

// NewQueryResultCodec compiles the payload schema and returns a codec.
func NewQueryResultCodec() (*QueryResultCodec, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(answersSchemaURL, strings.NewReader(answersSchema)); err != nil {
		return nil, fmt.Errorf("load answers schema: %w", err)
	}
	schema, err := compiler.Compile(answersSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile answers schema: %w", err)
	}
	return &QueryResultCodec{schema: schema}, nil
}

func (c *QueryResultCodec) Encode(_ context.Context, answers map[string]string) (string, error) {
	if answers == nil {
		answers = map[string]string{}
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (c *QueryResultCodec) Decode(_ context.Context, payload string) (map[string]string, error) {
	if strings.TrimSpace(payload) == "" {
		return map[string]string{}, nil
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResultPayload, err)
	}
	if err := c.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResultPayload, err)
	}

	object := raw.(map[string]interface{})
	answers := make(map[string]string, len(object))
	for key, value := range object {
		answers[key] = value.(string)
	}
	return answers, nil
}

// RedisResultStore keeps answers server-side under a random key and carries only the key.
type RedisResultStore struct {
	client *redis.Client
	codec  *QueryResultCodec
	ttl    time.Duration
	prefix string
}

// NewRedisResultStore constructs a Redis-backed transport.
func NewRedisResultStore(client *redis.Client, codec *QueryResultCodec, ttl time.Duration) *RedisResultStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisResultStore{client: client, codec: codec, ttl: ttl, prefix: "quiz:results:"}
}

func (s *RedisResultStore) Encode(ctx context.Context, answers map[string]string) (string, error) {
	payload, err := s.codec.Encode(ctx, answers)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	if err := s.client.Set(ctx, s.prefix+key, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	return key, nil
}

func (s *RedisResultStore) Decode(ctx context.Context, payload string) (map[string]string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return map[string]string{}, nil
	}
	if _, err := uuid.Parse(payload); err != nil {
		return nil, fmt.Errorf("%w: malformed reference", ErrInvalidResultPayload)
	}

	stored, err := s.client.Get(ctx, s.prefix+payload).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResultExpired
		}
		return nil, fmt.Errorf("load result: %w", err)
	}
	return s.codec.Decode(ctx, stored)
}
