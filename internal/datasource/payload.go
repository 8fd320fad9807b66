package datasource

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/mctn/comtracker/pkg/models"
)

// Shape identifies which response layout a source answered with.
type Shape int

const (
	// ShapeEmpty covers every body that carries no article list: null,
	// scalars, objects without an "articles" array, error objects.
	ShapeEmpty Shape = iota
	// ShapeArray is a bare JSON array of articles.
	ShapeArray
	// ShapeEnvelope is an object whose "articles" field holds the list.
	ShapeEnvelope
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEnvelope:
		return "envelope"
	default:
		return "empty"
	}
}

// Payload is a decoded source response.
type Payload struct {
	Shape    Shape
	Articles []models.Article
	// Skipped counts list entries that could not be read as an article.
	Skipped int
}

// DecodePayload normalizes the two response layouts sources use. Bodies
// that are neither an array nor an envelope decode to an empty payload
// rather than an error; only malformed JSON fails. Records are decoded
// one by one so a bad record costs only itself.
func DecodePayload(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Payload{Shape: ShapeEmpty}, nil
	}

	switch trimmed[0] {
	case '[':
		return decodeList(ShapeArray, trimmed)
	case '{':
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return Payload{}, err
		}
		raw, ok := env["articles"]
		raw = bytes.TrimSpace(raw)
		if !ok || len(raw) == 0 || raw[0] != '[' {
			return Payload{Shape: ShapeEmpty}, nil
		}
		return decodeList(ShapeEnvelope, raw)
	default:
		if !json.Valid(trimmed) {
			return Payload{}, errors.New("invalid JSON payload")
		}
		return Payload{Shape: ShapeEmpty}, nil
	}
}

func decodeList(shape Shape, raw []byte) (Payload, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return Payload{}, err
	}

	p := Payload{Shape: shape, Articles: make([]models.Article, 0, len(records))}
	for _, rec := range records {
		if bytes.Equal(bytes.TrimSpace(rec), []byte("null")) {
			p.Skipped++
			continue
		}
		var a models.Article
		if err := json.Unmarshal(rec, &a); err != nil {
			p.Skipped++
			continue
		}
		p.Articles = append(p.Articles, a)
	}
	return p, nil
}
