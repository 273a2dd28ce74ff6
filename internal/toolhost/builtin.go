package toolhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/searchkit/redsearch/internal/redsearch"
)

// Deps bundles the collaborators behind the builtin tool surface.
type Deps struct {
	// Searcher backs the reddit_search tool. Required.
	Searcher redsearch.Searcher
}

// NewBuiltinRegistry registers the builtin tool surface:
//   - hello: a greeting tool, useful as a connectivity check
//   - reddit_search: paginated keyword search over Reddit
func NewBuiltinRegistry(deps Deps) (*Registry, error) {
	if deps.Searcher == nil {
		return nil, fmt.Errorf("NewBuiltinRegistry: Searcher is nil")
	}
	r := NewRegistry()

	helloSchema := json.RawMessage(`{
		"type":"object",
		"properties":{
			"name":{"type":"string"}
		},
		"required":["name"]
	}`)
	if err := r.Register(Definition{
		Name:         "hello",
		SemVer:       "v1.0.0",
		Description:  "Return a greeting message",
		JSONSchema:   helloSchema,
		Capabilities: []string{"greeting"},
		Handler: func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
			}
			name := strings.TrimSpace(in.Name)
			if name == "" {
				return nil, fmt.Errorf("%w: missing name", ErrInvalidArgs)
			}
			out := struct {
				Message string `json:"message"`
			}{Message: fmt.Sprintf("Hello, %s! Welcome to the redsearch tool server.", name)}
			return json.Marshal(out)
		},
	}); err != nil {
		return nil, err
	}

	searchSchema := json.RawMessage(`{
		"type":"object",
		"properties":{
			"query":{"type":"string"},
			"sort":{"type":"string"},
			"timeframe":{"type":"string"},
			"return_mode":{"type":"string"},
			"max_results":{"type":"integer"},
			"output_dir":{"type":"string"},
			"modifiers":{"type":"object"}
		}
	}`)
	if err := r.Register(Definition{
		Name:         "reddit_search",
		SemVer:       "v1.0.0",
		Description:  "Search Reddit posts with pagination; deliver results inline or as a JSON file",
		JSONSchema:   searchSchema,
		Capabilities: []string{"search"},
		Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Query      string          `json:"query"`
				Sort       string          `json:"sort"`
				Timeframe  string          `json:"timeframe"`
				ReturnMode string          `json:"return_mode"`
				MaxResults int             `json:"max_results"`
				OutputDir  string          `json:"output_dir"`
				Modifiers  json.RawMessage `json:"modifiers"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
			}
			mods, err := decodeModifiers(in.Modifiers)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
			}
			resp, err := deps.Searcher.Search(ctx, redsearch.SearchRequest{
				Query:      in.Query,
				Sort:       redsearch.Sort(in.Sort),
				Timeframe:  redsearch.Timeframe(in.Timeframe),
				ReturnMode: redsearch.ReturnMode(in.ReturnMode),
				MaxResults: in.MaxResults,
				OutputDir:  in.OutputDir,
				Modifiers:  mods,
			})
			if err != nil {
				return nil, err
			}
			return json.Marshal(resp)
		},
	}); err != nil {
		return nil, err
	}

	return r, nil
}

// decodeModifiers reads a JSON object into an ordered modifier slice. A plain
// map would lose document order, which is observable in the built query, so
// the object is walked token by token instead.
func decodeModifiers(raw json.RawMessage) ([]redsearch.Modifier, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("modifiers must be an object")
	}
	var mods []redsearch.Modifier
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		if n, ok := val.(json.Number); ok {
			val = n.String()
		}
		mods = append(mods, redsearch.Modifier{Key: key, Value: val})
	}
	return mods, nil
}
