package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/llm"
	"github.com/irops-ai/tower/pkg/store"
)

// StoreToolExecutor exposes an agent's authorized data queries as tools for
// the tool-call loop. Authorization is enforced here: the model can only
// reach queries on the agent's declared list, and an unknown or unauthorized
// name comes back as an error result for the model to self-correct on.
type StoreToolExecutor struct {
	agentID string
	fetcher store.Fetcher
	queries *config.QueryRegistry
	tables  *config.StoreRegistry
	tools   []llm.Tool
	allowed map[string]*config.QueryDef
	logger  *slog.Logger

	mu      sync.Mutex
	sources []string
}

// NewStoreToolExecutor binds the agent's authorized query names into a tool
// manifest. A name missing from the catalogue or a malformed params schema is
// a programmer error and returned as such.
func NewStoreToolExecutor(agentID string, authorized []string, fetcher store.Fetcher, queries *config.QueryRegistry, tables *config.StoreRegistry) (*StoreToolExecutor, error) {
	e := &StoreToolExecutor{
		agentID: agentID,
		fetcher: fetcher,
		queries: queries,
		tables:  tables,
		allowed: make(map[string]*config.QueryDef, len(authorized)),
		logger:  slog.Default().With("component", "agent", "agent_id", agentID),
	}

	for _, name := range authorized {
		def, err := queries.Get(name)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", agentID, err)
		}
		var schema map[string]any
		if err := json.Unmarshal([]byte(def.ParamsSchema), &schema); err != nil {
			return nil, fmt.Errorf("agent %s: query %s has malformed params schema: %w", agentID, name, err)
		}
		e.allowed[name] = def
		e.tools = append(e.tools, llm.Tool{
			Name:        name,
			Description: def.Description,
			InputSchema: schema,
		})
	}
	return e, nil
}

// Tools returns the agent's tool manifest.
func (e *StoreToolExecutor) Tools() []llm.Tool {
	return e.tools
}

// Sources returns the query names consulted so far, first-use order.
func (e *StoreToolExecutor) Sources() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.sources))
	copy(out, e.sources)
	return out
}

func (e *StoreToolExecutor) recordSource(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.sources {
		if s == name {
			return
		}
	}
	e.sources = append(e.sources, name)
}

// Execute resolves one tool call against the store. Failures are reported
// through the result, never as an error, so the loop keeps running.
func (e *StoreToolExecutor) Execute(ctx context.Context, call llm.ToolCall) llm.ToolResult {
	def, ok := e.allowed[call.Name]
	if !ok {
		e.logger.WarnContext(ctx, "Model requested unauthorized query", "query", call.Name)
		return llm.ToolResult{
			ID:      call.ID,
			Content: fmt.Sprintf("unknown or unauthorized query %q; available: %s", call.Name, e.availableNames()),
			IsError: true,
		}
	}

	e.recordSource(call.Name)
	payload, err := e.dispatch(ctx, call.Name, def, call.Input)
	if err != nil {
		e.logger.WarnContext(ctx, "Query failed", "query", call.Name, "error", err)
		return llm.ToolResult{ID: call.ID, Content: err.Error(), IsError: true}
	}
	return llm.ToolResult{ID: call.ID, Content: payload}
}

func (e *StoreToolExecutor) dispatch(ctx context.Context, name string, def *config.QueryDef, input map[string]any) (string, error) {
	switch def.Kind {
	case config.QueryKindGet:
		return e.runGet(ctx, def, input)
	case config.QueryKindQuery:
		return e.runQuery(ctx, def, input)
	case config.QueryKindScan:
		return e.runScan(ctx, def, input)
	default:
		return "", fmt.Errorf("query %s has unsupported kind %q", name, def.Kind)
	}
}

func (e *StoreToolExecutor) runGet(ctx context.Context, def *config.QueryDef, input map[string]any) (string, error) {
	table, err := e.tables.Table(def.Table)
	if err != nil {
		return "", err
	}

	key := map[string]string{}
	pk, ok := stringArg(input, table.PartitionKey)
	if !ok {
		return "", fmt.Errorf("missing required argument %q", table.PartitionKey)
	}
	key[table.PartitionKey] = pk
	if table.SortKey != "" {
		sk, ok := stringArg(input, table.SortKey)
		if !ok {
			return "", fmt.Errorf("missing required argument %q", table.SortKey)
		}
		key[table.SortKey] = sk
	}

	item, found, err := e.fetcher.Get(ctx, def.Table, key)
	if err != nil {
		return "", err
	}
	if !found {
		return `{"found": false}`, nil
	}
	return encodeJSON(map[string]any{"found": true, "item": item})
}

func (e *StoreToolExecutor) runQuery(ctx context.Context, def *config.QueryDef, input map[string]any) (string, error) {
	idx, err := e.tables.Index(def.Index)
	if err != nil {
		return "", err
	}

	partition, ok := stringArg(input, idx.PartitionKey)
	if !ok {
		return "", fmt.Errorf("missing required argument %q", idx.PartitionKey)
	}

	var opts store.QueryOptions
	if idx.SortKey != "" {
		for _, candidate := range []string{idx.SortKey, "since", "from"} {
			if v, ok := stringArg(input, candidate); ok {
				opts.SortFrom = v
				break
			}
		}
	}

	items, err := e.fetcher.Query(ctx, def.Index, partition, opts)
	if err != nil {
		return "", err
	}
	return encodeJSON(map[string]any{"count": len(items), "items": items})
}

func (e *StoreToolExecutor) runScan(ctx context.Context, def *config.QueryDef, input map[string]any) (string, error) {
	attribute, ok := stringArg(input, "attribute")
	if !ok {
		return "", fmt.Errorf("missing required argument %q", "attribute")
	}
	value, ok := stringArg(input, "value")
	if !ok {
		return "", fmt.Errorf("missing required argument %q", "value")
	}

	items, err := e.fetcher.Scan(ctx, def.Table, attribute, value)
	if err != nil {
		return "", err
	}
	return encodeJSON(map[string]any{"count": len(items), "items": items})
}

func (e *StoreToolExecutor) availableNames() string {
	names, _ := json.Marshal(func() []string {
		out := make([]string, 0, len(e.tools))
		for _, t := range e.tools {
			out = append(out, t.Name)
		}
		return out
	}())
	return string(names)
}

func stringArg(input map[string]any, key string) (string, bool) {
	v, ok := input[key]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return "", false
		}
		return s, true
	case float64:
		return fmt.Sprintf("%v", s), true
	default:
		return "", false
	}
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode query result: %w", err)
	}
	return string(data), nil
}
