package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

const (
	ToolCheckSchedule     = "check_schedule"
	ToolGetOrder          = "get_order"
	ToolSearchStock       = "search_stock"
	ToolGetRecommendation = "get_recommendation"
	ToolGetClientData     = "get_client_data"
)

type Config struct {
	OpenTime       string `envconfig:"OPEN_TIME" split_words:"true" default:"14:00"`
	CloseTime      string `envconfig:"CLOSE_TIME" split_words:"true" default:"20:00"`
	StockIndexName string `envconfig:"STOCK_INDEX_NAME" split_words:"true" default:"stock"`
}

// Registry is the closed set of capabilities the model may invoke. Every
// declared tool has an arm in dispatch; adding a tool without one does not
// compile past review because the declaration and the switch live side by
// side in this package.
type Registry struct {
	window    scheduleWindow
	clock     func() time.Time
	extractor contractx.OrderExtractor
	fresh     contractx.Freshener
	index     contractx.SearchIndex
	clients   contractx.ClientDirectory

	stockIndexName string
	schemas        map[string]*gojsonschema.Schema
}

func NewRegistry(
	cfg Config,
	extractor contractx.OrderExtractor,
	fresh contractx.Freshener,
	index contractx.SearchIndex,
	clients contractx.ClientDirectory,
) (*Registry, error) {
	window, err := parseScheduleWindow(cfg.OpenTime, cfg.CloseTime)
	if err != nil {
		return nil, err
	}
	if extractor == nil {
		return nil, fmt.Errorf("%w: order extractor is required", contractx.ErrValidation)
	}
	if fresh == nil {
		return nil, fmt.Errorf("%w: index freshener is required", contractx.ErrValidation)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: search index is required", contractx.ErrValidation)
	}
	if clients == nil {
		clients = PlaceholderDirectory{}
	}

	stockIndexName := cfg.StockIndexName
	if stockIndexName == "" {
		stockIndexName = "stock"
	}

	schemas, err := compileArgumentSchemas()
	if err != nil {
		return nil, err
	}

	return &Registry{
		window:         window,
		clock:          time.Now,
		extractor:      extractor,
		fresh:          fresh,
		index:          index,
		clients:        clients,
		stockIndexName: stockIndexName,
		schemas:        schemas,
	}, nil
}

// WithClock overrides the schedule clock. Tests use a fixed time.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// Infos declares the tool set for the model: names, natural-language
// descriptions, and argument schemas.
func (r *Registry) Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolCheckSchedule,
			Desc: "Responde si la cafeteria esta abierta o cerrada en este momento.",
		},
		{
			Name: ToolGetOrder,
			Desc: "Extrae una lista de productos y cantidades desde el mensaje del cliente.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"message": {Type: schema.String, Desc: "Mensaje original del cliente", Required: true},
			}),
		},
		{
			Name: ToolSearchStock,
			Desc: "Busca stock de un listado de productos.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_names": {
					Type:     schema.Array,
					Desc:     "Nombres de productos a consultar",
					Required: true,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
			}),
		},
		{
			Name: ToolGetRecommendation,
			Desc: "Sugiere alternativas cuando uno o mas productos estan agotados.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"out_of_stock_names": {
					Type:     schema.Array,
					Desc:     "Productos sin stock",
					Required: true,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
			}),
		},
		{
			Name: ToolGetClientData,
			Desc: "Busca direccion y telefono de contacto asociados a la conversacion.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"thread_id": {Type: schema.String, Desc: "Identificador de la conversacion", Required: true},
			}),
		},
	}
}

// Dispatch validates the call against its declared schema and runs the
// matching tool. Every failure mode comes back as a ToolResult with Error
// set; the conversation absorbs it, the turn never aborts here.
func (r *Registry) Dispatch(ctx context.Context, call contractx.ToolCall) contractx.ToolResult {
	// A result always names a tool: the transcript rejects tool entries
	// without one, and a nameless rejection must stay a tool-level error.
	tool := strings.TrimSpace(call.Name)
	if tool == "" {
		tool = "unknown"
	}

	args, err := r.validate(call)
	if err != nil {
		log.Warn().Str("tool", tool).Err(err).Msg("tool call rejected")
		return contractx.ToolResult{ID: call.ID, Tool: tool, Error: err.Error()}
	}

	result, err := r.execute(ctx, call.Name, args)
	if err != nil {
		wrapped := fmt.Errorf("%w: tool=%s: %v", contractx.ErrToolExecution, call.Name, err)
		log.Error().Str("tool", tool).Err(err).Msg("tool execution failed")
		return contractx.ToolResult{ID: call.ID, Tool: tool, Error: wrapped.Error()}
	}

	return contractx.ToolResult{ID: call.ID, Tool: tool, Result: result}
}

// DispatchAll runs one reasoning round's calls in parallel. The calls are
// mutually independent reads; results come back in call order.
func (r *Registry) DispatchAll(ctx context.Context, calls []contractx.ToolCall) []contractx.ToolResult {
	results := make([]contractx.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call contractx.ToolCall) {
			defer wg.Done()
			results[i] = r.Dispatch(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

// execute is the exhaustive match over the closed tool set.
func (r *Registry) execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolCheckSchedule:
		return r.checkSchedule(), nil
	case ToolGetOrder:
		return r.getOrder(ctx, stringArg(args, "message"))
	case ToolSearchStock:
		return r.searchStock(ctx, stringSliceArg(args, "product_names"))
	case ToolGetRecommendation:
		return r.getRecommendation(stringSliceArg(args, "out_of_stock_names")), nil
	case ToolGetClientData:
		return r.getClientData(ctx, stringArg(args, "thread_id"))
	default:
		// validate() already rejected undeclared names.
		return nil, fmt.Errorf("tool %q has no implementation", name)
	}
}

func (r *Registry) validate(call contractx.ToolCall) (map[string]any, error) {
	compiled, ok := r.schemas[call.Name]
	if !ok {
		return nil, fmt.Errorf("%w: tool %q is not declared", contractx.ErrSchema, call.Name)
	}

	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: tool=%s arguments are not a JSON object: %v", contractx.ErrSchema, call.Name, err)
		}
	}

	outcome, err := compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, fmt.Errorf("%w: tool=%s: %v", contractx.ErrSchema, call.Name, err)
	}
	if !outcome.Valid() {
		details := make([]string, 0, len(outcome.Errors()))
		for _, e := range outcome.Errors() {
			details = append(details, e.String())
		}
		return nil, fmt.Errorf("%w: tool=%s: %v", contractx.ErrSchema, call.Name, details)
	}
	return args, nil
}

func compileArgumentSchemas() (map[string]*gojsonschema.Schema, error) {
	raw := map[string]map[string]any{
		ToolCheckSchedule: {
			"type":                 "object",
			"additionalProperties": false,
		},
		ToolGetOrder: {
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"message": map[string]any{"type": "string", "minLength": 1},
			},
			"required": []string{"message"},
		},
		ToolSearchStock: {
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"product_names": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []string{"product_names"},
		},
		ToolGetRecommendation: {
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"out_of_stock_names": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []string{"out_of_stock_names"},
		},
		ToolGetClientData: {
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"thread_id": map[string]any{"type": "string", "minLength": 1},
			},
			"required": []string{"thread_id"},
		},
	}

	compiled := make(map[string]*gojsonschema.Schema, len(raw))
	for name, def := range raw {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", name, err)
		}
		compiled[name] = s
	}
	return compiled, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
