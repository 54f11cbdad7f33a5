package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nine-pos/internal/logging"
	"nine-pos/internal/service"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	DefaultModel  = "gemini-2.0-flash-001"
	maxToolRounds = 5
)

// Agent answers free-text questions from staff by letting Gemini call into
// the inventory, product and report services.
type Agent struct {
	apiKey    string
	model     string
	products  *service.ProductService
	inventory *service.InventoryService
	reports   *service.ReportService
	log       *logrus.Logger
	now       func() time.Time
}

func NewAgent(apiKey, model string, products *service.ProductService, inventory *service.InventoryService, reports *service.ReportService, log *logrus.Logger) *Agent {
	if model == "" {
		model = DefaultModel
	}
	return &Agent{
		apiKey:    apiKey,
		model:     model,
		products:  products,
		inventory: inventory,
		reports:   reports,
		log:       log,
		now:       time.Now,
	}
}

func (a *Agent) systemPrompt(userMessage string) string {
	today := a.now().Format("2006-01-02")
	return fmt.Sprintf(`SYSTEM: Today is %s. You are an Agentic POS Assistant.

	RULES:
	1. UPDATE: If a user asks to update or restock a product by NAME, you must NOT ask them for the ID. Instead:
	   - Call 'check_inventory' to find the ID.
	   - Then call 'update_product_price' or 'restock_product' using that ID.

	2. READ: If a user asks for PRICE, STOCK, or DETAILS of a product:
	   - You MUST call 'check_inventory' to get the full list.
	   - Then read the result to find the specific item and answer the user.

	3. SALES: If the user asks for sales/revenue, use 'get_sales_report'.

	USER: %s`, today, userMessage)
}

func tools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_inventory",
					Description: "Get the full inventory list. Use this to find ANY product details like ID, Name, Price, Category or Stock.",
				},
				{
					Name:        "update_product_price",
					Description: "Update the price of a specific product using its ID",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
							"new_price":  {Type: genai.TypeNumber, Description: "New price"},
						},
						Required: []string{"product_id", "new_price"},
					},
				},
				{
					Name:        "restock_product",
					Description: "Add units to the stock of a product using its ID",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
							"quantity":   {Type: genai.TypeInteger, Description: "Units to add, at least 1"},
						},
						Required: []string{"product_id", "quantity"},
					},
				},
				{
					Name:        "get_sales_report",
					Description: "Get total sales revenue and number of sales for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
			},
		},
	}
}

// Ask runs one question through the model, executing tool calls until the
// model answers in text or maxToolRounds is reached.
func (a *Agent) Ask(ctx context.Context, userMessage string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.Tools = tools()
	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(a.systemPrompt(userMessage)))
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return printResponse(resp), nil
		}

		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			replies = append(replies, genai.FunctionResponse{
				Name:     call.Name,
				Response: a.executeTool(ctx, call.Name, call.Args),
			})
		}
		if resp, err = session.SendMessage(ctx, replies...); err != nil {
			return "", err
		}
	}
	return printResponse(resp), nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// executeTool runs one tool. Failures are reported to the model as an
// "error" field rather than aborting the conversation.
func (a *Agent) executeTool(ctx context.Context, name string, args map[string]any) map[string]any {
	var (
		out map[string]any
		err error
	)
	switch name {
	case "check_inventory":
		out, err = a.checkInventory(ctx)
	case "update_product_price":
		out, err = a.updatePrice(ctx, args)
	case "restock_product":
		out, err = a.restock(ctx, args)
	case "get_sales_report":
		out, err = a.salesReport(ctx, args)
	default:
		err = fmt.Errorf("unknown tool %q", name)
	}
	if err != nil {
		logging.LogError(a.log, "ai", "executeTool", name, args, err)
		return map[string]any{"error": toolError(err)}
	}
	return out
}

// toolError keeps database details away from the model.
func toolError(err error) string {
	var pe *service.PersistenceError
	if errors.As(err, &pe) {
		return "internal error"
	}
	return err.Error()
}

// Tool responses are converted to protobuf Structs, so only plain maps,
// slices and scalars may appear in them.
func (a *Agent) checkInventory(ctx context.Context) (map[string]any, error) {
	products, err := a.products.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]any, 0, len(products))
	for _, p := range products {
		price, _ := p.Price.Float64()
		rows = append(rows, map[string]any{
			"id":       p.ID,
			"name":     p.Name,
			"category": p.Category,
			"stock":    p.Stock,
			"price":    price,
		})
	}
	return map[string]any{"inventory": rows}, nil
}

func (a *Agent) updatePrice(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := intArg(args, "product_id")
	if err != nil {
		return nil, err
	}
	raw, ok := args["new_price"].(float64)
	if !ok {
		return nil, errors.New("new_price must be a number")
	}
	price := decimal.NewFromFloat(raw)
	p, err := a.products.Update(ctx, uint(id), service.ProductUpdate{Price: &price})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "id": p.ID, "new_price": p.Price.StringFixed(2)}, nil
}

func (a *Agent) restock(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := intArg(args, "product_id")
	if err != nil {
		return nil, err
	}
	qty, err := intArg(args, "quantity")
	if err != nil {
		return nil, err
	}
	p, err := a.inventory.Restock(ctx, uint(id), qty)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "restocked", "id": p.ID, "stock": p.Stock}, nil
}

func (a *Agent) salesReport(ctx context.Context, args map[string]any) (map[string]any, error) {
	start, _ := args["start_date"].(string)
	end, _ := args["end_date"].(string)
	totals, err := a.reports.Totals(ctx, service.ReportQuery{Period: service.PeriodCustom, StartDate: start, EndDate: end})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"revenue":     totals.TotalRevenue.StringFixed(2),
		"sales_count": totals.TotalCount,
	}, nil
}

// intArg reads an integer argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key].(float64)
	if !ok || v != float64(int(v)) {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return int(v), nil
}

func printResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I completed the action."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
