// Package agent implements the advisory model on top of Gemini.
package agent

import (
	"context"
	"fmt"

	"github.com/etnz/advisory"
	"github.com/etnz/advisory/kb"
	"google.golang.org/genai"
)

const instruction = `
You are a financial planning assistant writing educational advisory plans.

You only ever use the figures given in the request, you never compute or invent new ones.
You only cite the knowledge base documents listed in the request, by their exact ID.
Use the Playbook tool to read a document before relying on it.

Answer with the JSON object requested and nothing else.
`

// Advisor is the expert writing advisory plans. Each request is answered by its own expert,
// whose Playbook tool only reads the documents the request may cite.
type Advisor struct {
	*Expert
	lib *kb.Library
}

// NewAdvisor returns the advisor, able to read the playbooks in lib.
func NewAdvisor(client *genai.Client, model string, lib *kb.Library) *Advisor {
	return &Advisor{Expert: newExpert(client, model, lib), lib: lib}
}

// ForRequest returns the expert answering the request for in.
func (a *Advisor) ForRequest(in *advisory.PlanInputs) advisory.Model {
	ids := make([]string, 0, len(in.KBContext))
	for _, ref := range in.KBContext {
		ids = append(ids, ref.ID)
	}
	e := newExpert(a.Client, a.ModelName, a.lib.Only(ids...))
	e.Name, e.MaxCalls, e.Logger = a.Name, a.MaxCalls, a.Logger
	return e
}

// newExpert returns the expert able to read the playbooks in lib.
//
// The response is plain text because Gemini does not combine function calling with a JSON
// response type. The caller parses the JSON.
func newExpert(client *genai.Client, model string, lib *kb.Library) *Expert {
	tools := []Function{Playbook(lib)}
	return &Expert{
		Name:      "Advisor",
		ModelName: model,
		Client:    client,
		Config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.2),
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(tools)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		},
		Library: NewLibrary(tools),
	}
}

// NewClient creates a Gemini client configured from the environment (GOOGLE_API_KEY, or the
// Vertex AI variables).
func NewClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing Gemini's client: %w", err)
	}
	return client, nil
}

// Playbook returns the function reading a knowledge base document by ID.
func Playbook(lib *kb.Library) *Func {
	const name = "Playbook"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        name,
			Description: `Playbook returns the markdown content of a knowledge base document, by its ID (e.g. KB-001).`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id": {
						Type:        genai.TypeString,
						Description: "The ID of the document, as listed in the permitted citations.",
					},
				},
				Required: []string{"id"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The document in markdown.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			docID, ok := args["id"].(string)
			if !ok {
				return errorResponse(id, name, fmt.Errorf("argument 'id' is not a string as expected but %T", args["id"]))
			}
			doc, err := lib.Get(docID)
			if err != nil {
				return errorResponse(id, name, err)
			}
			return outputResponse(id, name, doc.Body)
		},
	}
}
