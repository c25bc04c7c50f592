package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archview/archview/mermaid"
	"github.com/archview/archview/resolve"
	"github.com/archview/archview/services/llm"
)

// ErrNothingToRender indicates the model response contained no recognizable
// diagram content. The explanation (if any) is still returned alongside it;
// callers surface this as "nothing to render", not as a hard failure.
var ErrNothingToRender = errors.New("response contains no diagram content")

// GenerationService turns a prompt (optionally enriched with repository
// context) into an immutable, stored DiagramVersion. It owns the pairing
// invariant: a version's node records are only ever resolved against the
// diagram source they were generated with.
type GenerationService struct {
	llmClient  llm.Client
	store      *VersionStore
	normalizer *mermaid.Normalizer
	github     *GitHubClient // optional; nil disables repository context
}

// GenerateRequest carries one generation's inputs.
type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	RepoURL    string `json:"repoUrl,omitempty"`
	Structured bool   `json:"structured,omitempty"`
}

// NewGenerationService wires the generation pipeline together.
func NewGenerationService(client llm.Client, store *VersionStore, normalizer *mermaid.Normalizer, github *GitHubClient) *GenerationService {
	if client == nil {
		slog.Warn("NewGenerationService created with nil LLM client")
	}
	if normalizer == nil {
		normalizer = mermaid.NewNormalizer(mermaid.DefaultDirection, nil)
	}
	return &GenerationService{
		llmClient:  client,
		store:      store,
		normalizer: normalizer,
		github:     github,
	}
}

const promptTemplate = `Describe the following system as a Mermaid flowchart.

Rules:
- Output the diagram inside a fenced code block tagged "mermaid".
- Use only these style classes: client, service, database, queue, logic, edge.
- After the diagram, output a fenced code block tagged "json" containing an
  array of node records with fields: id, label, description, technologies,
  relatedComponents. The id of each record must match a node id in the diagram.

%sRequest:
%s`

const structuredPromptTemplate = `Describe the following system as a Mermaid flowchart.

Respond with a single JSON object with these fields:
- "explanation": a short prose explanation of the architecture.
- "diagramSource": Mermaid flowchart source. Use only these style classes:
  client, service, database, queue, logic, edge.
- "nodeDetails": an array of records with fields id, label, description,
  technologies, relatedComponents; each id must match a node id in the diagram.

%sRequest:
%s`

// Generate runs one generation end to end. On success the returned version is
// already persisted. On ErrNothingToRender the returned version carries the
// explanation but no source and is not persisted.
func (g *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*DiagramVersion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}
	if g.llmClient == nil {
		return nil, fmt.Errorf("LLM client is not configured")
	}

	repoContext := ""
	if req.RepoURL != "" {
		if g.github == nil {
			return nil, fmt.Errorf("repository context requested but GitHub client is not configured")
		}
		fetched, err := g.github.FetchRepoContext(ctx, req.RepoURL)
		if err != nil {
			return nil, fmt.Errorf("could not fetch repository context: %w", err)
		}
		repoContext = "Context:\n" + fetched + "\n\n"
	}

	var version *DiagramVersion
	var err error
	if req.Structured {
		version, err = g.generateStructured(ctx, req, repoContext)
	} else {
		version, err = g.generateRaw(ctx, req, repoContext)
	}
	if err != nil {
		return version, err
	}

	version.ID = uuid.NewString()
	version.Prompt = req.Prompt
	version.CreatedAt = time.Now().UTC()
	if g.store != nil {
		if err := g.store.Append(version); err != nil {
			return nil, fmt.Errorf("generated but failed to store version: %w", err)
		}
	}
	slog.Info("Generated diagram version", "id", version.ID, "nodes", len(version.Nodes), "structured", req.Structured)
	return version, nil
}

func (g *GenerationService) generateRaw(ctx context.Context, req GenerateRequest, repoContext string) (*DiagramVersion, error) {
	prompt := fmt.Sprintf(promptTemplate, repoContext, req.Prompt)
	raw, err := g.llmClient.GenerateDiagram(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	res := g.normalizer.Normalize(raw)
	nodes, explanation := extractNodeDetails(res.Explanation)
	if res.DiagramSource == "" {
		return &DiagramVersion{Explanation: explanation}, ErrNothingToRender
	}
	return &DiagramVersion{
		Explanation:   explanation,
		DiagramSource: res.DiagramSource,
		Nodes:         nodes,
	}, nil
}

func (g *GenerationService) generateStructured(ctx context.Context, req GenerateRequest, repoContext string) (*DiagramVersion, error) {
	prompt := fmt.Sprintf(structuredPromptTemplate, repoContext, req.Prompt)
	resp, err := g.llmClient.GenerateDiagramStructured(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.DiagramSource) == "" {
		explanation := ""
		if resp != nil {
			explanation = resp.Explanation
		}
		return &DiagramVersion{Explanation: explanation}, ErrNothingToRender
	}
	// Extraction already happened on the model side: only repair applies.
	return &DiagramVersion{
		Explanation:   resp.Explanation,
		DiagramSource: g.normalizer.Repair(resp.DiagramSource),
		Nodes:         resp.NodeDetails,
	}, nil
}

// ResolveNode resolves a clicked element against the named version's own node
// records, never against another version's. A nil record with a nil error is
// a resolution miss, which is a normal outcome.
func (g *GenerationService) ResolveNode(versionID, elementID, visibleLabel string) (*resolve.NodeRecord, error) {
	if g.store == nil {
		return nil, fmt.Errorf("version store is not configured")
	}
	version, err := g.store.Get(versionID)
	if err != nil {
		return nil, err
	}
	return resolve.Resolve(elementID, visibleLabel, version.Nodes), nil
}

// extractNodeDetails pulls a fenced json block of node records out of the
// explanation text. Models asked for a metadata block alongside the diagram
// put it in the prose; a missing or malformed block just means no records.
func extractNodeDetails(explanation string) ([]resolve.NodeRecord, string) {
	lines := strings.Split(explanation, "\n")
	start, end := -1, -1
	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		if start < 0 {
			if strings.EqualFold(t, "```json") {
				start = i
			}
			continue
		}
		if strings.HasPrefix(t, "```") {
			end = i
			break
		}
	}
	if start < 0 {
		return nil, explanation
	}
	if end < 0 {
		end = len(lines)
	}

	var nodes []resolve.NodeRecord
	body := strings.Join(lines[start+1:end], "\n")
	if err := json.Unmarshal([]byte(body), &nodes); err != nil {
		slog.Warn("Ignoring malformed node details block", "error", err)
		return nil, explanation
	}

	rest := make([]string, 0, len(lines))
	for i, ln := range lines {
		if i >= start && i <= end {
			continue
		}
		rest = append(rest, ln)
	}
	return nodes, strings.TrimSpace(strings.Join(rest, "\n"))
}
