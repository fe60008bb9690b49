package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptArg is one templated argument of a prompt.
type promptArg struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
}

// promptDoc is a prompt file: YAML frontmatter followed by a text/template body.
type promptDoc struct {
	Name        string      `yaml:"-"`
	Description string      `yaml:"description"`
	Arguments   []promptArg `yaml:"arguments"`
	body        *template.Template
}

// loadPrompts parses every embedded prompt file.
func loadPrompts() ([]*promptDoc, error) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, err
	}

	var docs []*promptDoc
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		content, err := promptFiles.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, err
		}
		doc, err := parsePrompt(strings.TrimSuffix(entry.Name(), ".md"), content)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", entry.Name(), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// parsePrompt splits the frontmatter from the body. A file without
// frontmatter is a prompt with no description or arguments.
func parsePrompt(name string, content []byte) (*promptDoc, error) {
	doc := &promptDoc{Name: name}
	body := content

	if rest, ok := bytes.CutPrefix(content, []byte("---\n")); ok {
		front, after, found := bytes.Cut(rest, []byte("\n---\n"))
		if found {
			if err := yaml.Unmarshal(front, doc); err != nil {
				return nil, err
			}
			body = bytes.TrimLeft(after, "\n")
		}
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(body))
	if err != nil {
		return nil, err
	}
	doc.body = tmpl
	return doc, nil
}

// Render fills the body with args, using defaults for missing arguments.
func (d *promptDoc) Render(args map[string]string) (string, error) {
	values := make(map[string]string, len(d.Arguments))
	for _, a := range d.Arguments {
		values[a.Name] = a.Default
		if v := strings.TrimSpace(args[a.Name]); v != "" {
			values[a.Name] = v
		}
	}
	var sb strings.Builder
	if err := d.body.Execute(&sb, values); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (d *promptDoc) mcpPrompt() *mcp.Prompt {
	p := &mcp.Prompt{Name: d.Name, Description: d.Description}
	for _, a := range d.Arguments {
		p.Arguments = append(p.Arguments, &mcp.PromptArgument{
			Name:        a.Name,
			Description: a.Description,
		})
	}
	return p
}

func (d *promptDoc) handle(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var args map[string]string
	if req != nil && req.Params != nil {
		args = req.Params.Arguments
	}
	text, err := d.Render(args)
	if err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Description: d.Description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}, nil
}

func (s *Server) registerPrompts() error {
	docs, err := loadPrompts()
	if err != nil {
		return err
	}
	for _, d := range docs {
		s.server.AddPrompt(d.mcpPrompt(), d.handle)
	}
	return nil
}
