package service

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/proppilot/proppilot/internal/repository"
)

//go:embed templates/*.txt
var templateFS embed.FS

// ErrTemplateNotFound is returned when a template exists neither as a
// built-in file nor as an active database row.
var ErrTemplateNotFound = errors.New("message template not found")

// TemplateRenderer fills a named template with booking context.
type TemplateRenderer interface {
	Render(ctx context.Context, name string, data map[string]any) (string, error)
}

// Renderer resolves templates. An active database row wins, so operators can
// override a built-in without a redeploy; the embedded files are the
// fallback that always works.
type Renderer struct {
	messages repository.MessageRepository
}

func NewRenderer(messages repository.MessageRepository) *Renderer {
	return &Renderer{messages: messages}
}

func (r *Renderer) Render(ctx context.Context, name string, data map[string]any) (string, error) {
	body, err := r.templateBody(ctx, name)
	if err != nil {
		return "", err
	}
	tpl, err := template.New(name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var out strings.Builder
	if err := tpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return strings.TrimSpace(out.String()) + "\n", nil
}

func (r *Renderer) templateBody(ctx context.Context, name string) (string, error) {
	tpl, err := r.messages.GetActiveTemplate(ctx, name)
	if err == nil {
		return tpl.Body, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if b, ok := BuiltinTemplateBody(name); ok {
		return b, nil
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// BuiltinTemplateBody returns the embedded body for a built-in template.
func BuiltinTemplateBody(name string) (string, bool) {
	b, err := templateFS.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return string(b), true
}
