package service

import (
	"context"
	"fmt"
	"sync"

	"reports/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Block Plugin Registry: data sources that seed block payloads
// ─────────────────────────────────────────────────────────────

// BlockPlugin is the contract for data-library collaborators. A plugin owns
// one block type and sees its blocks when they are created and deleted.
type BlockPlugin interface {
	// BlockType returns the block type this plugin handles.
	BlockType() domain.BlockType
	// OnCreate returns the payload a new block should start with. It runs
	// before the block is inserted, so returning an error aborts the insert.
	OnCreate(ctx context.Context, reportID, sectionID string, b domain.Block) (domain.Payload, error)
	// OnDelete is called after a block of this type was removed.
	OnDelete(ctx context.Context, reportID string, b domain.Block) error
}

// MCPToolDef describes a tool that a plugin exposes to the MCP server.
type MCPToolDef struct {
	Name        string                                                        // e.g. "chart_palette"
	Description string                                                        // shown to agents
	InputSchema map[string]any                                                // JSON Schema for parameters
	Destructive bool                                                          // requires human approval
	Handler     func(ctx context.Context, params map[string]any) (any, error) // executes the tool
}

// MCPCapablePlugin extends BlockPlugin with MCP tool declarations.
// Plugins that implement this interface will have their tools auto-registered
// with the MCP server on startup.
type MCPCapablePlugin interface {
	BlockPlugin
	MCPTools() []MCPToolDef
}

// PluginRegistry manages registered block plugins.
type PluginRegistry struct {
	mu      sync.RWMutex
	plugins map[domain.BlockType]BlockPlugin
}

func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{plugins: make(map[domain.BlockType]BlockPlugin)}
}

// Register adds a plugin to the registry. Panics on duplicate registration.
func (r *PluginRegistry) Register(p BlockPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := p.BlockType()
	if _, exists := r.plugins[t]; exists {
		panic(fmt.Sprintf("plugin registry: duplicate registration for block type %q", t))
	}
	r.plugins[t] = p
}

func (r *PluginRegistry) lookup(t domain.BlockType) (BlockPlugin, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[t]
	return p, ok
}

// Seed lets the plugin for b's type fill in the payload of a new block.
// Blocks without a plugin are returned as they are.
func (r *PluginRegistry) Seed(ctx context.Context, reportID, sectionID string, b domain.Block) (domain.Block, error) {
	p, ok := r.lookup(b.Type)
	if !ok {
		return b, nil
	}
	payload, err := p.OnCreate(ctx, reportID, sectionID, b.Clone())
	if err != nil {
		return b, fmt.Errorf("%s plugin: create: %w", b.Type, err)
	}
	if payload == nil {
		return b, nil
	}
	b.Payload = payload
	if err := b.Validate(); err != nil {
		return b, fmt.Errorf("%s plugin: create: %w", b.Type, err)
	}
	return b, nil
}

// OnDelete dispatches a delete lifecycle event to the relevant plugin (if any).
func (r *PluginRegistry) OnDelete(ctx context.Context, reportID string, b domain.Block) error {
	p, ok := r.lookup(b.Type)
	if !ok {
		return nil
	}
	return p.OnDelete(ctx, reportID, b)
}

// ForEach iterates all registered plugins. Used by the MCP server to
// auto-register tools for each plugin type.
func (r *PluginRegistry) ForEach(fn func(BlockPlugin)) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		fn(p)
	}
}
