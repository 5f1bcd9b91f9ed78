package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/crew/internal/config"
)

type stubTool struct {
	name string
	fn   func(args map[string]interface{}) *Result
}

func (t *stubTool) Name() string                        { return t.name }
func (t *stubTool) Description() string                 { return "stub" }
func (t *stubTool) Parameters() map[string]interface{}  { return map[string]interface{}{"type": "object"} }
func (t *stubTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return t.fn(args)
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry()
	res := reg.Execute(context.Background(), "nope", nil)
	if !res.IsError || res.ForLLM != "Unknown tool: nope" {
		t.Errorf("got %q", res.ForLLM)
	}
}

func TestRegistryRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubTool{name: "boom", fn: func(map[string]interface{}) *Result {
		panic("exploded")
	}})
	res := reg.Execute(context.Background(), "boom", nil)
	if !res.IsError || res.ForLLM != "Error: exploded" {
		t.Errorf("got %q", res.ForLLM)
	}
}

func TestRegistryCapsOutput(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubTool{name: "big", fn: func(map[string]interface{}) *Result {
		return NewResult(strings.Repeat("a", config.OutputCap+100))
	}})
	res := reg.Execute(context.Background(), "big", nil)
	if len(res.ForLLM) != config.OutputCap {
		t.Errorf("output length = %d, want %d", len(res.ForLLM), config.OutputCap)
	}
}

func TestRegistryDefsKeepOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		n := name
		reg.Register(&stubTool{name: n, fn: func(map[string]interface{}) *Result { return NewResult(n) }})
	}
	defs := reg.Defs()
	if len(defs) != 3 || defs[0].Name != "c" || defs[1].Name != "a" || defs[2].Name != "b" {
		t.Errorf("defs order wrong: %+v", defs)
	}
}
