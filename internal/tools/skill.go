package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/crew/internal/skills"
)

// LoadSkillTool pulls a skill body into the conversation on demand. The
// system prompt carries only names and descriptions.
type LoadSkillTool struct {
	catalog *skills.Catalog
	onLoad  func(name string)
}

func NewLoadSkillTool(catalog *skills.Catalog, onLoad func(name string)) *LoadSkillTool {
	return &LoadSkillTool{catalog: catalog, onLoad: onLoad}
}

func (t *LoadSkillTool) Name() string { return "load_skill" }
func (t *LoadSkillTool) Description() string {
	return "Load the full instructions of a named skill"
}
func (t *LoadSkillTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Skill name from the catalog",
			},
		},
		"required": []string{"name"},
	}
}

type loadSkillArgs struct {
	Name string `json:"name"`
}

func (t *LoadSkillTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params loadSkillArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Name, "name"); r != nil {
		return r
	}
	body, err := t.catalog.Load(params.Name)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if t.onLoad != nil {
		t.onLoad(params.Name)
	}
	return NewResult(body)
}
