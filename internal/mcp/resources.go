package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amarbel-llc/scenemcp/internal/client"
)

type ResourceHandler func(ctx context.Context) (string, error)

type ResourceRegistry struct {
	resources []Resource
	handlers  map[string]ResourceHandler
	bridge    *client.Client
}

func NewResourceRegistry(bridge *client.Client) *ResourceRegistry {
	r := &ResourceRegistry{
		handlers: make(map[string]ResourceHandler),
		bridge:   bridge,
	}
	r.registerBuiltinResources()
	return r
}

func (r *ResourceRegistry) List() []Resource {
	return r.resources
}

func (r *ResourceRegistry) Read(ctx context.Context, uri string) (*ReadResourceResult, error) {
	handler, ok := r.handlers[uri]
	if !ok {
		return nil, fmt.Errorf("unknown resource: %s", uri)
	}

	text, err := handler(ctx)
	if err != nil {
		return nil, err
	}

	return &ReadResourceResult{
		Contents: []ResourceContents{{
			URI:      uri,
			MimeType: "application/json",
			Text:     text,
		}},
	}, nil
}

func (r *ResourceRegistry) register(uri, name, description string, handler ResourceHandler) {
	r.resources = append(r.resources, Resource{
		URI:         uri,
		Name:        name,
		Description: description,
		MimeType:    "application/json",
	})
	r.handlers[uri] = handler
}

// Each resource query is a script that prints exactly one JSON line.

const sceneInfoScript = `import bpy
import json
scene = bpy.context.scene
print(json.dumps({
    "name": scene.name,
    "frame_current": scene.frame_current,
    "frame_start": scene.frame_start,
    "frame_end": scene.frame_end,
    "object_count": len(scene.objects),
}))
`

const objectsListScript = `import bpy
import json
objects = [
    {"name": obj.name, "type": obj.type, "location": list(obj.location)}
    for obj in bpy.context.scene.objects
]
print(json.dumps({"objects": objects, "count": len(objects)}))
`

func (r *ResourceRegistry) registerBuiltinResources() {
	r.register("scene://info", "Scene Information",
		"Summary of the current scene in the host",
		r.queryJSON(sceneInfoScript))
	r.register("objects://list", "Object List",
		"All objects in the current scene",
		r.queryJSON(objectsListScript))
}

func (r *ResourceRegistry) queryJSON(script string) ResourceHandler {
	return func(ctx context.Context) (string, error) {
		var data map[string]any
		if err := r.bridge.ScriptJSON(ctx, script, &data); err != nil {
			return "", err
		}

		pretty, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(pretty), nil
	}
}
