package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

// JSONSchema returns the configuration file's JSON Schema. Property names
// follow the yaml tags, so editors can validate sitechat.yaml directly.
var JSONSchema = sync.OnceValues(func() ([]byte, error) {
	reflector := jsonschema.Reflector{FieldNameTag: "yaml", DoNotReference: true}
	s := reflector.Reflect(new(Config))
	s.Title = "sitechat configuration"
	s.Description = "Website, documents, embeddings, language model and Telegram settings for sitechat."
	return json.MarshalIndent(s, "", "  ")
})
