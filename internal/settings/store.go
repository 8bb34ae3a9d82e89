// internal/settings/store.go
package settings

import (
	"context"
	"fmt"

	"afterevent-mailer/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// Store persists the singleton dispatch settings record. The daily run only
// reads; Save exists for out-of-band administration.
type Store interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

// recordSchema guards the stored JSON record. A record that fails the schema
// is treated the same as a missing one: the caller falls back to defaults.
const recordSchema = `{
	"type": "object",
	"properties": {
		"enabled": {"type": "boolean"},
		"subject": {"type": "string", "minLength": 1},
		"body": {"type": "string", "minLength": 1}
	},
	"required": ["enabled", "subject", "body"],
	"additionalProperties": false
}`

func validateRecord(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(recordSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return err
	}
	if !result.Valid() {
		return fmt.Errorf("settings record: %s", result.Errors()[0].String())
	}
	return nil
}
