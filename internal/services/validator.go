package services

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Action input schema names.
const (
	SchemaRedeemCode       = "redeem_code"
	SchemaWithdraw         = "withdraw"
	SchemaTransactions     = "transactions"
	SchemaProfile          = "profile"
	SchemaGenerateCode     = "generate_code"
	SchemaViewCodes        = "view_codes"
	SchemaViewWithdrawals  = "view_withdrawals"
	SchemaWithdrawalAction = "withdrawal_action"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrValidation can be used with errors.Is to detect any schema failure.
var ErrValidation = errors.New("validation failed")

// ErrMissingField is returned (wrapping ErrValidation) when a required field is absent.
var ErrMissingField = fmt.Errorf("%w: missing required field", ErrValidation)

// Validator checks interaction inputs against per-action JSON schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded action schemas.
func NewValidator() (*Validator, error) {
	return NewValidatorFS(schemaFS, "schemas")
}

// NewValidatorFS compiles every *.json file in dir; the schema name is the file
// name without its extension.
func NewValidatorFS(fsys fs.FS, dir string) (*Validator, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %q: %w", dir, err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		p := path.Join(dir, e.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", p, err)
		}
		schemas[name], err = jsonschema.CompileString("https://cashback.local/schemas/"+name, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Validate returns nil when input satisfies the named schema.
func (v *Validator) Validate(name string, input map[string]any) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) && missingRequired(verr) {
			return fmt.Errorf("%w: %v", ErrMissingField, err)
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func missingRequired(e *jsonschema.ValidationError) bool {
	if strings.HasSuffix(e.KeywordLocation, "/required") {
		return true
	}
	for _, c := range e.Causes {
		if missingRequired(c) {
			return true
		}
	}
	return false
}
