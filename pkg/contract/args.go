package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DecodeArgs decodes a JSON argument object into out, using mapstructure tags.
// An empty payload decodes as the empty object.
func DecodeArgs(payload string, out any) error {
	raw := map[string]any{}
	if strings.TrimSpace(payload) != "" {
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidArgs, err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgs, err)
	}
	return nil
}

// EncodeArgs encodes an argument object for a call payload.
func EncodeArgs(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode args: %w", err)
	}
	return string(data), nil
}

// InitArgs are the arguments of the init method.
type InitArgs struct {
	HelloAccount domain.AccountID `mapstructure:"hello_account" json:"hello_account"`
}

// GreetingArgs carry the greeting of change_greeting and batch_actions.
type GreetingArgs struct {
	NewGreeting string `mapstructure:"new_greeting" json:"new_greeting"`
}

// SetGreetingArgs are the arguments the greeting service's set_greeting expects.
type SetGreetingArgs struct {
	Greeting string `mapstructure:"greeting" json:"greeting"`
}

// CollectArgs are the arguments of multiple_contracts_callback.
type CollectArgs struct {
	NumberPromises int `mapstructure:"number_promises" json:"number_promises"`
}
