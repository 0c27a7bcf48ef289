package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// OutputSchema reflects the JSON schema a provider must follow to fill out.
// Objects are closed and inlined because strict structured output rejects
// $ref and additional properties.
func OutputSchema(out any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	t := reflect.TypeOf(out)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return r.Reflect(reflect.New(t).Interface())
}

var jsonFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// maxQuoted bounds how much model output ends up in an error message.
const maxQuoted = 200

// DecodeOutput fills out from a structured answer. Models do not always
// honour the requested format, so the answer is also tried without a
// markdown fence, unquoted when it was sent as a JSON string, and finally
// repaired. Every failure wraps ErrMalformedOutput.
func DecodeOutput(raw string, out any) error {
	text := strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if json.Unmarshal([]byte(text), out) == nil {
		return nil
	}

	var inner string
	if json.Unmarshal([]byte(text), &inner) == nil {
		text = strings.TrimSpace(inner)
		if json.Unmarshal([]byte(text), out) == nil {
			return nil
		}
	}

	// "{\n{ ..." is a frequent small-model stutter
	if rest, ok := strings.CutPrefix(text, "{"); ok && strings.HasPrefix(strings.TrimSpace(rest), "{") {
		text = strings.TrimSpace(rest)
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return fmt.Errorf("%w: %v in %q", ErrMalformedOutput, err, quote(text))
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("%w: %v in %q", ErrMalformedOutput, err, quote(repaired))
	}
	return nil
}

func quote(s string) string {
	if len(s) <= maxQuoted {
		return s
	}
	return s[:maxQuoted] + "..."
}
