package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/promptstyle"
)

// Validator is implemented by response shapes that check their own contents
// after decoding. A validation failure is treated like malformed JSON.
type Validator interface {
	Validate() error
}

var errNoJSON = errors.New("no JSON value in response")

// ExtractJSON returns the outermost JSON object or array in s, tolerating
// markdown fences and chatter around it.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", errNoJSON
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}

func decode(raw string, out any) error {
	body, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(out); err != nil {
		return err
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GenerateJSON asks for a JSON response and decodes it into out. A response
// that does not parse or validate gets one retry with a corrective
// instruction; a second failure surfaces as a provider error wrapping the
// parse error.
func GenerateJSON(ctx context.Context, c Client, op string, req Request, out any) error {
	system := req.System
	req.JSON = true
	req.System = promptstyle.ApplySystem(system, "json")

	raw, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	perr := decode(raw, out)
	if perr == nil {
		return nil
	}

	retry := req
	retry.System = promptstyle.ApplySystem(system, "strict_json")
	retry.Prompt = fmt.Sprintf("%s\n\nYour previous response was rejected: %s\nReturn corrected JSON only.", req.Prompt, perr.Error())
	raw, err = c.Complete(ctx, retry)
	if err != nil {
		return err
	}
	resetValue(out)
	if perr = decode(raw, out); perr != nil {
		return errkind.Provider(op, errkind.Parse(op, perr))
	}
	return nil
}

func resetValue(out any) {
	v := reflect.ValueOf(out)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}
