package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrPlanParse reports a reply that holds no usable plan.
var ErrPlanParse = errors.New("unparseable plan")

// aliases maps kind spellings models commonly produce onto the vocabulary.
var aliases = map[string]Kind{
	"goto":        KindNavigate,
	"open":        KindNavigate,
	"visit":       KindNavigate,
	"type_text":   KindType,
	"input":       KindType,
	"fill":        KindType,
	"scroll_down": KindScroll,
	"scroll_up":   KindScroll,
	"sleep":       KindWait,
	"read":        KindExtract,
	"finding":     KindRecordFinding,
	"note":        KindRecordFinding,
	"propose":     KindProposeProduct,
	"screenshot":  KindLook,
	"done":        KindComplete,
	"finish":      KindComplete,
}

// ParsePlan extracts the first JSON object holding a plan from a model reply
// and decodes it. Prose, code fences and reasoning around the object are
// ignored. Individual malformed actions degrade to Extract; a reply with no
// object or no actions yields an error wrapping ErrPlanParse.
func ParsePlan(raw string) (*Plan, error) {
	obj, ok := findPlanObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrPlanParse)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanParse, err)
	}

	rawActions, ok := wire["actions"]
	if !ok {
		return nil, fmt.Errorf("%w: missing actions", ErrPlanParse)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawActions, &items); err != nil {
		// A single object instead of an array is still one action
		items = []json.RawMessage{rawActions}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty actions", ErrPlanParse)
	}

	plan := &Plan{Actions: make([]Action, 0, len(items))}
	var explanation string
	if err := json.Unmarshal(wire["explanation"], &explanation); err == nil {
		plan.Explanation = strings.TrimSpace(explanation)
	}
	if plan.Explanation == "" {
		plan.Explanation = DefaultExplanation
	}

	for _, item := range items {
		plan.Actions = append(plan.Actions, decodeAction(item))
	}
	return plan, nil
}

// findPlanObject returns the first well-formed JSON object in s, preferring
// one that carries an "actions" key.
func findPlanObject(s string) (json.RawMessage, bool) {
	var first json.RawMessage
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		var obj json.RawMessage
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		if err := dec.Decode(&obj); err != nil {
			continue
		}
		var probe map[string]json.RawMessage
		if json.Unmarshal(obj, &probe) != nil {
			continue
		}
		if _, ok := probe["actions"]; ok {
			return obj, true
		}
		if first == nil {
			first = obj
		}
		// Skip past this object; nested objects can't hold the plan
		i += int(dec.InputOffset()) - 1
	}
	return first, first != nil
}

// decodeAction maps one wire action onto the vocabulary. Anything it cannot
// make sense of becomes Extract.
func decodeAction(raw json.RawMessage) Action {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return Extract{}
	}

	name := strings.ToLower(strings.TrimSpace(str(m, "type", "action", "kind")))
	kind := Kind(name)
	if alias, ok := aliases[name]; ok {
		kind = alias
	}

	switch kind {
	case KindNavigate:
		url := str(m, "url", "href", "text")
		if url == "" {
			return Extract{}
		}
		return Navigate{URL: url}
	case KindClick:
		return Click{Selector: str(m, "selector", "element")}
	case KindType:
		return Type{Selector: str(m, "selector", "element"), Text: str(m, "text", "value")}
	case KindScroll:
		dir := strings.ToLower(str(m, "direction"))
		switch {
		case name == "scroll_up":
			dir = ScrollUp
		case dir != ScrollUp:
			dir = ScrollDown
		}
		amount, _ := num(m, "amount", "pixels")
		return Scroll{Direction: dir, Amount: int(math.Max(0, amount))}
	case KindWait:
		if ms, ok := num(m, "duration", "ms", "milliseconds"); ok && ms > 0 {
			return Wait{Duration: time.Duration(ms * float64(time.Millisecond))}
		}
		if s, ok := num(m, "seconds"); ok && s > 0 {
			return Wait{Duration: time.Duration(s * float64(time.Second))}
		}
		return Wait{Duration: DefaultWait}
	case KindExtract:
		return Extract{}
	case KindRecordFinding:
		text := str(m, "text", "finding", "content")
		if text == "" {
			return Extract{}
		}
		return RecordFinding{Text: text}
	case KindProposeProduct:
		title := str(m, "text", "title", "name")
		if title == "" {
			return Extract{}
		}
		return ProposeProduct{
			Title:       title,
			Price:       str(m, "price"),
			Description: str(m, "description"),
			ImageURL:    str(m, "image_url", "imageUrl", "image"),
		}
	case KindLook:
		return Look{Prompt: str(m, "text", "prompt", "question")}
	case KindComplete:
		return Complete{Text: str(m, "text", "result", "answer")}
	case KindFail:
		return Fail{Text: str(m, "text", "reason")}
	default:
		return Extract{}
	}
}

// str returns the first key holding a scalar, rendered as trimmed text.
func str(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// num returns the first key holding a number or numeric string.
func num(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "ms")), 64)
			if err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
