package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pantrypal/inventory"
)

var (
	// fencedPattern matches the body of a markdown code fence, with or without a language tag.
	fencedPattern        = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractPayload pulls the structured part out of a model reply. It unwraps a code fence,
// strips // comments outside strings, removes trailing commas and returns the first complete
// object or array, ignoring prose around it. A bare null answer comes back as "null". When
// no value decodes, the text from the first bracket on is returned so the caller can report
// the decode error; without any bracket it returns "".
func ExtractPayload(content string) string {
	return extractPayload(content, 0)
}

// extractPayload returns the first value opened by prefer ('{' or '['), falling back to the
// first value of the other shape. A zero prefer takes whichever comes first.
func extractPayload(content string, prefer byte) string {
	s := strings.TrimSpace(content)
	if m := fencedPattern.FindStringSubmatch(s); len(m) > 1 {
		s = strings.TrimSpace(m[1])
	}
	if isNull(s) {
		return "null"
	}
	s = cleanJSON(s)

	first := strings.IndexAny(s, "{[")
	if first < 0 {
		return ""
	}

	var fallback string
	for i := first; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		raw, ok := decodeValue(s[i:])
		if !ok {
			continue
		}
		if prefer == 0 || s[i] == prefer {
			return raw
		}
		if fallback == "" {
			fallback = raw
		}
		i += len(raw) - 1
	}
	if fallback != "" {
		return fallback
	}
	return s[first:]
}

// decodeValue decodes the single JSON value at the start of s and returns its text.
func decodeValue(s string) (string, bool) {
	var raw json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&raw); err != nil {
		return "", false
	}
	return string(raw), true
}

func isNull(s string) bool {
	return strings.EqualFold(strings.Trim(s, " \t\r\n'\"`."), "null")
}

func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment removes a trailing // comment that sits outside any string value.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// Recipe is a generated recipe. Servings and times are free text as the model phrases them.
type Recipe struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Servings     flexString `json:"servings"`
	PrepTime     flexString `json:"prep-time"`
	CookTime     flexString `json:"cook-time"`
	Ingredients  []string   `json:"ingredients"`
	Instructions []string   `json:"instructions"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ParseRecipe decodes a recipe reply.
func ParseRecipe(content string) (Recipe, error) {
	payload := extractPayload(content, '{')
	switch payload {
	case "null":
		return Recipe{}, ErrNoSuggestion
	case "":
		return Recipe{}, &ParseError{Kind: KindRecipe, Raw: content, Err: errors.New("no JSON object in reply")}
	}

	var r Recipe
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return Recipe{}, &ParseError{Kind: KindRecipe, Raw: content, Err: err}
	}
	if strings.TrimSpace(r.Name) == "" {
		return Recipe{}, &ParseError{Kind: KindRecipe, Raw: content, Err: errors.New("recipe has no name")}
	}
	return r, nil
}

type suggestedItem struct {
	Name  string          `json:"name"`
	Count flexInt         `json:"count"`
	Cost  inventory.Money `json:"cost"`
	Store string          `json:"store"`
}

// flexInt accepts a JSON integer or a quoted one.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("count %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

// ParseItems decodes an alternatives or complements reply. A single object is accepted as a
// one-item list. Rows without a name are dropped and at most MaxItems are kept.
func ParseItems(kind Kind, content string) ([]inventory.Item, error) {
	payload := extractPayload(content, '[')
	switch payload {
	case "null":
		return nil, ErrNoSuggestion
	case "":
		return nil, &ParseError{Kind: kind, Raw: content, Err: errors.New("no JSON array in reply")}
	}

	var rows []suggestedItem
	if strings.HasPrefix(payload, "{") {
		var one suggestedItem
		if err := json.Unmarshal([]byte(payload), &one); err != nil {
			return nil, &ParseError{Kind: kind, Raw: content, Err: err}
		}
		rows = append(rows, one)
	} else if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, &ParseError{Kind: kind, Raw: content, Err: err}
	}

	items := make([]inventory.Item, 0, MaxItems)
	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		items = append(items, inventory.Item{
			Name:  name,
			Count: int(r.Count),
			Cost:  r.Cost,
			Store: strings.TrimSpace(r.Store),
		})
		if len(items) == MaxItems {
			break
		}
	}
	if len(items) == 0 {
		return nil, ErrNoSuggestion
	}
	return items, nil
}
