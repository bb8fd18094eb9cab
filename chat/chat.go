// Package chat builds the JSON text components used by chat, disconnect,
// sign and window title fields.
package chat

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const empty = `{"text":""}`

// Text returns the component {"text": s} with s escaped.
func Text(s string) string {
	out, err := sjson.Set(empty, "text", s)
	if err != nil {
		return empty
	}

	return out
}

// Plain extracts the text of a component. A value that is not a JSON
// object is returned as is, with one pair of surrounding quotes removed.
func Plain(s string) string {
	if gjson.Valid(s) {
		v := gjson.Parse(s)
		if v.IsObject() {
			return v.Get("text").String()
		}

		if v.Type == gjson.String {
			return v.String()
		}
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}
