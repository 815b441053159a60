package agentloop

import "github.com/tidwall/gjson"

// firstStringArg returns the value of the first key in a JSON object of
// tool-call arguments, in document order, if that value is a JSON string.
func firstStringArg(argumentsJSON string) (string, bool) {
	if !gjson.Valid(argumentsJSON) {
		return "", false
	}

	parsed := gjson.Parse(argumentsJSON)
	if !parsed.IsObject() {
		return "", false
	}

	var value string
	var isString bool
	found := false
	parsed.ForEach(func(_, v gjson.Result) bool {
		found = true
		isString = v.Type == gjson.String
		value = v.String()
		return false // stop after the first key
	})

	return value, found && isString
}
