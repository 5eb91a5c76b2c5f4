package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/jmespath/go-jmespath"
)

// streamQuery selects the first stream whose name equals {{name}}.
const streamQuery = "[?LogStreamName == `{{name}}`] | [0]"

// StreamToken looks up stream in a DescribeLogStreams page and returns its
// upload sequence token. found is false when the page has no such stream; a
// found stream with a nil token is a stream that has never been written to.
func StreamToken(streams []types.LogStream, stream string) (token *string, found bool, err error) {
	if len(streams) == 0 {
		return nil, false, nil
	}
	// SDK types carry no json tags, so the document keys are the Go field names.
	b, err := json.Marshal(streams)
	if err != nil {
		return nil, false, fmt.Errorf("marshal log streams failed: %w", err)
	}
	var input any
	if err := json.Unmarshal(b, &input); err != nil {
		return nil, false, fmt.Errorf("decode log streams failed: %w", err)
	}

	res, err := jmespath.Search(ReplacePlaceholder(streamQuery, "name", stream), input)
	if err != nil {
		return nil, false, fmt.Errorf("jmespath search failed: %w", err)
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil, false, nil
	}
	if s, ok := m["UploadSequenceToken"].(string); ok && s != "" {
		return &s, true, nil
	}
	return nil, true, nil
}

// ReplacePlaceholder replaces all occurrences of {{name}} in expr with value
// encoded as JSON, ready to sit between the backticks of a JMESPath literal.
func ReplacePlaceholder(expr, name, value string) string {
	if name == "" {
		return expr
	}
	qb, _ := json.Marshal(value)
	quoted := strings.ReplaceAll(string(qb), "`", "\\`")
	needle := "{{" + name + "}}"
	return strings.ReplaceAll(expr, needle, quoted)
}
