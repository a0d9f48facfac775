package protocol

import "encoding/json"

// ToolContent is a single content block of a tool call result.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolCallResult is the result object of a tools/call response.
type ToolCallResult struct {
	Content           []ToolContent `json:"content"`
	StructuredContent interface{}   `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError,omitempty"`
}

func TextResult(text string) *ToolCallResult {
	return &ToolCallResult{Content: []ToolContent{{Type: "text", Text: text}}}
}

func ErrorResult(text string) *ToolCallResult {
	return &ToolCallResult{Content: []ToolContent{{Type: "text", Text: text}}, IsError: true}
}

func JSONResult(data interface{}) *ToolCallResult {
	encoded, err := json.Marshal(data)
	if err != nil {
		return ErrorResult("failed to encode result: " + err.Error())
	}
	return TextResult(string(encoded))
}

func StructuredResult(data interface{}) *ToolCallResult {
	return &ToolCallResult{StructuredContent: data}
}
