package extract

// DataType classifies an extracted value.
type DataType string

const (
	TypeText DataType = "text"
	TypeURL  DataType = "url"
)

// Result is what a strategy found. Value is empty when Found is false,
// except for the html strategy, which then returns the whole body.
type Result struct {
	Value string   `json:"value"`
	Found bool     `json:"found"`
	Type  DataType `json:"type"`
}

func notFound() Result {
	return Result{Type: TypeText}
}
