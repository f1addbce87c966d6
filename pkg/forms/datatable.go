package forms

import "net/url"

// DatatableRequestSpec validates the paging parameters sent by the
// datatable widget.
var DatatableRequestSpec = &Spec{
	Fields: []Field{
		{Name: "draw", Kind: KindInteger},
		{Name: "start", Kind: KindInteger, Rules: "min=0"},
		{Name: "length", Kind: KindInteger, Rules: "min=1"},
	},
}

// DatatableRequest is a validated paging request.
type DatatableRequest struct {
	Draw   int
	Start  int
	Length int
}

// ParseDatatableRequest binds values to DatatableRequestSpec. The returned
// map is nil when the request is valid.
func ParseDatatableRequest(values url.Values) (DatatableRequest, map[string][]string) {
	form := DatatableRequestSpec.New(WithData(values))
	if !form.IsValid() {
		return DatatableRequest{}, form.Errors()
	}
	data := form.CleanedData()
	return DatatableRequest{
		Draw:   int(data["draw"].(int64)),
		Start:  int(data["start"].(int64)),
		Length: int(data["length"].(int64)),
	}, nil
}
