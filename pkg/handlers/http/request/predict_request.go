package request

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fastjson"
)

const DefaultThreshold = 0.5

type PredictRequest struct {
	Comments  []string `json:"comments" validate:"required,min=1"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// EffectiveThreshold returns the requested threshold or the default when absent.
func (r *PredictRequest) EffectiveThreshold() float64 {
	if r.Threshold == nil {
		return DefaultThreshold
	}
	return *r.Threshold
}

// PredictParser decodes and validates predict bodies. It is safe for concurrent use.
type PredictParser struct {
	validate    *validator.Validate
	maxComments int
	pool        fastjson.ParserPool
}

func NewPredictParser(maxComments int) *PredictParser {
	return &PredictParser{
		validate:    validator.New(),
		maxComments: maxComments,
	}
}

// Parse returns a *ValidationError for every problem a client can fix.
func (p *PredictParser) Parse(body []byte) (*PredictRequest, error) {
	verr := &ValidationError{}

	parser := p.pool.Get()
	defer p.pool.Put(parser)

	root, err := parser.ParseBytes(body)
	if err != nil {
		verr.add(fmt.Sprintf("JSON decode error: %v", err), "json_invalid")
		return nil, verr
	}
	if root.Type() != fastjson.TypeObject {
		verr.add("Input should be a valid dictionary", "dict_type")
		return nil, verr
	}

	req := &PredictRequest{}
	p.decodeComments(root.Get("comments"), req, verr)
	p.decodeThreshold(root.Get("threshold"), req, verr)
	if len(verr.Details) > 0 {
		return nil, verr
	}

	if err := p.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			p.addFieldError(verr, fe, len(req.Comments))
		}
	}
	if err := p.validate.Var(req.Comments, "max="+strconv.Itoa(p.maxComments)); err != nil {
		verr.add(fmt.Sprintf("List should have at most %d items after validation, not %d", p.maxComments, len(req.Comments)),
			"too_long", "comments")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return req, nil
}

func (p *PredictParser) decodeComments(v *fastjson.Value, req *PredictRequest, verr *ValidationError) {
	if v == nil {
		return
	}
	if v.Type() != fastjson.TypeArray {
		verr.add("Input should be a valid list", "list_type", "comments")
		return
	}
	items, _ := v.Array() //nolint:errcheck
	req.Comments = make([]string, 0, len(items))
	for i, item := range items {
		if item.Type() != fastjson.TypeString {
			verr.add("Input should be a valid string", "string_type", "comments", i)
			continue
		}
		req.Comments = append(req.Comments, string(item.GetStringBytes()))
	}
}

func (p *PredictParser) decodeThreshold(v *fastjson.Value, req *PredictRequest, verr *ValidationError) {
	if v == nil || v.Type() == fastjson.TypeNull {
		return
	}
	if v.Type() != fastjson.TypeNumber {
		verr.add("Input should be a valid number", "float_type", "threshold")
		return
	}
	f, err := v.Float64()
	if err != nil {
		verr.add("Input should be a valid number", "float_parsing", "threshold")
		return
	}
	req.Threshold = &f
}

func (p *PredictParser) addFieldError(verr *ValidationError, fe validator.FieldError, n int) {
	switch fe.StructField() {
	case "Comments":
		switch fe.Tag() {
		case "required":
			verr.add("Field required", "missing", "comments")
		default:
			verr.add(fmt.Sprintf("List should have at least 1 item after validation, not %d", n), "too_short", "comments")
		}
	case "Threshold":
		switch fe.Tag() {
		case "gte":
			verr.add("Input should be greater than or equal to 0", "greater_than_equal", "threshold")
		default:
			verr.add("Input should be less than or equal to 1", "less_than_equal", "threshold")
		}
	default:
		verr.add(fe.Error(), fe.Tag(), fe.Field())
	}
}
