package graph

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/sakif/linkboard/internal/model"
)

// Output and input types. Fields resolve through graphql-go's default
// resolver, which matches GraphQL field names against json struct tags.

// jsonScalar passes arbitrary JSON values through; used for Error.ctx.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value.",
	Serialize:   func(v any) any { return v },
	ParseValue:  func(v any) any { return v },
	ParseLiteral: func(v ast.Value) any {
		return literalValue(v)
	},
})

func literalValue(v ast.Value) any {
	switch v := v.(type) {
	case *ast.ObjectValue:
		out := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Name.Value] = literalValue(f.Value)
		}
		return out
	case *ast.ListValue:
		out := make([]any, len(v.Values))
		for i, item := range v.Values {
			out[i] = literalValue(item)
		}
		return out
	default:
		return v.GetValue()
	}
}

var linkTypeEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "LinkType",
	Values: graphql.EnumValueConfigMap{
		"SINGLE": &graphql.EnumValueConfig{Value: model.LinkTypeSingle},
		"GROUP":  &graphql.EnumValueConfig{Value: model.LinkTypeGroup},
	},
})

var backgroundTypeEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "BoardBackgroundType",
	Values: graphql.EnumValueConfigMap{
		"COLOR":     &graphql.EnumValueConfig{Value: model.BackgroundColor},
		"IMAGE":     &graphql.EnumValueConfig{Value: model.BackgroundImage},
		"EARTHPORN": &graphql.EnumValueConfig{Value: model.BackgroundEarthPorn},
	},
})

var profileType = graphql.NewObject(graphql.ObjectConfig{
	Name: "UserInfo",
	Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"sub":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"email":      &graphql.Field{Type: graphql.String},
		"givenName":  &graphql.Field{Type: graphql.String},
		"familyName": &graphql.Field{Type: graphql.String},
		"picture":    &graphql.Field{Type: graphql.String},
		"locale":     &graphql.Field{Type: graphql.String},
		"name":       &graphql.Field{Type: graphql.String},
	},
})

var sectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Section",
	Fields: graphql.Fields{
		"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"rank": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var linkType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Link",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"url":         &graphql.Field{Type: graphql.String},
		"favicon":     &graphql.Field{Type: graphql.String},
		"sectionId":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"rank":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"type":        &graphql.Field{Type: graphql.NewNonNull(linkTypeEnum)},
		"linkGroupId": &graphql.Field{Type: graphql.Int},
	},
})

var backgroundType = graphql.NewObject(graphql.ObjectConfig{
	Name: "BoardBackground",
	Fields: graphql.Fields{
		"type":  &graphql.Field{Type: graphql.NewNonNull(backgroundTypeEnum)},
		"value": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var boardSettingsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "BoardSettings",
	Fields: graphql.Fields{
		"background": &graphql.Field{Type: graphql.NewNonNull(backgroundType)},
	},
})

var earthPornImageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EarthPornImage",
	Fields: graphql.Fields{
		"id":                &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"url":               &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"title":             &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"thumbnailUrl":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"width":             &graphql.Field{Type: graphql.Int},
		"height":            &graphql.Field{Type: graphql.Int},
		"isOriginalContent": &graphql.Field{Type: graphql.Boolean},
	},
})

var errorType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Error",
	Fields: graphql.Fields{
		"msg":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"type": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"loc":  &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
		"ctx":  &graphql.Field{Type: graphql.NewNonNull(jsonScalar)},
	},
})

var mutationResultType = graphql.NewObject(graphql.ObjectConfig{
	Name: "MutationResult",
	Fields: graphql.Fields{
		"errors": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(errorType)))},
	},
})

var sectionInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "SectionInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":   &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"name": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"rank": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var linkInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "LinkInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":          &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"title":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"url":         &graphql.InputObjectFieldConfig{Type: graphql.String},
		"favicon":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		"sectionId":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		"rank":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		"type":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(linkTypeEnum)},
		"linkGroupId": &graphql.InputObjectFieldConfig{Type: graphql.Int},
	},
})

var backgroundInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "BoardBackgroundInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"type":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(backgroundTypeEnum)},
		"value": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	},
})

var boardSettingsInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "BoardSettingsInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"background": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(backgroundInputType)},
	},
})

// NewSchema builds the executable schema from every registered field, each
// resolved through p.
func NewSchema(reg *Registry, p *Pipeline) (graphql.Schema, error) {
	queries := graphql.Fields{}
	mutations := graphql.Fields{}

	for _, e := range reg.sorted() {
		field := &graphql.Field{
			Name:        e.opts.Name,
			Type:        e.opts.Type,
			Args:        e.opts.Args,
			Description: e.opts.Description,
			Resolve:     p.resolver(e),
		}
		if e.opts.Mutation {
			mutations[e.opts.Name] = field
		} else {
			queries[e.opts.Name] = field
		}
	}

	cfg := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queries}),
	}
	if len(mutations) > 0 {
		cfg.Mutation = graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutations})
	}

	schema, err := graphql.NewSchema(cfg)
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("graph: building schema: %w", err)
	}
	return schema, nil
}
