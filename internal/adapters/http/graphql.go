package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/pkg/units"
)

// sourceField unwraps the parent object of a Field resolver.
func sourceField(p graphql.ResolveParams) (*domain.SavedField, error) {
	switch f := p.Source.(type) {
	case *domain.SavedField:
		return f, nil
	case domain.SavedField:
		return &f, nil
	default:
		return nil, fmt.Errorf("unexpected field source %T", p.Source)
	}
}

func unitsArg(p graphql.ResolveParams) domain.UnitSystem {
	s, _ := p.Args["units"].(string)
	return units.ParseSystem(s)
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	healthCellType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HealthCell",
		Fields: graphql.Fields{
			"row":            &graphql.Field{Type: graphql.Int},
			"col":            &graphql.Field{Type: graphql.Int},
			"bounds":         &graphql.Field{Type: boundsType},
			"classification": &graphql.Field{Type: graphql.String},
		},
	})

	sensorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Sensor",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"type":        &graphql.Field{Type: graphql.String},
			"value":       &graphql.Field{Type: graphql.Float},
			"battery":     &graphql.Field{Type: graphql.Int},
			"status":      &graphql.Field{Type: graphql.String},
			"health":      &graphql.Field{Type: graphql.String},
			"last_update": &graphql.Field{Type: graphql.DateTime},
		},
	})

	sensorBatchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SensorBatch",
		Fields: graphql.Fields{
			"field_id":     &graphql.Field{Type: graphql.String},
			"requested":    &graphql.Field{Type: graphql.Int},
			"max_attempts": &graphql.Field{Type: graphql.Int},
			"sensors":      &graphql.Field{Type: graphql.NewList(sensorType)},
			"deployed_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	displayType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Display",
		Fields: graphql.Fields{
			"units":     &graphql.Field{Type: graphql.String},
			"area":      &graphql.Field{Type: graphql.String},
			"perimeter": &graphql.Field{Type: graphql.String},
			"distance":  &graphql.Field{Type: graphql.String},
		},
	})

	unitsArgConfig := &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.Metric)}

	fieldType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Field",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"vertices":    &graphql.Field{Type: graphql.NewList(geoPointType)},
			"area_m2":     &graphql.Field{Type: graphql.Float},
			"perimeter_m": &graphql.Field{Type: graphql.Float},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
			"display": &graphql.Field{
				Type:        displayType,
				Description: "Area and perimeter formatted for display",
				Args:        graphql.FieldConfigArgument{"units": unitsArgConfig},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := sourceField(p)
					if err != nil {
						return nil, err
					}
					sys := unitsArg(p)
					return displayValues{
						Units:     sys,
						Area:      units.FormatArea(f.AreaM2, sys),
						Perimeter: units.FormatDistance(f.PerimeterM, sys),
					}, nil
				},
			},
			"health": &graphql.Field{
				Type:        graphql.NewList(healthCellType),
				Description: "Synthetic crop health raster",
				Args: graphql.FieldConfigArgument{
					"steps": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := sourceField(p)
					if err != nil {
						return nil, err
					}
					steps, _ := p.Args["steps"].(int)
					if steps < 0 || steps > maxGridSteps {
						return nil, fmt.Errorf("steps must be between 1 and %d", maxGridSteps)
					}
					return deps.Survey.HealthRaster(p.Context, f.Vertices, steps), nil
				},
			},
			"sensors": &graphql.Field{
				Type:        sensorBatchType,
				Description: "Current sensor batch, null if none deployed",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := sourceField(p)
					if err != nil {
						return nil, err
					}
					batch, err := deps.Survey.Sensors(p.Context, f.ID)
					if err != nil {
						return nil, nil
					}
					return batch, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"fields": &graphql.Field{
				Type:        graphql.NewList(fieldType),
				Description: "Saved fields, newest first",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fields, err := deps.Fields.List(p.Context)
					if err != nil {
						return nil, err
					}
					if limit, _ := p.Args["limit"].(int); limit > 0 && limit < len(fields) {
						fields = fields[:limit]
					}
					return fields, nil
				},
			},
			"field": &graphql.Field{
				Type:        fieldType,
				Description: "Get a field by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fields.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"format": &graphql.Field{
				Type:        displayType,
				Description: "Format an area and/or distance for display",
				Args: graphql.FieldConfigArgument{
					"area_m2":    &graphql.ArgumentConfig{Type: graphql.Float},
					"distance_m": &graphql.ArgumentConfig{Type: graphql.Float},
					"units":      unitsArgConfig,
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sys := unitsArg(p)
					out := displayValues{Units: sys}
					if a, ok := p.Args["area_m2"].(float64); ok {
						out.Area = units.FormatArea(a, sys)
					}
					if d, ok := p.Args["distance_m"].(float64); ok {
						out.Distance = units.FormatDistance(d, sys)
					}
					return out, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"deploySensors": &graphql.Field{
				Type:        sensorBatchType,
				Description: "Place a fresh sensor batch on a saved field",
				Args: graphql.FieldConfigArgument{
					"field_id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"count":        &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"max_attempts": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req := deployRequest{}
					req.Count, _ = p.Args["count"].(int)
					req.MaxAttempts, _ = p.Args["max_attempts"].(int)
					if msg := req.check(); msg != "" {
						return nil, fmt.Errorf("%s", msg)
					}
					return deps.Survey.DeploySensors(p.Context, p.Args["field_id"].(string), req.Count, req.MaxAttempts)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
