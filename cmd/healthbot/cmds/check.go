package cmds

import (
	"context"
	"strings"

	cmds2 "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/healthbot/pkg/safety"
	"github.com/pkg/errors"
)

type CheckResult struct {
	Message    string
	Emergency  bool
	Indicators []string
}

func Check(filter *safety.Filter, message string) CheckResult {
	return CheckResult{
		Message:    message,
		Emergency:  filter.Detect(message),
		Indicators: filter.Matches(message),
	}
}

func (r CheckResult) Row() types.Row {
	indicators := r.Indicators
	if indicators == nil {
		indicators = []string{}
	}
	return types.NewRow(
		types.MRP("message", r.Message),
		types.MRP("emergency", r.Emergency),
		types.MRP("indicators", indicators),
	)
}

// CheckCommand runs only the emergency screening. Nothing is sent to the
// language model and the exit code is 0 whatever the verdict.
type CheckCommand struct {
	*cmds2.CommandDescription
	filter *safety.Filter
}

var _ cmds2.GlazeCommand = (*CheckCommand)(nil)

func NewCheckCommand() (*CheckCommand, error) {
	glazedLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	return &CheckCommand{
		CommandDescription: cmds2.NewCommandDescription(
			"check",
			cmds2.WithShort("Run only the emergency screening on a message"),
			cmds2.WithLong("Run only the emergency screening on a message. Nothing is sent to the\n"+
				"language model. The exit code is 0 whatever the verdict."),
			cmds2.WithArguments(
				parameters.NewParameterDefinition(
					"message",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("Message to screen"),
					parameters.WithRequired(true),
				),
			),
			cmds2.WithLayers(glazedLayer),
		),
		filter: safety.Default(),
	}, nil
}

func (c *CheckCommand) Run(
	ctx context.Context,
	parsedLayers map[string]*layers.ParsedParameterLayer,
	ps map[string]interface{},
	gp middlewares.Processor,
) error {
	words, ok := ps["message"].([]string)
	if !ok || len(words) == 0 {
		return errors.New("missing message argument")
	}

	result := Check(c.filter, strings.Join(words, " "))
	return gp.AddRow(ctx, result.Row())
}
