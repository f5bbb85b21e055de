package hcl

import "github.com/hashicorp/hcl/v2"

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "route", LabelNames: []string{"name"}},
	},
}

var opBlocks = []hcl.BlockHeaderSchema{
	{Type: "declare"},
	{Type: "add"},
	{Type: "override"},
	{Type: "remove"},
	{Type: "insert", LabelNames: []string{"name"}},
	{Type: "sub_route", LabelNames: []string{"name"}},
}

var routeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "data"},
	},
	Blocks: opBlocks,
}

var subRouteSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "data"},
		{Name: "match_prefix"},
		{Name: "match_exact"},
		{Name: "match_suffix"},
		{Name: "match_regex"},
		{Name: "import_parent_actions"},
		{Name: "import_parent_declared_actions"},
	},
	Blocks: opBlocks,
}

var actionBlocks = []hcl.BlockHeaderSchema{
	{Type: "action", LabelNames: []string{"type", "name"}},
	{Type: "sequence", LabelNames: []string{"name"}},
	{Type: "parallel", LabelNames: []string{"name"}},
}

// actionListSchema is the body of declare, add and override.
var actionListSchema = &hcl.BodySchema{Blocks: actionBlocks}

var compositeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "cloneable"},
	},
	Blocks: actionBlocks,
}

var leafSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "cloneable"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "arguments"},
	},
}

// removeBlock is the body of a remove block.
type removeBlock struct {
	Actions []string `hcl:"actions"`
}

// insertBlock is the body of an insert block.
type insertBlock struct {
	From *string `hcl:"from,optional"`
}
